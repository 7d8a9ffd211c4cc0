// Package toml parses a portable, dialect-agnostic schema definition file
// into a *schema.Schema. The TOML document declares [[types]], each with
// [[types.fields]] and optionally [[types.composite_indexes]]; reference
// fields name their target type, resolved to a storage ID once every type
// in the document has been read.
package toml

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"permadb/internal/schema"
)

// schemaFile is the top-level TOML document.
type schemaFile struct {
	Types []tomlType `toml:"types"`
}

// Parser reads schema definition TOML files.
type Parser struct{}

// NewParser creates a new TOML schema parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens the file at path and parses it as a schema definition.
func (p *Parser) ParseFile(path string) (*schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("toml: open file %q: %w", path, err)
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse reads TOML content from r and returns the corresponding schema.
func (p *Parser) Parse(r io.Reader) (*schema.Schema, error) {
	var sf schemaFile
	if _, err := toml.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("toml: decode error: %w", err)
	}
	return newConverter(&sf).convert()
}

type converter struct {
	sf       *schemaFile
	byName   map[string]uint32
	seenName map[string]bool
}

func newConverter(sf *schemaFile) *converter {
	return &converter{
		sf:       sf,
		byName:   make(map[string]uint32, len(sf.Types)),
		seenName: make(map[string]bool, len(sf.Types)),
	}
}

func (c *converter) convert() (*schema.Schema, error) {
	for _, t := range c.sf.Types {
		if t.Name == "" {
			return nil, fmt.Errorf("toml: object type with empty name")
		}
		if c.seenName[t.Name] {
			return nil, fmt.Errorf("toml: duplicate object type name %q", t.Name)
		}
		c.seenName[t.Name] = true
		c.byName[t.Name] = uint32(t.StorageID)
	}

	types := make([]*schema.ObjType, 0, len(c.sf.Types))
	for i := range c.sf.Types {
		ot, err := c.convertType(&c.sf.Types[i])
		if err != nil {
			return nil, fmt.Errorf("toml: type %q: %w", c.sf.Types[i].Name, err)
		}
		types = append(types, ot)
	}

	s := &schema.Schema{Types: types}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}
	return s, nil
}

// resolveReferenceType maps a field's `references` type name to its
// storage ID. An empty name means "any registered type" (storage ID 0).
func (c *converter) resolveReferenceType(name string) (uint32, error) {
	if name == "" {
		return 0, nil
	}
	id, ok := c.byName[name]
	if !ok {
		return 0, fmt.Errorf("references unknown type %q", name)
	}
	return id, nil
}
