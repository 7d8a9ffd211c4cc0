package toml

import (
	"fmt"
	"strings"

	"permadb/internal/schema"
)

// tomlField maps [[types.fields]].
type tomlField struct {
	Name      string `toml:"name"`
	StorageID int    `toml:"storage_id"`
	Kind      string `toml:"kind"` // simple | reference | counter | set | list | map

	// Simple fields.
	Type    string   `toml:"type"` // string | bool | int | float | bytes | enum
	Values  []string `toml:"values"`
	Indexed bool     `toml:"indexed"`
	Unique  bool     `toml:"unique"`

	// Reference fields.
	References    string `toml:"references"` // target type name, empty = any type
	AllowDeleted  bool   `toml:"allow_deleted"`
	OnDelete      string `toml:"on_delete"` // exception | unreference | delete | ignore
	ForwardDelete bool   `toml:"forward_delete"`

	// Set/List.
	Element *tomlSubField `toml:"element"`
	// Map.
	Key   *tomlSubField `toml:"key"`
	Value *tomlSubField `toml:"value"`
}

// tomlSubField maps [types.fields.element]/[types.fields.key]/[types.fields.value].
type tomlSubField struct {
	Kind   string   `toml:"kind"` // simple | reference
	Type   string   `toml:"type"`
	Values []string `toml:"values"`

	References    string `toml:"references"`
	AllowDeleted  bool   `toml:"allow_deleted"`
	OnDelete      string `toml:"on_delete"`
	ForwardDelete bool   `toml:"forward_delete"`

	Indexed bool `toml:"indexed"`
}

func (c *converter) convertField(tf *tomlField) (*schema.Field, error) {
	if tf.Name == "" {
		return nil, fmt.Errorf("field with empty name")
	}
	if tf.StorageID <= 0 {
		return nil, fmt.Errorf("storage_id must be positive, got %d", tf.StorageID)
	}

	kind, err := parseFieldKind(tf.Kind)
	if err != nil {
		return nil, err
	}

	f := &schema.Field{StorageID: uint32(tf.StorageID), Name: tf.Name, Kind: kind}

	switch kind {
	case schema.Simple:
		t, values, err := parseSimpleShape(tf.Type, tf.Values)
		if err != nil {
			return nil, err
		}
		f.SimpleType, f.EnumValues, f.Indexed, f.Unique = t, values, tf.Indexed, tf.Unique

	case schema.Reference:
		refType, onDelete, err := c.resolveReferenceShape(tf.References, tf.OnDelete)
		if err != nil {
			return nil, err
		}
		f.ReferenceType, f.AllowDeleted, f.OnDelete, f.ForwardDelete = refType, tf.AllowDeleted, onDelete, tf.ForwardDelete

	case schema.Counter:
		// no further shape

	case schema.Set, schema.List:
		if tf.Element == nil {
			return nil, fmt.Errorf("%s field requires an [element] table", tf.Kind)
		}
		sf, err := c.convertSubField(tf.Element, schema.SubFieldElement)
		if err != nil {
			return nil, fmt.Errorf("element: %w", err)
		}
		f.Element = sf

	case schema.Map:
		if tf.Key == nil || tf.Value == nil {
			return nil, fmt.Errorf("map field requires [key] and [value] tables")
		}
		key, err := c.convertSubField(tf.Key, schema.SubFieldKey)
		if err != nil {
			return nil, fmt.Errorf("key: %w", err)
		}
		val, err := c.convertSubField(tf.Value, schema.SubFieldValue)
		if err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
		f.Key, f.Value = key, val
	}

	return f, nil
}

func (c *converter) convertSubField(tsf *tomlSubField, storageID uint32) (*schema.SubField, error) {
	kind, err := parseFieldKind(tsf.Kind)
	if err != nil {
		return nil, err
	}
	if kind != schema.Simple && kind != schema.Reference {
		return nil, fmt.Errorf("sub-field kind must be simple or reference, got %q", tsf.Kind)
	}

	sf := &schema.SubField{StorageID: storageID, Kind: kind, Indexed: tsf.Indexed}
	switch kind {
	case schema.Simple:
		t, values, err := parseSimpleShape(tsf.Type, tsf.Values)
		if err != nil {
			return nil, err
		}
		sf.SimpleType, sf.EnumValues = t, values
	case schema.Reference:
		refType, onDelete, err := c.resolveReferenceShape(tsf.References, tsf.OnDelete)
		if err != nil {
			return nil, err
		}
		sf.ReferenceType, sf.AllowDeleted, sf.OnDelete, sf.ForwardDelete = refType, tsf.AllowDeleted, onDelete, tsf.ForwardDelete
	}
	return sf, nil
}

func (c *converter) resolveReferenceShape(references, onDeleteRaw string) (refType uint32, onDelete schema.OnDelete, err error) {
	refType, err = c.resolveReferenceType(references)
	if err != nil {
		return 0, 0, err
	}
	onDelete, err = parseOnDelete(onDeleteRaw)
	return refType, onDelete, err
}

func parseFieldKind(raw string) (schema.FieldKind, error) {
	switch strings.ToLower(raw) {
	case "simple":
		return schema.Simple, nil
	case "reference":
		return schema.Reference, nil
	case "counter":
		return schema.Counter, nil
	case "set":
		return schema.Set, nil
	case "list":
		return schema.List, nil
	case "map":
		return schema.Map, nil
	default:
		return 0, fmt.Errorf("unknown field kind %q", raw)
	}
}

func parseSimpleShape(raw string, values []string) (schema.SimpleType, []string, error) {
	switch strings.ToLower(raw) {
	case "string":
		return schema.TypeString, nil, nil
	case "bool":
		return schema.TypeBool, nil, nil
	case "int":
		return schema.TypeInt, nil, nil
	case "float":
		return schema.TypeFloat, nil, nil
	case "bytes":
		return schema.TypeBytes, nil, nil
	case "enum":
		if len(values) == 0 {
			return 0, nil, fmt.Errorf("enum type requires non-empty values")
		}
		return schema.TypeEnum, values, nil
	default:
		return 0, nil, fmt.Errorf("unknown simple type %q", raw)
	}
}

func parseOnDelete(raw string) (schema.OnDelete, error) {
	switch strings.ToLower(raw) {
	case "", "exception":
		return schema.OnDeleteException, nil
	case "unreference":
		return schema.OnDeleteUnreference, nil
	case "delete":
		return schema.OnDeleteDelete, nil
	case "ignore":
		return schema.OnDeleteIgnore, nil
	default:
		return 0, fmt.Errorf("unknown on_delete policy %q", raw)
	}
}
