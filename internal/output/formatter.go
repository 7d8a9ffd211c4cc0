// Package output formats schema snapshots, object reads, and migration
// plans for the CLI. It is extendable and for now provides three formats:
// human, JSON, and summary.
package output

import (
	"fmt"
	"strings"

	"permadb/internal/migrate"
	"permadb/internal/schema"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatHuman   Format = "human"
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
)

// ObjectView is what a formatter renders for one read object: its ID,
// type name, and a name -> decoded-value map of its fields (complex
// fields already flattened to a Go slice/map by the caller).
type ObjectView struct {
	ID       string
	TypeName string
	Fields   map[string]any
}

// Formatter renders schema snapshots, object reads, and migration plans
// as a string.
type Formatter interface {
	FormatSchema(*schema.Schema) (string, error)
	FormatObject(ObjectView) (string, error)
	FormatPlan(*migrate.Plan) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to human format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatHuman:
		return humanFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSummary:
		return summaryFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'human', 'json', or 'summary'", name)
	}
}
