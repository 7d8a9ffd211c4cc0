package output

import (
	"fmt"
	"strings"

	"permadb/internal/migrate"
	"permadb/internal/schema"
)

type summaryFormatter struct{}

// FormatSchema formats a schema as a compact per-type field/index count.
func (summaryFormatter) FormatSchema(s *schema.Schema) (string, error) {
	if s == nil || len(s.Types) == 0 {
		return "No object types.\n", nil
	}
	var sb strings.Builder
	sb.WriteString("Schema Summary\n")
	sb.WriteString("==============\n\n")
	for _, ot := range s.Types {
		fmt.Fprintf(&sb, "%-20s fields:%-3d indexes:%d\n", ot.Name, len(ot.Fields), len(ot.CompositeIndexes))
	}
	return sb.String(), nil
}

// FormatObject formats an object read as a one-line field count summary.
func (summaryFormatter) FormatObject(v ObjectView) (string, error) {
	return fmt.Sprintf("%s (%s): %d fields\n", v.ID, v.TypeName, len(v.Fields)), nil
}

// FormatPlan formats a migration plan as operation-kind counts.
// Example output:
//
//	Operations: 4 (2 convert, 1 reset, 1 retain)
//	Unresolved: 0
func (summaryFormatter) FormatPlan(p *migrate.Plan) (string, error) {
	if p == nil || len(p.Operations) == 0 {
		return "No field conversions.\n", nil
	}

	var convert, reset, retain, unresolved int
	for _, op := range p.Operations {
		switch op.Kind {
		case migrate.OperationConvert:
			convert++
		case migrate.OperationReset:
			reset++
		case migrate.OperationRetain:
			retain++
		case migrate.OperationUnresolved:
			unresolved++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Operations: %d (%d convert, %d reset, %d retain)\n", len(p.Operations), convert, reset, retain)
	fmt.Fprintf(&sb, "Unresolved: %d\n", unresolved)
	if breaking := p.BreakingNotes(); len(breaking) > 0 {
		fmt.Fprintf(&sb, "\nBreaking changes: %d\n", len(breaking))
		for _, b := range breaking {
			fmt.Fprintf(&sb, "  - %s\n", b)
		}
	}
	return sb.String(), nil
}
