package output

import (
	"fmt"
	"sort"
	"strings"

	"permadb/internal/migrate"
	"permadb/internal/schema"
)

type humanFormatter struct{}

// FormatSchema renders every object type, its fields, and its composite
// indexes as an indented tree.
func (humanFormatter) FormatSchema(s *schema.Schema) (string, error) {
	if s == nil || len(s.Types) == 0 {
		return "No object types.\n", nil
	}
	var sb strings.Builder
	for _, ot := range s.Types {
		fmt.Fprintf(&sb, "%s (type %d)\n", ot.Name, ot.StorageID)
		for _, f := range ot.Fields {
			fmt.Fprintf(&sb, "  %s %s", f.Name, f.Kind)
			writeFieldShape(&sb, f)
			sb.WriteString("\n")
		}
		for _, cidx := range ot.CompositeIndexes {
			unique := ""
			if cidx.Unique {
				unique = ", unique"
			}
			fmt.Fprintf(&sb, "  index %s on %v%s\n", cidx.Name, cidx.FieldStorageIDs, unique)
		}
	}
	return sb.String(), nil
}

func writeFieldShape(sb *strings.Builder, f *schema.Field) {
	switch f.Kind {
	case schema.Simple:
		fmt.Fprintf(sb, "(%s)", f.SimpleType)
		if f.Unique {
			sb.WriteString(" unique")
		}
		if f.Indexed {
			sb.WriteString(" indexed")
		}
	case schema.Reference:
		fmt.Fprintf(sb, "(-> type %d, on_delete=%s)", f.ReferenceType, f.OnDelete)
	case schema.Set, schema.List:
		fmt.Fprintf(sb, "<%s>", subFieldShape(f.Element))
	case schema.Map:
		fmt.Fprintf(sb, "<%s -> %s>", subFieldShape(f.Key), subFieldShape(f.Value))
	}
}

func subFieldShape(sf *schema.SubField) string {
	if sf == nil {
		return "?"
	}
	if sf.Kind == schema.Reference {
		return fmt.Sprintf("-> type %d", sf.ReferenceType)
	}
	return sf.SimpleType.String()
}

// FormatObject renders one object's fields as "name = value" lines,
// sorted by field name for deterministic output.
func (humanFormatter) FormatObject(v ObjectView) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\n", v.ID, v.TypeName)
	names := make([]string, 0, len(v.Fields))
	for name := range v.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "  %s = %v\n", name, v.Fields[name])
	}
	return sb.String(), nil
}

// FormatPlan renders a migration plan's operations in the order
// internal/migrate built them.
func (humanFormatter) FormatPlan(p *migrate.Plan) (string, error) {
	if p == nil || len(p.Operations) == 0 {
		return "No field conversions.\n", nil
	}
	var sb strings.Builder
	for _, op := range p.Operations {
		fmt.Fprintf(&sb, "%s %s: %s", op.Kind, op.FieldName, op.Policy)
		if op.Note != "" {
			fmt.Fprintf(&sb, " (%s)", op.Note)
		}
		if op.UnresolvedReason != "" {
			fmt.Fprintf(&sb, " [unresolved: %s]", op.UnresolvedReason)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
