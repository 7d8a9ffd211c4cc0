package migrate

import "permadb/internal/schema"

// Plan is the ordered list of field conversions needed to move one
// object from one schema version's ObjType shape to another's: a flat
// slice, built incrementally by the add* methods, deduplicated on
// request, filtered into notes by kind/risk.
type Plan struct {
	Operations []FieldConversion
}

func (p *Plan) addConvert(field *schema.Field, policy ConversionPolicy) {
	p.Operations = append(p.Operations, FieldConversion{
		Kind:           OperationConvert,
		FieldStorageID: field.StorageID,
		FieldName:      field.Name,
		Policy:         policy,
	})
}

func (p *Plan) addRetain(field *schema.Field) {
	p.Operations = append(p.Operations, FieldConversion{
		Kind:           OperationRetain,
		FieldStorageID: field.StorageID,
		FieldName:      field.Name,
		Policy:         PolicyRetain,
	})
}

func (p *Plan) addReset(field *schema.Field, reason string) {
	p.Operations = append(p.Operations, FieldConversion{
		Kind:           OperationReset,
		Risk:           RiskBreaking,
		FieldStorageID: field.StorageID,
		FieldName:      field.Name,
		Policy:         PolicyReset,
		Note:           reason,
	})
}

func (p *Plan) addUnresolved(field *schema.Field, reason string) {
	p.Operations = append(p.Operations, FieldConversion{
		Kind:             OperationUnresolved,
		FieldStorageID:   field.StorageID,
		FieldName:        field.Name,
		UnresolvedReason: reason,
	})
}

// BreakingNotes returns every Note attached to a breaking-risk operation
// (currently: every reset added through addReset, i.e. a field new in the
// target version or one reset under PolicyReset; the reset BuildPlan
// records for a dropped field carries no Risk and is not included).
func (p *Plan) BreakingNotes() []string {
	return p.filter(func(op FieldConversion) string {
		if op.Risk != RiskBreaking {
			return ""
		}
		return op.Note
	})
}

// UnresolvedNotes returns the reason for every field the plan could not
// resolve at all — callers under PolicyRequire should treat a non-empty
// result as migration failure.
func (p *Plan) UnresolvedNotes() []string {
	return p.filter(func(op FieldConversion) string {
		return op.UnresolvedReason
	})
}

// InfoNotes returns the Note of every non-breaking operation that still
// carries one.
func (p *Plan) InfoNotes() []string {
	return p.filter(func(op FieldConversion) string {
		if op.Risk == RiskBreaking || op.Note == "" {
			return ""
		}
		return op.Note
	})
}

func (p *Plan) filter(fn func(FieldConversion) string) []string {
	out := make([]string, 0, len(p.Operations))
	for _, op := range p.Operations {
		if v := fn(op); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Dedupe keeps the first operation recorded for each field storage ID and
// drops every later one for that field, whether or not it is identical
// to the kept one.
func (p *Plan) Dedupe() {
	seen := make(map[uint32]bool, len(p.Operations))
	out := make([]FieldConversion, 0, len(p.Operations))
	for _, op := range p.Operations {
		if seen[op.FieldStorageID] {
			continue
		}
		seen[op.FieldStorageID] = true
		out = append(out, op)
	}
	p.Operations = out
}
