package migrate

import (
	"fmt"

	"permadb/internal/schema"
)

// BuildPlan compares oldType (the object's currently-stored shape) against
// newType (the target schema version's shape) field by field and decides,
// per field, whether migration can retain the stored bytes, must convert
// them, must reset to the field's default, or cannot proceed — one
// operation per field present in either version, including a Retain for
// every field whose encoding is unchanged and a Reset for every field
// newType drops. defaultPolicy is
// the conversion policy applied when a field's encoding changed and no
// finer-grained override exists.
func BuildPlan(oldType, newType *schema.ObjType, defaultPolicy ConversionPolicy) *Plan {
	plan := &Plan{}
	for _, nf := range newType.Fields {
		of := oldType.FieldByStorageID(nf.StorageID)
		switch {
		case of == nil:
			plan.addReset(nf, fmt.Sprintf("field %q is new in this schema version; initialized to its default", nf.Name))
		case of.EncodingEqual(nf):
			plan.addRetain(nf)
		default:
			planChangedField(plan, nf, defaultPolicy)
		}
	}
	for _, of := range oldType.Fields {
		if newType.FieldByStorageID(of.StorageID) == nil {
			plan.Operations = append(plan.Operations, FieldConversion{
				Kind:           OperationReset,
				FieldStorageID: of.StorageID,
				FieldName:      of.Name,
				Note:           fmt.Sprintf("field %q is dropped in this schema version; its stored value is discarded", of.Name),
			})
		}
	}
	plan.Dedupe()
	return plan
}

func planChangedField(plan *Plan, nf *schema.Field, policy ConversionPolicy) {
	switch policy {
	case PolicyAttempt:
		plan.addConvert(nf, PolicyAttempt)
	case PolicyRequire:
		plan.addConvert(nf, PolicyRequire)
	case PolicyReset:
		plan.addReset(nf, fmt.Sprintf("field %q changed encoding; reset to default per conversion policy", nf.Name))
	case PolicyRetain:
		plan.addUnresolved(nf, fmt.Sprintf("field %q changed encoding; RETAIN is not valid across an encoding change", nf.Name))
	default:
		plan.addUnresolved(nf, fmt.Sprintf("field %q changed encoding; no conversion policy given", nf.Name))
	}
}
