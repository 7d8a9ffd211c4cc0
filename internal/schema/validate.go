package schema

import (
	"permadb/internal/dberr"
)

// Validate cascades structural well-formedness checks over the whole
// schema: positive, unique storage IDs and names at every level; each
// field kind carries the sub-fields it requires and none it doesn't;
// composite indexes reference simple fields of their own type. It reports
// the first violation found as a *dberr.Error of kind InvalidSchema.
func (s *Schema) Validate() error {
	seenTypeIDs := map[uint32]bool{}
	seenTypeNames := map[string]bool{}
	for _, t := range s.Types {
		if t.StorageID == 0 {
			return dberr.Newf(dberr.InvalidSchema, t.Name, "", "object type %q has storage ID 0", t.Name)
		}
		if seenTypeIDs[t.StorageID] {
			return dberr.Newf(dberr.InvalidSchema, t.Name, "", "duplicate object type storage ID %d", t.StorageID)
		}
		seenTypeIDs[t.StorageID] = true
		if seenTypeNames[t.Name] {
			return dberr.Newf(dberr.InvalidSchema, t.Name, "", "duplicate object type name %q", t.Name)
		}
		seenTypeNames[t.Name] = true

		if err := t.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t *ObjType) validate() error {
	seenFieldIDs := map[uint32]bool{}
	seenFieldNames := map[string]bool{}
	for _, f := range t.Fields {
		if f.StorageID == 0 {
			return dberr.Newf(dberr.InvalidSchema, t.Name, f.Name, "field has storage ID 0")
		}
		if seenFieldIDs[f.StorageID] {
			return dberr.Newf(dberr.InvalidSchema, t.Name, f.Name, "duplicate field storage ID %d", f.StorageID)
		}
		seenFieldIDs[f.StorageID] = true
		if seenFieldNames[f.Name] {
			return dberr.Newf(dberr.InvalidSchema, t.Name, f.Name, "duplicate field name %q", f.Name)
		}
		seenFieldNames[f.Name] = true

		if err := f.validate(t.Name); err != nil {
			return err
		}
	}

	seenIdxIDs := map[uint32]bool{}
	seenIdxNames := map[string]bool{}
	for _, c := range t.CompositeIndexes {
		if c.StorageID == 0 {
			return dberr.Newf(dberr.InvalidSchema, t.Name, c.Name, "composite index has storage ID 0")
		}
		if seenIdxIDs[c.StorageID] {
			return dberr.Newf(dberr.InvalidSchema, t.Name, c.Name, "duplicate composite index storage ID %d", c.StorageID)
		}
		seenIdxIDs[c.StorageID] = true
		if seenIdxNames[c.Name] {
			return dberr.Newf(dberr.InvalidSchema, t.Name, c.Name, "duplicate composite index name %q", c.Name)
		}
		seenIdxNames[c.Name] = true

		if len(c.FieldStorageIDs) < 2 {
			return dberr.Newf(dberr.InvalidSchema, t.Name, c.Name, "composite index needs at least 2 constituent fields, has %d", len(c.FieldStorageIDs))
		}
		for _, fid := range c.FieldStorageIDs {
			cf := t.FieldByStorageID(fid)
			if cf == nil {
				return dberr.Newf(dberr.InvalidSchema, t.Name, c.Name, "composite index references unknown field storage ID %d", fid)
			}
			if cf.Kind != Simple {
				return dberr.Newf(dberr.InvalidSchema, t.Name, c.Name, "composite index field %q must be simple, is %s", cf.Name, cf.Kind)
			}
		}
	}
	return nil
}

func (f *Field) validate(typeName string) error {
	switch f.Kind {
	case Simple:
		if f.Element != nil || f.Key != nil || f.Value != nil {
			return dberr.Newf(dberr.InvalidSchema, typeName, f.Name, "simple field must not declare sub-fields")
		}
		return validateSimpleShape(typeName, f.Name, f.SimpleType, f.EnumValues)
	case Reference:
		if f.Element != nil || f.Key != nil || f.Value != nil {
			return dberr.Newf(dberr.InvalidSchema, typeName, f.Name, "reference field must not declare sub-fields")
		}
		if f.AllowDeleted && f.OnDelete != OnDeleteIgnore {
			return dberr.Newf(dberr.InvalidSchema, typeName, f.Name, "allow_deleted requires on_delete = ignore")
		}
	case Counter:
		if f.Element != nil || f.Key != nil || f.Value != nil {
			return dberr.Newf(dberr.InvalidSchema, typeName, f.Name, "counter field must not declare sub-fields")
		}
	case Set, List:
		if f.Element == nil {
			return dberr.Newf(dberr.InvalidSchema, typeName, f.Name, "%s field requires an element sub-field", f.Kind)
		}
		if f.Key != nil || f.Value != nil {
			return dberr.Newf(dberr.InvalidSchema, typeName, f.Name, "%s field must not declare key/value sub-fields", f.Kind)
		}
		if err := f.Element.validate(typeName, f.Name, "element", SubFieldElement); err != nil {
			return err
		}
	case Map:
		if f.Key == nil || f.Value == nil {
			return dberr.Newf(dberr.InvalidSchema, typeName, f.Name, "map field requires key and value sub-fields")
		}
		if f.Element != nil {
			return dberr.Newf(dberr.InvalidSchema, typeName, f.Name, "map field must not declare an element sub-field")
		}
		if err := f.Key.validate(typeName, f.Name, "key", SubFieldKey); err != nil {
			return err
		}
		if err := f.Value.validate(typeName, f.Name, "value", SubFieldValue); err != nil {
			return err
		}
	default:
		return dberr.Newf(dberr.InvalidSchema, typeName, f.Name, "unknown field kind %d", int(f.Kind))
	}
	return nil
}

func (sf *SubField) validate(typeName, fieldName, role string, wantStorageID uint32) error {
	if sf.StorageID != wantStorageID {
		return dberr.Newf(dberr.InvalidSchema, typeName, fieldName,
			"%s sub-field must use the well-known storage ID %d, has %d", role, wantStorageID, sf.StorageID)
	}
	switch sf.Kind {
	case Simple:
		return validateSimpleShape(typeName, fieldName, sf.SimpleType, sf.EnumValues)
	case Reference:
		if sf.AllowDeleted && sf.OnDelete != OnDeleteIgnore {
			return dberr.Newf(dberr.InvalidSchema, typeName, fieldName, "%s sub-field: allow_deleted requires on_delete = ignore", role)
		}
		return nil
	default:
		return dberr.Newf(dberr.InvalidSchema, typeName, fieldName, "%s sub-field must be simple or reference, is %s", role, sf.Kind)
	}
}

func validateSimpleShape(typeName, fieldName string, t SimpleType, enumValues []string) error {
	if t == TypeEnum && len(enumValues) == 0 {
		return dberr.Newf(dberr.InvalidSchema, typeName, fieldName, "enum field declares no values")
	}
	if t != TypeEnum && len(enumValues) != 0 {
		return dberr.Newf(dberr.InvalidSchema, typeName, fieldName, "only enum fields may declare values")
	}
	if t < TypeString || t > TypeEnum {
		return dberr.Newf(dberr.InvalidSchema, typeName, fieldName, "unknown simple type %d", int(t))
	}
	return nil
}

// typeSignature is the part of a field's shape that compatibility checks
// across schema versions require to stay fixed: everything except
// Indexed/Unique, ReferenceType, OnDelete, and ForwardDelete, which are
// free to change between versions.
type typeSignature struct {
	kind       FieldKind
	simpleType SimpleType
	enumKey    string
	elemSig    *typeSignature
	keySig     *typeSignature
	valSig     *typeSignature
}

func fieldSignature(f *Field) typeSignature {
	sig := typeSignature{kind: f.Kind, simpleType: f.SimpleType, enumKey: enumKey(f.EnumValues)}
	if f.Element != nil {
		s := subFieldSignature(f.Element)
		sig.elemSig = &s
	}
	if f.Key != nil {
		s := subFieldSignature(f.Key)
		sig.keySig = &s
	}
	if f.Value != nil {
		s := subFieldSignature(f.Value)
		sig.valSig = &s
	}
	return sig
}

func subFieldSignature(sf *SubField) typeSignature {
	return typeSignature{kind: sf.Kind, simpleType: sf.SimpleType, enumKey: enumKey(sf.EnumValues)}
}

func enumKey(values []string) string {
	key := ""
	for _, v := range values {
		key += v + "\x00"
	}
	return key
}

func (a typeSignature) equal(b typeSignature) bool {
	if a.kind != b.kind || a.simpleType != b.simpleType || a.enumKey != b.enumKey {
		return false
	}
	if (a.elemSig == nil) != (b.elemSig == nil) {
		return false
	}
	if a.elemSig != nil && !a.elemSig.equal(*b.elemSig) {
		return false
	}
	if (a.keySig == nil) != (b.keySig == nil) {
		return false
	}
	if a.keySig != nil && !a.keySig.equal(*b.keySig) {
		return false
	}
	if (a.valSig == nil) != (b.valSig == nil) {
		return false
	}
	if a.valSig != nil && !a.valSig.equal(*b.valSig) {
		return false
	}
	return true
}

// CompatibleWith checks the rule applied when registering a new schema
// alongside ones already known: for every storage ID that
// appears in both s and existing, the item's kind (object-type vs. each
// field kind) and type signature must match exactly. Indexed/unique flags,
// reference target type, and cascade settings may differ freely.
func (s *Schema) CompatibleWith(existing *Schema) error {
	for _, t := range s.Types {
		oldType := existing.ObjTypeByStorageID(t.StorageID)
		if oldType == nil {
			continue
		}
		if oldType.Name != t.Name {
			return dberr.Newf(dberr.InvalidSchema, t.Name, "", "object type storage ID %d previously named %q", t.StorageID, oldType.Name)
		}
		for _, f := range t.Fields {
			oldField := oldType.FieldByStorageID(f.StorageID)
			if oldField == nil {
				continue
			}
			if !fieldSignature(f).equal(fieldSignature(oldField)) {
				return dberr.Newf(dberr.InvalidSchema, t.Name, f.Name,
					"field storage ID %d changed incompatibly between schema versions", f.StorageID)
			}
		}
	}
	return nil
}
