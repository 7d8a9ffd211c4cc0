package txn

import (
	"permadb/internal/dberr"
	"permadb/internal/keys"
	"permadb/internal/objid"
	"permadb/internal/schema"
)

// CheckStructural implements validate.Checker: every reference id holds,
// whether in a Reference field or a Set/List element or Map key/value,
// must point at a live object unless the holding (sub)field allows
// dangling references. A schema.UntypedObject value (the target's own
// type isn't registered in the bound schema) can't be resolved here and
// is treated as opaque rather than dangling.
func (t *Tx) CheckStructural(id objid.ObjId) error {
	ownType, err := t.objTypeOf(id)
	if err != nil {
		return err
	}
	for _, f := range ownType.Fields {
		switch f.Kind {
		case schema.Reference:
			v, err := t.ReadSimple(id, f.StorageID)
			if err != nil {
				return err
			}
			if err := t.checkReferenceTarget(v, f.AllowDeleted, ownType.Name, f.Name); err != nil {
				return err
			}
		case schema.Set:
			if f.Element == nil || f.Element.Kind != schema.Reference {
				continue
			}
			vals, err := t.IterSet(id, f.StorageID)
			if err != nil {
				return err
			}
			for _, v := range vals {
				if err := t.checkReferenceTarget(v, f.Element.AllowDeleted, ownType.Name, f.Name); err != nil {
					return err
				}
			}
		case schema.List:
			if f.Element == nil || f.Element.Kind != schema.Reference {
				continue
			}
			vals, err := t.GetList(id, f.StorageID)
			if err != nil {
				return err
			}
			for _, v := range vals {
				if err := t.checkReferenceTarget(v, f.Element.AllowDeleted, ownType.Name, f.Name); err != nil {
					return err
				}
			}
		case schema.Map:
			entries, err := t.IterMap(id, f.StorageID)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if f.Key != nil && f.Key.Kind == schema.Reference {
					if err := t.checkReferenceTarget(e.Key, f.Key.AllowDeleted, ownType.Name, f.Name); err != nil {
						return err
					}
				}
				if f.Value != nil && f.Value.Kind == schema.Reference {
					if err := t.checkReferenceTarget(e.Value, f.Value.AllowDeleted, ownType.Name, f.Name); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (t *Tx) checkReferenceTarget(v any, allowDeleted bool, typeName, fieldName string) error {
	if v == nil || allowDeleted {
		return nil
	}
	target, ok := v.(objid.ObjId)
	if !ok {
		return nil // schema.UntypedObject: foreign type, not ours to verify
	}
	exists, err := t.Exists(target)
	if err != nil {
		return err
	}
	if !exists {
		return dberr.Newf(dberr.DanglingReference, typeName, fieldName, "references a deleted object")
	}
	return nil
}

// CheckUniqueness implements validate.Checker: every Unique simple field
// and every unique CompositeIndex on id's type must resolve to no object
// other than id itself.
func (t *Tx) CheckUniqueness(id objid.ObjId) error {
	ownType, err := t.objTypeOf(id)
	if err != nil {
		return err
	}
	for _, f := range ownType.Fields {
		if f.Kind != schema.Simple || !f.Unique {
			continue
		}
		raw, ok, err := t.store.Get(keys.Field(id, f.StorageID))
		if err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
		if !ok {
			continue
		}
		owners, err := t.index.QueryIndex(indexNamespace(f.StorageID, roleSelf), raw)
		if err != nil {
			return err
		}
		if len(owners) > 1 || (len(owners) == 1 && owners[0] != id) {
			return dberr.Newf(dberr.UniqueViolation, ownType.Name, f.Name, "value is not unique")
		}
	}
	for _, cidx := range ownType.CompositeIndexes {
		if !cidx.Unique {
			continue
		}
		tuple, err := t.compositeTuple(id, cidx)
		if err != nil {
			return err
		}
		owners, err := t.index.QueryComposite(cidx, tuple)
		if err != nil {
			return err
		}
		if len(owners) > 1 || (len(owners) == 1 && owners[0] != id) {
			return dberr.Newf(dberr.UniqueViolation, ownType.Name, cidx.Name, "tuple is not unique")
		}
	}
	return nil
}

// CheckUserDefined implements validate.Checker by delegating to the
// transaction's registered UserValidators.
func (t *Tx) CheckUserDefined(id objid.ObjId) error {
	return t.userValid.Run(id)
}
