package txn

import (
	"permadb/internal/dberr"
	"permadb/internal/keys"
	"permadb/internal/objid"
	"permadb/internal/schema"
	"permadb/internal/validate"
)

// ReadSimple returns fieldStorageID's current value on id: a string,
// bool, int64, float64, []byte, or enum string for Simple fields; an
// objid.ObjId or schema.UntypedObject for Reference fields. Absent
// fields return the type's zero value (nil for Reference).
func (t *Tx) ReadSimple(id objid.ObjId, fieldStorageID uint32) (any, error) {
	if _, err := t.requireExists(id); err != nil {
		return nil, err
	}
	f, err := t.fieldOf(id, fieldStorageID)
	if err != nil {
		return nil, err
	}
	if f.Kind != schema.Simple && f.Kind != schema.Reference {
		return nil, dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not simple or reference")
	}
	raw, ok, err := t.store.Get(keys.Field(id, fieldStorageID))
	if err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if !ok {
		if f.Kind == schema.Reference {
			return nil, nil
		}
		return defaultSimpleValue(f.SimpleType), nil
	}
	if f.Kind == schema.Reference {
		return t.decodeReference(raw)
	}
	return decodeSimple(f.SimpleType, raw)
}

// WriteSimple writes value to fieldStorageID on id. Writing the field's
// already-current value is a no-op: no index update, no listener fire.
func (t *Tx) WriteSimple(id objid.ObjId, fieldStorageID uint32, value any) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	ownType, err := t.requireExists(id)
	if err != nil {
		return err
	}
	f, err := t.fieldOf(id, fieldStorageID)
	if err != nil {
		return err
	}
	if f.Kind != schema.Simple && f.Kind != schema.Reference {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not simple or reference")
	}

	var newEncoded []byte
	if f.Kind == schema.Reference {
		newEncoded, err = t.encodeReference(f.ReferenceType, value)
	} else {
		newEncoded, err = encodeSimple(f.SimpleType, f.EnumValues, value)
	}
	if err != nil {
		return err
	}

	oldEncoded, ok, err := t.store.Get(keys.Field(id, fieldStorageID))
	if err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	var oldPtr []byte
	if ok {
		oldPtr = oldEncoded
	}
	if ok && bytesEqual(oldEncoded, newEncoded) {
		return nil
	}

	affectedComposites := make([]*schema.CompositeIndex, 0)
	oldTuples := make(map[string][]byte)
	for _, cidx := range ownType.CompositeIndexes {
		if compositeIndexCoversField(cidx, fieldStorageID) {
			tuple, err := t.compositeTuple(id, cidx)
			if err != nil {
				return err
			}
			oldTuples[cidx.Name] = tuple
			affectedComposites = append(affectedComposites, cidx)
		}
	}

	indexed := f.Kind == schema.Reference || f.Indexed
	if indexed {
		if err := t.index.UpdateSimple(indexNamespace(fieldStorageID, roleSelf), id, oldPtr, newEncoded); err != nil {
			return err
		}
	}
	if err := t.store.Put(keys.Field(id, fieldStorageID), newEncoded); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}

	for _, cidx := range affectedComposites {
		newTuple, err := t.compositeTuple(id, cidx)
		if err != nil {
			return err
		}
		if err := t.index.UpdateComposite(cidx, id, oldTuples[cidx.Name], newTuple); err != nil {
			return err
		}
	}

	t.fireAndEnqueue(validate.Event{
		Kind:            validate.EventSimpleChange,
		ID:              id,
		FieldStorageID:  fieldStorageID,
		OldValueEncoded: oldPtr,
		NewValueEncoded: newEncoded,
	}, ownType.StorageID)
	return nil
}

func (t *Tx) requireExists(id objid.ObjId) (*schema.ObjType, error) {
	exists, err := t.Exists(id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, dberr.New(dberr.DeletedObject, "", "", "")
	}
	return t.objTypeOf(id)
}

func compositeIndexCoversField(cidx *schema.CompositeIndex, fieldStorageID uint32) bool {
	for _, id := range cidx.FieldStorageIDs {
		if id == fieldStorageID {
			return true
		}
	}
	return false
}
