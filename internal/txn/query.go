package txn

import (
	"permadb/internal/dberr"
	"permadb/internal/index"
	"permadb/internal/keys"
	"permadb/internal/objid"
	"permadb/internal/schema"
)

// QueryIndex returns every ObjId whose fieldName field currently holds
// value: an indexed simple field or a reference field is matched on its
// own value, a set or list on its indexed elements, and a map on its keys
// when the key is indexed, otherwise on its values.
func (t *Tx) QueryIndex(typeName string, fieldName string, value any) ([]objid.ObjId, error) {
	f, ot, err := t.resolveField(typeName, fieldName)
	if err != nil {
		return nil, err
	}
	sf, role := f.Element, roleElement
	if f.Kind == schema.Map {
		sf, role = f.Key, roleKey
		if !sf.Indexed {
			sf, role = f.Value, roleValue
		}
	}
	if sf != nil {
		if !sf.Indexed {
			return nil, dberr.Newf(dberr.InvalidValue, ot.Name, f.Name, "field is not indexed")
		}
		encoded, err := t.encodeSubFieldValue(sf, value)
		if err != nil {
			return nil, err
		}
		return t.index.QueryIndex(indexNamespace(f.StorageID, role), encoded)
	}
	if !f.Indexed && f.Kind != schema.Reference {
		return nil, dberr.Newf(dberr.InvalidValue, ot.Name, f.Name, "field is not indexed")
	}
	encoded, err := t.encodeFieldOrRefValue(f, value)
	if err != nil {
		return nil, err
	}
	return t.index.QueryIndex(indexNamespace(f.StorageID, roleSelf), encoded)
}

// QueryIndexRange returns every (value, ObjId) pair whose field value
// falls in [lo, hi).
func (t *Tx) QueryIndexRange(typeName, fieldName string, lo, hi any) ([]index.IndexEntry, error) {
	f, ot, err := t.resolveField(typeName, fieldName)
	if err != nil {
		return nil, err
	}
	if !f.Indexed && f.Kind != schema.Reference {
		return nil, dberr.Newf(dberr.InvalidValue, ot.Name, f.Name, "field is not indexed")
	}
	loEnc, err := t.encodeFieldOrRefValue(f, lo)
	if err != nil {
		return nil, err
	}
	hiEnc, err := t.encodeFieldOrRefValue(f, hi)
	if err != nil {
		return nil, err
	}
	return t.index.QueryIndexRange(indexNamespace(f.StorageID, roleSelf), loEnc, hiEnc, fixedValueLen(f))
}

// QueryReverseReference returns every object whose fieldName reference
// field (on typeName) points at targetID.
func (t *Tx) QueryReverseReference(typeName, fieldName string, targetID objid.ObjId) ([]objid.ObjId, error) {
	f, ot, err := t.resolveField(typeName, fieldName)
	if err != nil {
		return nil, err
	}
	if f.Kind != schema.Reference {
		return nil, dberr.Newf(dberr.InvalidValue, ot.Name, f.Name, "field is not a reference field")
	}
	return t.index.QueryReverseReference(indexNamespace(f.StorageID, roleSelf), targetID)
}

// QueryComposite returns every ObjId whose constituent field values
// equal tuple under the named composite index.
func (t *Tx) QueryComposite(typeName, indexName string, tupleValues []any) ([]objid.ObjId, error) {
	cidx, ot, err := t.resolveCompositeIndex(typeName, indexName)
	if err != nil {
		return nil, err
	}
	tuple, err := t.encodeTupleValues(ot, cidx, tupleValues)
	if err != nil {
		return nil, err
	}
	return t.index.QueryComposite(cidx, tuple)
}

// QueryCompositeRange returns every ObjId whose tuple falls in [lo, hi)
// under the named composite index.
func (t *Tx) QueryCompositeRange(typeName, indexName string, lo, hi []any) ([]objid.ObjId, error) {
	cidx, ot, err := t.resolveCompositeIndex(typeName, indexName)
	if err != nil {
		return nil, err
	}
	loTuple, err := t.encodeTupleValues(ot, cidx, lo)
	if err != nil {
		return nil, err
	}
	hiTuple, err := t.encodeTupleValues(ot, cidx, hi)
	if err != nil {
		return nil, err
	}
	return t.index.QueryCompositeRange(cidx, loTuple, hiTuple)
}

func (t *Tx) resolveField(typeName, fieldName string) (*schema.Field, *schema.ObjType, error) {
	ot := t.bound.ObjType(typeName)
	if ot == nil {
		return nil, nil, dberr.Newf(dberr.TypeNotInSchema, typeName, "", "unknown type")
	}
	f := ot.Field(fieldName)
	if f == nil {
		return nil, nil, dberr.Newf(dberr.InvalidValue, typeName, fieldName, "unknown field")
	}
	return f, ot, nil
}

func (t *Tx) resolveCompositeIndex(typeName, indexName string) (*schema.CompositeIndex, *schema.ObjType, error) {
	ot := t.bound.ObjType(typeName)
	if ot == nil {
		return nil, nil, dberr.Newf(dberr.TypeNotInSchema, typeName, "", "unknown type")
	}
	cidx := ot.CompositeIndex(indexName)
	if cidx == nil {
		return nil, nil, dberr.Newf(dberr.InvalidValue, typeName, indexName, "unknown composite index")
	}
	return cidx, ot, nil
}

func (t *Tx) encodeFieldOrRefValue(f *schema.Field, value any) ([]byte, error) {
	if f.Kind == schema.Reference {
		return t.encodeReference(f.ReferenceType, value)
	}
	return encodeSimple(f.SimpleType, f.EnumValues, value)
}

func fixedValueLen(f *schema.Field) int {
	if f.Kind == schema.Reference {
		return objid.EncodedLen
	}
	switch f.SimpleType {
	case schema.TypeBool:
		return 1
	case schema.TypeInt, schema.TypeFloat:
		return 8
	default:
		return 0 // variable-width (string/bytes/enum)
	}
}

func (t *Tx) encodeTupleValues(ot *schema.ObjType, cidx *schema.CompositeIndex, values []any) ([]byte, error) {
	if len(values) != len(cidx.FieldStorageIDs) {
		return nil, dberr.Newf(dberr.InvalidValue, ot.Name, cidx.Name, "expected %d values, got %d", len(cidx.FieldStorageIDs), len(values))
	}
	var out []byte
	for i, fsid := range cidx.FieldStorageIDs {
		f := ot.FieldByStorageID(fsid)
		enc, err := encodeSimple(f.SimpleType, f.EnumValues, values[i])
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

// compositeTuple builds cidx's current tuple encoding for id: each
// constituent field's raw FLD bytes, defaulting to the field's zero
// value encoding if never written. Create writes no composite entry; an
// object gets one once one of the index's fields is written.
func (t *Tx) compositeTuple(id objid.ObjId, cidx *schema.CompositeIndex) ([]byte, error) {
	ownType, err := t.objTypeOf(id)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, fsid := range cidx.FieldStorageIDs {
		f := ownType.FieldByStorageID(fsid)
		raw, ok, err := t.store.Get(keys.Field(id, fsid))
		if err != nil {
			return nil, dberr.Wrap(dberr.KVIO, "", "", err)
		}
		if !ok {
			raw, err = encodeSimple(f.SimpleType, f.EnumValues, defaultSimpleValue(f.SimpleType))
			if err != nil {
				return nil, err
			}
		}
		out = append(out, raw...)
	}
	return out, nil
}

