package txn

import (
	"permadb/internal/dberr"
	"permadb/internal/keys"
	"permadb/internal/objid"
	"permadb/internal/schema"
	"permadb/internal/validate"
)

// AddSet adds value to fieldStorageID's set on id. Adding a value already
// present is a no-op.
func (t *Tx) AddSet(id objid.ObjId, fieldStorageID uint32, value any) error {
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
	if f.Kind != schema.Set {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a set")
	}
	encoded, err := t.encodeSubFieldValue(f.Element, value)
	if err != nil {
		return err
	}
	key := keys.SetElem(id, fieldStorageID, encoded)
	if _, ok, err := t.store.Get(key); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	} else if ok {
		return nil
	}
	if err := t.store.Put(key, []byte{1}); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if f.Element.Indexed {
		if err := t.index.AddCollectionElement(indexNamespace(fieldStorageID, roleElement), id, encoded); err != nil {
			return err
		}
	}
	t.fireAndEnqueue(validate.Event{Kind: validate.EventSetAdd, ID: id, FieldStorageID: fieldStorageID, NewValueEncoded: encoded}, ownType.StorageID)
	return nil
}

// RemoveSet removes value from fieldStorageID's set on id. Removing an
// absent value is a no-op.
func (t *Tx) RemoveSet(id objid.ObjId, fieldStorageID uint32, value any) error {
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
	if f.Kind != schema.Set {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a set")
	}
	encoded, err := t.encodeSubFieldValue(f.Element, value)
	if err != nil {
		return err
	}
	return t.removeSetElement(id, ownType, f, encoded)
}

func (t *Tx) removeSetElement(id objid.ObjId, ownType *schema.ObjType, f *schema.Field, encoded []byte) error {
	key := keys.SetElem(id, f.StorageID, encoded)
	if _, ok, err := t.store.Get(key); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	} else if !ok {
		return nil
	}
	if err := t.store.Delete(key); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if f.Element.Indexed {
		if err := t.index.RemoveCollectionElement(indexNamespace(f.StorageID, roleElement), id, encoded); err != nil {
			return err
		}
	}
	t.fireAndEnqueue(validate.Event{Kind: validate.EventSetRemove, ID: id, FieldStorageID: f.StorageID, OldValueEncoded: encoded}, ownType.StorageID)
	return nil
}

// IterSet returns fieldStorageID's set elements on id, decoded, in the
// set's own byte-order (not insertion order — sets have none).
func (t *Tx) IterSet(id objid.ObjId, fieldStorageID uint32) ([]any, error) {
	f, err := t.fieldOf(id, fieldStorageID)
	if err != nil {
		return nil, err
	}
	if f.Kind != schema.Set {
		return nil, dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a set")
	}
	raws, err := t.rawSetElements(id, fieldStorageID)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(raws))
	for i, raw := range raws {
		v, err := t.decodeSubFieldValue(f.Element, raw)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// rawSetElements returns the still-encoded elements of fieldStorageID's
// set on id.
func (t *Tx) rawSetElements(id objid.ObjId, fieldStorageID uint32) ([][]byte, error) {
	rng := keys.SetFieldRange(id, fieldStorageID)
	it, err := t.store.Range(rng.Min, rng.Max)
	if err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	defer it.Close()
	prefixLen := len(rng.Min)
	var out [][]byte
	for it.Next() {
		k := it.Key()
		if len(k) < prefixLen {
			continue
		}
		out = append(out, append([]byte(nil), k[prefixLen:]...))
	}
	if err := it.Err(); err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return out, nil
}

func (t *Tx) removeAllSetMatches(owner objid.ObjId, f *schema.Field, target objid.ObjId) error {
	raws, err := t.rawSetElements(owner, f.StorageID)
	if err != nil {
		return err
	}
	ownType, err := t.objTypeOf(owner)
	if err != nil {
		return err
	}
	for _, raw := range raws {
		v, err := t.decodeSubFieldValue(f.Element, raw)
		if err != nil {
			return err
		}
		if id, ok := v.(objid.ObjId); ok && id == target {
			if err := t.removeSetElement(owner, ownType, f, raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetList returns fieldStorageID's list elements on id, decoded, in index
// order.
func (t *Tx) GetList(id objid.ObjId, fieldStorageID uint32) ([]any, error) {
	f, err := t.fieldOf(id, fieldStorageID)
	if err != nil {
		return nil, err
	}
	if f.Kind != schema.List {
		return nil, dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a list")
	}
	_, raws, err := t.rawListElements(id, fieldStorageID)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(raws))
	for i, raw := range raws {
		v, err := t.decodeSubFieldValue(f.Element, raw)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// rawListElements returns fieldStorageID's list indices and still-encoded
// element values on id, both in ascending index order.
func (t *Tx) rawListElements(id objid.ObjId, fieldStorageID uint32) ([]uint32, [][]byte, error) {
	rng := keys.ListFieldRange(id, fieldStorageID)
	it, err := t.store.Range(rng.Min, rng.Max)
	if err != nil {
		return nil, nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	defer it.Close()
	var indices []uint32
	var values [][]byte
	for it.Next() {
		_, _, idx, err := keys.DecodeListElem(it.Key())
		if err != nil {
			return nil, nil, dberr.Wrap(dberr.KVIO, "", "", err)
		}
		indices = append(indices, idx)
		values = append(values, append([]byte(nil), it.Value()...))
	}
	if err := it.Err(); err != nil {
		return nil, nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return indices, values, nil
}

// SetListAt overwrites the element at position i of fieldStorageID's list
// on id. i must already be in range.
func (t *Tx) SetListAt(id objid.ObjId, fieldStorageID uint32, i int, value any) error {
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
	if f.Kind != schema.List {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a list")
	}
	indices, values, err := t.rawListElements(id, fieldStorageID)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(indices) {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "list index %d out of range", i)
	}
	newEncoded, err := t.encodeSubFieldValue(f.Element, value)
	if err != nil {
		return err
	}
	oldEncoded := values[i]
	if bytesEqual(oldEncoded, newEncoded) {
		return nil
	}
	if f.Element.Indexed {
		if err := t.index.RemoveCollectionElement(indexNamespace(fieldStorageID, roleElement), id, oldEncoded); err != nil {
			return err
		}
	}
	if err := t.store.Put(keys.ListElem(id, fieldStorageID, indices[i]), newEncoded); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if f.Element.Indexed {
		if err := t.index.AddCollectionElement(indexNamespace(fieldStorageID, roleElement), id, newEncoded); err != nil {
			return err
		}
	}
	t.fireAndEnqueue(validate.Event{Kind: validate.EventListReplace, ID: id, FieldStorageID: fieldStorageID, ListIndex: uint32(i), OldValueEncoded: oldEncoded, NewValueEncoded: newEncoded}, ownType.StorageID)
	return nil
}

// InsertList inserts value at position i of fieldStorageID's list on id,
// shifting every element at or after i one position later. Rewriting the
// tail under new fixed-width indices keeps list-encoding stable: a list's
// on-disk shape never depends on the history of inserts/removes that
// produced it, only on its current contents.
func (t *Tx) InsertList(id objid.ObjId, fieldStorageID uint32, i int, value any) error {
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
	if f.Kind != schema.List {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a list")
	}
	_, values, err := t.rawListElements(id, fieldStorageID)
	if err != nil {
		return err
	}
	if i < 0 || i > len(values) {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "list index %d out of range", i)
	}
	newEncoded, err := t.encodeSubFieldValue(f.Element, value)
	if err != nil {
		return err
	}

	newValues := make([][]byte, 0, len(values)+1)
	newValues = append(newValues, values[:i]...)
	newValues = append(newValues, newEncoded)
	newValues = append(newValues, values[i:]...)

	if err := t.rewriteList(id, fieldStorageID, values, newValues); err != nil {
		return err
	}
	t.fireAndEnqueue(validate.Event{Kind: validate.EventListAdd, ID: id, FieldStorageID: fieldStorageID, ListIndex: uint32(i), NewValueEncoded: newEncoded}, ownType.StorageID)
	return nil
}

// RemoveListAt removes the element at position i of fieldStorageID's list
// on id, shifting every later element one position earlier.
func (t *Tx) RemoveListAt(id objid.ObjId, fieldStorageID uint32, i int) error {
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
	if f.Kind != schema.List {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a list")
	}
	_, values, err := t.rawListElements(id, fieldStorageID)
	if err != nil {
		return err
	}
	if i < 0 || i >= len(values) {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "list index %d out of range", i)
	}
	removed := values[i]
	newValues := make([][]byte, 0, len(values)-1)
	newValues = append(newValues, values[:i]...)
	newValues = append(newValues, values[i+1:]...)

	if err := t.rewriteList(id, fieldStorageID, values, newValues); err != nil {
		return err
	}
	t.fireAndEnqueue(validate.Event{Kind: validate.EventListRemove, ID: id, FieldStorageID: fieldStorageID, ListIndex: uint32(i), OldValueEncoded: removed}, ownType.StorageID)
	return nil
}

// rewriteList replaces a list field's entire contents under fresh,
// contiguous 0..len(newValues) indices. When the element is indexed, it
// removes the index entry of every old value and adds one for every new
// value, whether or not the value moved or changed.
func (t *Tx) rewriteList(id objid.ObjId, fieldStorageID uint32, oldValues, newValues [][]byte) error {
	f, err := t.fieldOf(id, fieldStorageID)
	if err != nil {
		return err
	}
	rng := keys.ListFieldRange(id, fieldStorageID)
	if err := t.store.DeleteRange(rng.Min, rng.Max); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	for i, v := range newValues {
		if err := t.store.Put(keys.ListElem(id, fieldStorageID, uint32(i)), v); err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
	}
	if !f.Element.Indexed {
		return nil
	}
	for _, v := range oldValues {
		if err := t.index.RemoveCollectionElement(indexNamespace(fieldStorageID, roleElement), id, v); err != nil {
			return err
		}
	}
	for _, v := range newValues {
		if err := t.index.AddCollectionElement(indexNamespace(fieldStorageID, roleElement), id, v); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) removeAllListMatches(owner objid.ObjId, f *schema.Field, target objid.ObjId) error {
	_, values, err := t.rawListElements(owner, f.StorageID)
	if err != nil {
		return err
	}
	kept := make([][]byte, 0, len(values))
	for _, raw := range values {
		v, err := t.decodeSubFieldValue(f.Element, raw)
		if err != nil {
			return err
		}
		if id, ok := v.(objid.ObjId); ok && id == target {
			continue
		}
		kept = append(kept, raw)
	}
	if len(kept) == len(values) {
		return nil
	}
	return t.rewriteList(owner, f.StorageID, values, kept)
}

// MapEntry is one decoded (key, value) pair of a map field, returned by
// IterMap.
type MapEntry struct {
	Key   any
	Value any
}

// PutMap sets fieldStorageID's map entry key -> value on id, overwriting
// any existing value under key.
func (t *Tx) PutMap(id objid.ObjId, fieldStorageID uint32, key, value any) error {
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
	if f.Kind != schema.Map {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a map")
	}
	keyEncoded, err := t.encodeSubFieldValue(f.Key, key)
	if err != nil {
		return err
	}
	valEncoded, err := t.encodeSubFieldValue(f.Value, value)
	if err != nil {
		return err
	}
	mapKey := keys.MapEntry(id, fieldStorageID, keyEncoded)
	oldVal, existed, err := t.store.Get(mapKey)
	if err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if existed && bytesEqual(oldVal, valEncoded) {
		return nil
	}
	if err := t.store.Put(mapKey, valEncoded); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if !existed && f.Key.Indexed {
		if err := t.index.AddCollectionElement(indexNamespace(fieldStorageID, roleKey), id, keyEncoded); err != nil {
			return err
		}
	}
	if f.Value.Indexed {
		if existed {
			if err := t.index.RemoveCollectionElement(indexNamespace(fieldStorageID, roleValue), id, oldVal); err != nil {
				return err
			}
		}
		if err := t.index.AddCollectionElement(indexNamespace(fieldStorageID, roleValue), id, valEncoded); err != nil {
			return err
		}
	}
	var oldPtr []byte
	if existed {
		oldPtr = oldVal
	}
	t.fireAndEnqueue(validate.Event{Kind: validate.EventMapPut, ID: id, FieldStorageID: fieldStorageID, MapKeyEncoded: keyEncoded, OldValueEncoded: oldPtr, NewValueEncoded: valEncoded}, ownType.StorageID)
	return nil
}

// RemoveMapKey removes fieldStorageID's entry for key on id, if present.
func (t *Tx) RemoveMapKey(id objid.ObjId, fieldStorageID uint32, key any) error {
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
	if f.Kind != schema.Map {
		return dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a map")
	}
	keyEncoded, err := t.encodeSubFieldValue(f.Key, key)
	if err != nil {
		return err
	}
	return t.removeMapEntry(id, ownType, f, keyEncoded)
}

func (t *Tx) removeMapEntry(id objid.ObjId, ownType *schema.ObjType, f *schema.Field, keyEncoded []byte) error {
	mapKey := keys.MapEntry(id, f.StorageID, keyEncoded)
	valEncoded, ok, err := t.store.Get(mapKey)
	if err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if !ok {
		return nil
	}
	if err := t.store.Delete(mapKey); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if f.Key.Indexed {
		if err := t.index.RemoveCollectionElement(indexNamespace(f.StorageID, roleKey), id, keyEncoded); err != nil {
			return err
		}
	}
	if f.Value.Indexed {
		if err := t.index.RemoveCollectionElement(indexNamespace(f.StorageID, roleValue), id, valEncoded); err != nil {
			return err
		}
	}
	t.fireAndEnqueue(validate.Event{Kind: validate.EventMapRemove, ID: id, FieldStorageID: f.StorageID, MapKeyEncoded: keyEncoded, OldValueEncoded: valEncoded}, ownType.StorageID)
	return nil
}

// IterMap returns every decoded entry of fieldStorageID's map on id.
func (t *Tx) IterMap(id objid.ObjId, fieldStorageID uint32) ([]MapEntry, error) {
	f, err := t.fieldOf(id, fieldStorageID)
	if err != nil {
		return nil, err
	}
	if f.Kind != schema.Map {
		return nil, dberr.Newf(dberr.InvalidValue, "", f.Name, "field is not a map")
	}
	raws, err := t.rawMapEntries(id, fieldStorageID)
	if err != nil {
		return nil, err
	}
	out := make([]MapEntry, len(raws))
	for i, e := range raws {
		k, err := t.decodeSubFieldValue(f.Key, e.keyRaw)
		if err != nil {
			return nil, err
		}
		v, err := t.decodeSubFieldValue(f.Value, e.valRaw)
		if err != nil {
			return nil, err
		}
		out[i] = MapEntry{Key: k, Value: v}
	}
	return out, nil
}

type rawMapEntry struct {
	keyRaw []byte
	valRaw []byte
}

// rawMapEntries returns the still-encoded (key, value) pairs of
// fieldStorageID's map on id.
func (t *Tx) rawMapEntries(id objid.ObjId, fieldStorageID uint32) ([]rawMapEntry, error) {
	rng := keys.MapFieldRange(id, fieldStorageID)
	it, err := t.store.Range(rng.Min, rng.Max)
	if err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	defer it.Close()
	prefixLen := len(rng.Min)
	var out []rawMapEntry
	for it.Next() {
		k := it.Key()
		if len(k) < prefixLen {
			continue
		}
		out = append(out, rawMapEntry{
			keyRaw: append([]byte(nil), k[prefixLen:]...),
			valRaw: append([]byte(nil), it.Value()...),
		})
	}
	if err := it.Err(); err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return out, nil
}

func (t *Tx) removeAllMapMatches(owner objid.ObjId, f *schema.Field, target objid.ObjId) error {
	entries, err := t.rawMapEntries(owner, f.StorageID)
	if err != nil {
		return err
	}
	ownType, err := t.objTypeOf(owner)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if f.Key.Kind == schema.Reference {
			k, err := t.decodeSubFieldValue(f.Key, e.keyRaw)
			if err != nil {
				return err
			}
			if id, ok := k.(objid.ObjId); ok && id == target {
				if err := t.removeMapEntry(owner, ownType, f, e.keyRaw); err != nil {
					return err
				}
				continue
			}
		}
		if f.Value.Kind == schema.Reference {
			v, err := t.decodeSubFieldValue(f.Value, e.valRaw)
			if err != nil {
				return err
			}
			if id, ok := v.(objid.ObjId); ok && id == target {
				if err := t.removeMapEntry(owner, ownType, f, e.keyRaw); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
