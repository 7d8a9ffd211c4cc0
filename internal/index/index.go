// Package index maintains the simple-field, collection-element, and
// composite indexes as an incremental operation on one KV transaction,
// and answers the range queries built on them. Every mutation is
// expressed as an old/new pair.
package index

import (
	"permadb/internal/codec"
	"permadb/internal/dberr"
	"permadb/internal/keys"
	"permadb/internal/kvstore"
	"permadb/internal/objid"
	"permadb/internal/schema"
)

// Maintainer applies index mutations and serves index queries against one
// open KV transaction.
type Maintainer struct {
	tx kvstore.Tx
}

// New wraps tx for index maintenance and queries.
func New(tx kvstore.Tx) *Maintainer {
	return &Maintainer{tx: tx}
}

// UpdateSimple moves an indexed simple (or reference) field's IDX entry
// from oldEncoded to newEncoded for id. Either may be nil to mean "field
// had/has no entry yet" (e.g. object just created, or about to be
// deleted); oldEncoded == newEncoded is a no-write no-op here too, since
// the rule is simply "remove the old entry, insert the new one".
func (m *Maintainer) UpdateSimple(fieldStorageID uint32, id objid.ObjId, oldEncoded, newEncoded []byte) error {
	if bytesEqual(oldEncoded, newEncoded) {
		return nil
	}
	if oldEncoded != nil {
		if err := m.tx.Delete(keys.Index(fieldStorageID, oldEncoded, id)); err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
	}
	if newEncoded != nil {
		if err := m.tx.Put(keys.Index(fieldStorageID, newEncoded, id), nil); err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
	}
	return nil
}

// AddCollectionElement records one occurrence of an indexed sub-field
// value for a set/list/map-key/map-value element belonging to id. List and
// map indexes permit duplicate (value, id) occurrences — each element
// position gets its own entry via a per-call caller-supplied disambiguator
// is unnecessary because the underlying collection's own storage key
// (SET/LST/MAP) already makes the KV write idempotent per element.
func (m *Maintainer) AddCollectionElement(fieldStorageID uint32, id objid.ObjId, elementEncoded []byte) error {
	if err := m.tx.Put(keys.Index(fieldStorageID, elementEncoded, id), nil); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return nil
}

// RemoveCollectionElement removes one previously-added occurrence.
func (m *Maintainer) RemoveCollectionElement(fieldStorageID uint32, id objid.ObjId, elementEncoded []byte) error {
	if err := m.tx.Delete(keys.Index(fieldStorageID, elementEncoded, id)); err != nil {
		return dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return nil
}

// UpdateComposite moves idx's CIX entry from oldTuple to newTuple for id.
func (m *Maintainer) UpdateComposite(idx *schema.CompositeIndex, id objid.ObjId, oldTuple, newTuple []byte) error {
	if bytesEqual(oldTuple, newTuple) {
		return nil
	}
	if oldTuple != nil {
		if err := m.tx.Delete(keys.Composite(idx.StorageID, oldTuple, id)); err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
	}
	if newTuple != nil {
		if err := m.tx.Put(keys.Composite(idx.StorageID, newTuple, id), nil); err != nil {
			return dberr.Wrap(dberr.KVIO, "", "", err)
		}
	}
	return nil
}

// IndexEntry is one result of a range query: the encoded field value and
// the object owning it.
type IndexEntry struct {
	ValueEncoded []byte
	ID           objid.ObjId
}

// QueryIndex returns every ObjId currently holding valueEncoded for
// fieldStorageID. A reference field's index value is just the target
// ObjId's own encoding, so this also backs reverse-reference lookups.
func (m *Maintainer) QueryIndex(fieldStorageID uint32, valueEncoded []byte) ([]objid.ObjId, error) {
	rng := keys.IndexValuePointRange(fieldStorageID, valueEncoded)
	return m.scanIndexIDs(rng.Min, rng.Max, len(valueEncoded))
}

// QueryIndexRange returns every (value, ObjId) pair for fieldStorageID
// whose value falls in [loEncoded, hiEncoded), in ascending value order.
// valueLen is the fixed encoded width of the field's value type; pass 0
// for variable-width types (strings), whose entries are decoded by
// stripping the trailing fixed-width ObjId instead.
func (m *Maintainer) QueryIndexRange(fieldStorageID uint32, loEncoded, hiEncoded []byte, valueLen int) ([]IndexEntry, error) {
	rng := keys.IndexValueRange(fieldStorageID, loEncoded, hiEncoded)
	return m.scanIndexEntries(rng.Min, rng.Max, fieldStorageID, valueLen)
}

// QueryReverseReference returns every object whose fieldStorageID
// reference field points at targetID. Reference field values are always
// stored (and therefore indexed) with the same presence-prefix byte
// simple fields use, so a non-null reference's index key is
// EncodeValuePrefix ∥ encode(targetID).
func (m *Maintainer) QueryReverseReference(fieldStorageID uint32, targetID objid.ObjId) ([]objid.ObjId, error) {
	encoded := codec.EncodeValuePrefix(nil)
	encoded = objid.Encode(encoded, targetID)
	return m.QueryIndex(fieldStorageID, encoded)
}

// QueryComposite returns every ObjId whose constituent field values
// currently equal tupleEncoded under idx.
func (m *Maintainer) QueryComposite(idx *schema.CompositeIndex, tupleEncoded []byte) ([]objid.ObjId, error) {
	rng := keys.CompositePrefixRange(idx.StorageID, tupleEncoded)
	return m.scanIndexIDs(rng.Min, rng.Max, -1)
}

// QueryCompositeRange returns every ObjId whose tuple falls in
// [loEncoded, hiEncoded) under idx — e.g. a partial-tuple prefix range
// such as "firstName in [A,B)" against (firstName, lastName).
func (m *Maintainer) QueryCompositeRange(idx *schema.CompositeIndex, loEncoded, hiEncoded []byte) ([]objid.ObjId, error) {
	rng := keys.CompositeValueRange(idx.StorageID, loEncoded, hiEncoded)
	return m.scanIndexIDs(rng.Min, rng.Max, -1)
}

// scanIndexIDs collects just the trailing ObjId of every entry in
// [min, max), which is always the key's last objid.EncodedLen bytes
// regardless of the (variable-length) value/tuple portion in between.
func (m *Maintainer) scanIndexIDs(min, max []byte, _ int) ([]objid.ObjId, error) {
	it, err := m.tx.Range(min, max)
	if err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	defer it.Close()

	var ids []objid.ObjId
	for it.Next() {
		k := it.Key()
		if len(k) < objid.EncodedLen {
			continue
		}
		id, _, err := objid.Decode(k[len(k)-objid.EncodedLen:])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := it.Err(); err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return ids, nil
}

func (m *Maintainer) scanIndexEntries(min, max []byte, fieldStorageID uint32, valueLen int) ([]IndexEntry, error) {
	it, err := m.tx.Range(min, max)
	if err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	defer it.Close()

	var out []IndexEntry
	for it.Next() {
		k := it.Key()
		if len(k) < objid.EncodedLen {
			continue
		}
		vLen := valueLen
		if vLen <= 0 {
			vLen = len(k) - objid.EncodedLen - fixedKeyPrefixLen(fieldStorageID)
		}
		valueStart := fixedKeyPrefixLen(fieldStorageID)
		if valueStart+vLen > len(k)-objid.EncodedLen {
			continue
		}
		value := k[valueStart : valueStart+vLen]
		id, _, err := objid.Decode(k[len(k)-objid.EncodedLen:])
		if err != nil {
			return nil, err
		}
		out = append(out, IndexEntry{ValueEncoded: append([]byte(nil), value...), ID: id})
	}
	if err := it.Err(); err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return out, nil
}

// fixedKeyPrefixLen is the byte length of "IDX ∥ encode(field_storage_id)"
// at the front of every entry for fieldStorageID.
func fixedKeyPrefixLen(fieldStorageID uint32) int {
	return len(keys.IndexFieldRange(fieldStorageID).Min)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
