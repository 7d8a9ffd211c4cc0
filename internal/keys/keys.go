// Package keys implements the pure (object-ID, field-storage-ID, sub-key)
// -> KV key mapping, and its inverse. Every key begins with a
// single-byte namespace prefix; within a namespace the remaining bytes
// use internal/codec's order-preserving encodings so that ranges scan in
// the order the field's own type naturally sorts.
package keys

import (
	"fmt"

	"permadb/internal/codec"
	"permadb/internal/objid"
)

// Namespace prefixes, one per byte range in the key layout.
const (
	PrefixOBJ byte = 'O'
	PrefixFLD byte = 'F'
	PrefixSET byte = 'S'
	PrefixLST byte = 'L'
	PrefixMAP byte = 'M'
	PrefixIDX byte = 'I'
	PrefixCIX byte = 'C'
	PrefixSCH byte = 'V'
)

// Range is a half-open [Min, Max) key range suitable for a KV backend's
// Range scan.
type Range struct {
	Min []byte
	Max []byte
}

// prefixRange returns the range covering every key starting with prefix:
// [prefix, prefix+1).
func prefixRange(prefix []byte) Range {
	max := make([]byte, len(prefix))
	copy(max, prefix)
	for i := len(max) - 1; i >= 0; i-- {
		if max[i] != 0xFF {
			max[i]++
			return Range{Min: prefix, Max: max}
		}
		max = max[:i]
	}
	// prefix was all 0xFF bytes (never happens for our fixed-byte
	// namespace prefixes): no finite upper bound, caller must special
	// case. Returning a nil Max signals "scan to the end of the
	// keyspace".
	return Range{Min: prefix, Max: nil}
}

// Obj builds the OBJ key for id.
func Obj(id objid.ObjId) []byte {
	return objid.Encode([]byte{PrefixOBJ}, id)
}

// DecodeObj parses an OBJ key back into its ObjId.
func DecodeObj(key []byte) (objid.ObjId, error) {
	if len(key) < 1 || key[0] != PrefixOBJ {
		return objid.Zero, fmt.Errorf("keys: not an OBJ key")
	}
	id, _, err := objid.Decode(key[1:])
	return id, err
}

// ObjRange covers every OBJ key (used by IterAllObjects).
func ObjRange() Range { return prefixRange([]byte{PrefixOBJ}) }

// objPrefix builds "PREFIX + objid", the common prefix of every per-object
// sub-namespace (FLD/SET/LST/MAP).
func objPrefix(prefix byte, id objid.ObjId) []byte {
	return objid.Encode([]byte{prefix}, id)
}

// Field builds the FLD key for a simple/counter field value.
func Field(id objid.ObjId, fieldStorageID uint32) []byte {
	buf := objPrefix(PrefixFLD, id)
	buf, _ = codec.EncodeUint(buf, uint64(fieldStorageID))
	return buf
}

// DecodeField parses a FLD key back into its ObjId and field storage ID.
func DecodeField(key []byte) (objid.ObjId, uint32, error) {
	id, fieldID, err := decodeObjAndField(PrefixFLD, key)
	return id, fieldID, err
}

// FieldRangeForObject covers every FLD entry belonging to id, for bulk
// delete and enumeration.
func FieldRangeForObject(id objid.ObjId) Range {
	return prefixRange(objPrefix(PrefixFLD, id))
}

// SetElem builds the SET key for one element of a set field.
func SetElem(id objid.ObjId, fieldStorageID uint32, encodedElem []byte) []byte {
	return fieldSubKey(PrefixSET, id, fieldStorageID, encodedElem)
}

// SetRangeForObject covers every SET entry belonging to id.
func SetRangeForObject(id objid.ObjId) Range {
	return prefixRange(objPrefix(PrefixSET, id))
}

// SetFieldRange covers every element of one set field on one object.
func SetFieldRange(id objid.ObjId, fieldStorageID uint32) Range {
	return prefixRange(fieldPrefix(PrefixSET, id, fieldStorageID))
}

// ListElem builds the LST key for the element at index within a list
// field. The index uses a fixed 4-byte big-endian encoding (not the
// variable-length uint codec) because list mutation rewrites a contiguous
// run of indices and a fixed width avoids re-deriving variable lengths for
// every shifted entry.
func ListElem(id objid.ObjId, fieldStorageID uint32, index uint32) []byte {
	buf := fieldPrefix(PrefixLST, id, fieldStorageID)
	return append(buf, byte(index>>24), byte(index>>16), byte(index>>8), byte(index))
}

// DecodeListElem parses a LST key back into its ObjId, field storage ID,
// and element index.
func DecodeListElem(key []byte) (objid.ObjId, uint32, uint32, error) {
	id, fieldID, rest, err := decodeFieldSubKeyPrefix(PrefixLST, key)
	if err != nil {
		return objid.Zero, 0, 0, err
	}
	if len(rest) != 4 {
		return objid.Zero, 0, 0, fmt.Errorf("keys: LST key: expected 4-byte index, got %d bytes", len(rest))
	}
	index := uint32(rest[0])<<24 | uint32(rest[1])<<16 | uint32(rest[2])<<8 | uint32(rest[3])
	return id, fieldID, index, nil
}

// ListFieldRange covers every element of one list field on one object.
func ListFieldRange(id objid.ObjId, fieldStorageID uint32) Range {
	return prefixRange(fieldPrefix(PrefixLST, id, fieldStorageID))
}

// MapEntry builds the MAP key for one key of a map field.
func MapEntry(id objid.ObjId, fieldStorageID uint32, encodedKey []byte) []byte {
	return fieldSubKey(PrefixMAP, id, fieldStorageID, encodedKey)
}

// MapRangeForObject covers every MAP entry belonging to id.
func MapRangeForObject(id objid.ObjId) Range {
	return prefixRange(objPrefix(PrefixMAP, id))
}

// MapFieldRange covers every entry of one map field on one object.
func MapFieldRange(id objid.ObjId, fieldStorageID uint32) Range {
	return prefixRange(fieldPrefix(PrefixMAP, id, fieldStorageID))
}

// fieldPrefix builds "PREFIX + objid + field_storage_id".
func fieldPrefix(prefix byte, id objid.ObjId, fieldStorageID uint32) []byte {
	buf := objPrefix(prefix, id)
	buf, _ = codec.EncodeUint(buf, uint64(fieldStorageID))
	return buf
}

// fieldSubKey builds "PREFIX + objid + field_storage_id + encodedSubKey".
func fieldSubKey(prefix byte, id objid.ObjId, fieldStorageID uint32, encodedSubKey []byte) []byte {
	buf := fieldPrefix(prefix, id, fieldStorageID)
	return append(buf, encodedSubKey...)
}

// decodeObjAndField decodes "PREFIX + objid + field_storage_id" with no
// trailing bytes expected (the FLD key shape).
func decodeObjAndField(prefix byte, key []byte) (objid.ObjId, uint32, error) {
	id, fieldID, rest, err := decodeFieldSubKeyPrefix(prefix, key)
	if err != nil {
		return objid.Zero, 0, err
	}
	if len(rest) != 0 {
		return objid.Zero, 0, fmt.Errorf("keys: unexpected trailing bytes after field key")
	}
	return id, fieldID, nil
}

// decodeFieldSubKeyPrefix decodes "PREFIX + objid + field_storage_id" and
// returns the remaining bytes (the sub-key, if any) unparsed.
func decodeFieldSubKeyPrefix(prefix byte, key []byte) (objid.ObjId, uint32, []byte, error) {
	if len(key) < 1 || key[0] != prefix {
		return objid.Zero, 0, nil, fmt.Errorf("keys: key does not start with prefix %q", string(prefix))
	}
	id, n, err := objid.Decode(key[1:])
	if err != nil {
		return objid.Zero, 0, nil, err
	}
	rest := key[1+n:]
	fieldID, m, err := codec.DecodeUint(rest)
	if err != nil {
		return objid.Zero, 0, nil, err
	}
	return id, uint32(fieldID), rest[m:], nil
}

// Index builds the IDX key for one (field, value, object) entry of a
// simple- or reference-field index.
func Index(fieldStorageID uint32, encodedValue []byte, id objid.ObjId) []byte {
	buf := []byte{PrefixIDX}
	buf, _ = codec.EncodeUint(buf, uint64(fieldStorageID))
	buf = append(buf, encodedValue...)
	return objid.Encode(buf, id)
}

// DecodeIndex parses an IDX key back into its field storage ID, the raw
// (still-encoded) value bytes, and the ObjId. The caller decodes the value
// bytes with the field's own decoder, since the index itself is untyped.
func DecodeIndex(key []byte, valueLen int) (fieldStorageID uint32, encodedValue []byte, id objid.ObjId, err error) {
	if len(key) < 1 || key[0] != PrefixIDX {
		return 0, nil, objid.Zero, fmt.Errorf("keys: not an IDX key")
	}
	fid, n, err := codec.DecodeUint(key[1:])
	if err != nil {
		return 0, nil, objid.Zero, err
	}
	rest := key[1+n:]
	if len(rest) < valueLen+objid.EncodedLen {
		return 0, nil, objid.Zero, fmt.Errorf("keys: IDX key too short for declared value length %d", valueLen)
	}
	encodedValue = rest[:valueLen]
	oid, _, err := objid.Decode(rest[valueLen:])
	if err != nil {
		return 0, nil, objid.Zero, err
	}
	return uint32(fid), encodedValue, oid, nil
}

// IndexFieldRange covers every IDX entry for fieldStorageID, across all
// values and objects.
func IndexFieldRange(fieldStorageID uint32) Range {
	buf := []byte{PrefixIDX}
	buf, _ = codec.EncodeUint(buf, uint64(fieldStorageID))
	return prefixRange(buf)
}

// IndexValuePointRange covers the (at most one per object, many if the
// field is a collection element) IDX entries for an exact value.
func IndexValuePointRange(fieldStorageID uint32, encodedValue []byte) Range {
	buf := []byte{PrefixIDX}
	buf, _ = codec.EncodeUint(buf, uint64(fieldStorageID))
	buf = append(buf, encodedValue...)
	return prefixRange(buf)
}

// IndexValueRange covers every IDX entry for fieldStorageID whose value
// falls in [loEncoded, hiEncoded). A nil hiEncoded means "no upper bound".
func IndexValueRange(fieldStorageID uint32, loEncoded, hiEncoded []byte) Range {
	min := []byte{PrefixIDX}
	min, _ = codec.EncodeUint(min, uint64(fieldStorageID))
	min = append(min, loEncoded...)
	if hiEncoded == nil {
		return Range{Min: min, Max: IndexFieldRange(fieldStorageID).Max}
	}
	max := []byte{PrefixIDX}
	max, _ = codec.EncodeUint(max, uint64(fieldStorageID))
	max = append(max, hiEncoded...)
	return Range{Min: min, Max: max}
}

// Composite builds the CIX key for one (index, value-tuple, object) entry.
func Composite(indexStorageID uint32, encodedTuple []byte, id objid.ObjId) []byte {
	buf := []byte{PrefixCIX}
	buf, _ = codec.EncodeUint(buf, uint64(indexStorageID))
	buf = append(buf, encodedTuple...)
	return objid.Encode(buf, id)
}

// CompositeIndexRange covers every CIX entry for indexStorageID.
func CompositeIndexRange(indexStorageID uint32) Range {
	buf := []byte{PrefixCIX}
	buf, _ = codec.EncodeUint(buf, uint64(indexStorageID))
	return prefixRange(buf)
}

// CompositePrefixRange covers every CIX entry for indexStorageID whose
// encoded tuple starts with encodedPrefix. QueryComposite uses it with a
// full encoded tuple for exact-match lookups; range queries over tuples
// use CompositeValueRange.
func CompositePrefixRange(indexStorageID uint32, encodedPrefix []byte) Range {
	buf := []byte{PrefixCIX}
	buf, _ = codec.EncodeUint(buf, uint64(indexStorageID))
	buf = append(buf, encodedPrefix...)
	return prefixRange(buf)
}

// CompositeValueRange covers every CIX entry for indexStorageID whose
// encoded tuple falls in [loEncoded, hiEncoded).
func CompositeValueRange(indexStorageID uint32, loEncoded, hiEncoded []byte) Range {
	min := []byte{PrefixCIX}
	min, _ = codec.EncodeUint(min, uint64(indexStorageID))
	min = append(min, loEncoded...)
	if hiEncoded == nil {
		return Range{Min: min, Max: CompositeIndexRange(indexStorageID).Max}
	}
	max := []byte{PrefixCIX}
	max, _ = codec.EncodeUint(max, uint64(indexStorageID))
	max = append(max, hiEncoded...)
	return Range{Min: min, Max: max}
}

// Schema builds the SCH key for a registered schema version number.
func Schema(version uint64) []byte {
	buf := []byte{PrefixSCH}
	buf, _ = codec.EncodeUint(buf, version)
	return buf
}

// DecodeSchema parses a SCH key back into its version number.
func DecodeSchema(key []byte) (uint64, error) {
	if len(key) < 1 || key[0] != PrefixSCH {
		return 0, fmt.Errorf("keys: not a SCH key")
	}
	v, _, err := codec.DecodeUint(key[1:])
	return v, err
}

// SchemaRange covers every registered schema version record.
func SchemaRange() Range { return prefixRange([]byte{PrefixSCH}) }

// SchemaHighestVersionKey is the dedicated key tracking the maximum
// assigned schema version number, per §4.2.
func SchemaHighestVersionKey() []byte { return []byte{PrefixSCH, 0xFF, 'h', 'i'} }
