package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"permadb/internal/codec"
)

// CanonicalBytes renders s as a deterministic byte serialization: sorted
// by storage ID at every level, fixed field order per kind. Two schemas
// produce equal CanonicalBytes iff they carry the same types, fields, and
// composite indexes.
func (s *Schema) CanonicalBytes() []byte {
	types := append([]*ObjType(nil), s.Types...)
	sort.Slice(types, func(i, j int) bool { return types[i].StorageID < types[j].StorageID })

	e := codec.NewEncoder()
	e.Uint(uint64(len(types)))
	for _, t := range types {
		encodeObjType(e, t)
	}
	return e.Bytes()
}

func encodeObjType(e *codec.Encoder, t *ObjType) {
	e.Uint(uint64(t.StorageID)).String(t.Name)

	fields := append([]*Field(nil), t.Fields...)
	sort.Slice(fields, func(i, j int) bool { return fields[i].StorageID < fields[j].StorageID })
	e.Uint(uint64(len(fields)))
	for _, f := range fields {
		encodeField(e, f)
	}

	indexes := append([]*CompositeIndex(nil), t.CompositeIndexes...)
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].StorageID < indexes[j].StorageID })
	e.Uint(uint64(len(indexes)))
	for _, c := range indexes {
		e.Uint(uint64(c.StorageID)).String(c.Name).Bool(c.Unique)
		e.Uint(uint64(len(c.FieldStorageIDs)))
		for _, fid := range c.FieldStorageIDs {
			e.Uint(uint64(fid))
		}
	}
}

func encodeField(e *codec.Encoder, f *Field) {
	e.Uint(uint64(f.StorageID)).String(f.Name).Uint(uint64(f.Kind))

	switch f.Kind {
	case Simple:
		encodeSimpleShape(e, f.SimpleType, f.EnumValues)
		e.Bool(f.Indexed).Bool(f.Unique)
	case Reference:
		encodeReferenceShape(e, f.ReferenceType, f.AllowDeleted, f.OnDelete, f.ForwardDelete)
	case Counter:
		// No further shape: a counter is always a bare i64.
	case Set:
		encodeSubField(e, f.Element)
	case List:
		encodeSubField(e, f.Element)
	case Map:
		encodeSubField(e, f.Key)
		encodeSubField(e, f.Value)
	}
}

func encodeSubField(e *codec.Encoder, sf *SubField) {
	if sf == nil {
		e.Bool(false)
		return
	}
	e.Bool(true)
	e.Uint(uint64(sf.StorageID)).Uint(uint64(sf.Kind))
	switch sf.Kind {
	case Simple:
		encodeSimpleShape(e, sf.SimpleType, sf.EnumValues)
		e.Bool(sf.Indexed)
	case Reference:
		encodeReferenceShape(e, sf.ReferenceType, sf.AllowDeleted, sf.OnDelete, sf.ForwardDelete)
		e.Bool(sf.Indexed)
	}
}

func encodeSimpleShape(e *codec.Encoder, t SimpleType, enumValues []string) {
	e.Uint(uint64(t))
	if t == TypeEnum {
		e.Uint(uint64(len(enumValues)))
		for _, v := range enumValues {
			e.String(v)
		}
	}
}

func encodeReferenceShape(e *codec.Encoder, refType uint32, allowDeleted bool, onDelete OnDelete, forwardDelete bool) {
	e.Uint(uint64(refType)).Bool(allowDeleted).Uint(uint64(onDelete)).Bool(forwardDelete)
}

// ID returns the schema's content-hash identity: the lowercase hex SHA-256
// of its canonical encoding.
func (s *Schema) ID() string {
	sum := sha256.Sum256(s.CanonicalBytes())
	return hex.EncodeToString(sum[:])
}
