// Package schema implements the immutable schema value: a tree of object
// types, fields, and complex-field sub-fields, each carrying a stable
// storage ID, plus the canonical encoding used to compute a schema's
// content-hash identity and the registry that tracks versions of it
// inside a database.
package schema

import (
	"fmt"

	"permadb/internal/objid"
)

// FieldKind distinguishes the six field shapes a Field can take. SubField
// reuses the same enum, restricted to Simple and Reference.
type FieldKind int

const (
	Simple FieldKind = iota
	Reference
	Counter
	Set
	List
	Map
)

func (k FieldKind) String() string {
	switch k {
	case Simple:
		return "simple"
	case Reference:
		return "reference"
	case Counter:
		return "counter"
	case Set:
		return "set"
	case List:
		return "list"
	case Map:
		return "map"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// SimpleType names the primitive encoding a Simple field or SubField uses.
// Custom host-language types are out of scope for the core: every simple
// value is one of these codec-level shapes.
type SimpleType int

const (
	TypeString SimpleType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeBytes
	TypeEnum
)

func (t SimpleType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBytes:
		return "bytes"
	case TypeEnum:
		return "enum"
	default:
		return fmt.Sprintf("SimpleType(%d)", int(t))
	}
}

// OnDelete is the policy applied to a reference field when its target is
// deleted.
type OnDelete int

const (
	OnDeleteException OnDelete = iota
	OnDeleteUnreference
	OnDeleteDelete
	OnDeleteIgnore
)

func (p OnDelete) String() string {
	switch p {
	case OnDeleteException:
		return "exception"
	case OnDeleteUnreference:
		return "unreference"
	case OnDeleteDelete:
		return "delete"
	case OnDeleteIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("OnDelete(%d)", int(p))
	}
}

// Well-known sub-field storage IDs for complex fields (§4.2: "complex-field
// sub-fields have well-known sub-IDs").
const (
	SubFieldElement uint32 = 1
	SubFieldKey     uint32 = 2
	SubFieldValue   uint32 = 3
)

// SubField describes the element (Set/List) or key/value (Map) of a
// complex field. Its Kind is always Simple or Reference.
type SubField struct {
	StorageID uint32
	Kind      FieldKind

	// Populated when Kind == Simple.
	SimpleType SimpleType
	EnumValues []string

	// Populated when Kind == Reference.
	ReferenceType uint32 // 0 means "any registered type"
	AllowDeleted  bool   // structural validation skips a dangling check
	OnDelete      OnDelete
	ForwardDelete bool

	Indexed bool
}

// Field is one named, storage-ID-addressed member of an ObjType.
type Field struct {
	StorageID uint32
	Name      string
	Kind      FieldKind

	// Simple fields.
	SimpleType SimpleType
	EnumValues []string
	Indexed    bool
	Unique     bool

	// Reference fields.
	ReferenceType uint32
	AllowDeleted  bool
	OnDelete      OnDelete
	ForwardDelete bool

	// Set/List: Element. Map: Key and Value.
	Element *SubField
	Key     *SubField
	Value   *SubField
}

// CompositeIndex declares an index over an ordered tuple of a type's own
// simple fields.
type CompositeIndex struct {
	StorageID       uint32
	Name            string
	FieldStorageIDs []uint32
	Unique          bool
}

// ObjType is one object type: a name, storage ID, and its fields and
// composite indexes.
type ObjType struct {
	StorageID        uint32
	Name             string
	Fields           []*Field
	CompositeIndexes []*CompositeIndex
}

// Field looks up a field by name.
func (t *ObjType) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FieldByStorageID looks up a field by storage ID.
func (t *ObjType) FieldByStorageID(id uint32) *Field {
	for _, f := range t.Fields {
		if f.StorageID == id {
			return f
		}
	}
	return nil
}

// CompositeIndex looks up a composite index by name.
func (t *ObjType) CompositeIndex(name string) *CompositeIndex {
	for _, c := range t.CompositeIndexes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// EncodingEqual reports whether f and other serialize to the same bytes
// for the same logical value — the question migration asks to decide
// whether PolicyRetain is even legal for a field across two schema
// versions. Indexed/Unique/ReferenceType/OnDelete/ForwardDelete never
// affect encoding and are free to change across versions; Kind,
// SimpleType/EnumValues, and sub-field shapes do affect it.
func (f *Field) EncodingEqual(other *Field) bool {
	if f.Kind != other.Kind {
		return false
	}
	switch f.Kind {
	case Simple:
		return f.SimpleType == other.SimpleType && enumValuesEqual(f.EnumValues, other.EnumValues)
	case Reference, Counter:
		return true
	case Set, List:
		return subFieldEncodingEqual(f.Element, other.Element)
	case Map:
		return subFieldEncodingEqual(f.Key, other.Key) && subFieldEncodingEqual(f.Value, other.Value)
	default:
		return false
	}
}

func subFieldEncodingEqual(a, b *SubField) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == Simple {
		return a.SimpleType == b.SimpleType && enumValuesEqual(a.EnumValues, b.EnumValues)
	}
	return true // Reference sub-fields always encode as an ObjId.
}

func enumValuesEqual(a, b []string) bool {
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

// Schema is an immutable snapshot of every object type known to a
// database at one version: a set of object types, each with its own
// fields and composite indexes. Two Schema values are equal iff their
// CanonicalBytes agree.
type Schema struct {
	Types []*ObjType
}

// ObjType looks up a type by name.
func (s *Schema) ObjType(name string) *ObjType {
	for _, t := range s.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// ObjTypeByStorageID looks up a type by storage ID.
func (s *Schema) ObjTypeByStorageID(id uint32) *ObjType {
	for _, t := range s.Types {
		if t.StorageID == id {
			return t
		}
	}
	return nil
}

// UntypedObject is the placeholder value the core returns when a
// reference field's target type has been dropped from the schema that
// registered it but an old object still points at it. It carries enough
// to render the reference without resolving it through a (now absent)
// ObjType.
type UntypedObject struct {
	ID      objid.ObjId
	RawType uint32 // the type storage ID recovered from the ObjId's high bits
}
