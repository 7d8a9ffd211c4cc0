// Package validate implements listener dispatch and a validation queue:
// typed change events fired synchronously on every mutation, and a
// per-transaction queue of objects awaiting
// structural/uniqueness/user-defined validation at commit.
package validate

import "permadb/internal/objid"

// EventKind names one of the kinds a listener can subscribe to.
type EventKind int

const (
	EventCreate EventKind = iota
	EventDelete
	EventSimpleChange
	EventCounterAdjust
	EventSetAdd
	EventSetRemove
	EventListAdd
	EventListRemove
	EventListReplace
	EventMapPut
	EventMapRemove
	EventMapReplace
	EventSchemaChange
)

func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventDelete:
		return "delete"
	case EventSimpleChange:
		return "simple-change"
	case EventCounterAdjust:
		return "counter-adjust"
	case EventSetAdd:
		return "set-add"
	case EventSetRemove:
		return "set-remove"
	case EventListAdd:
		return "list-add"
	case EventListRemove:
		return "list-remove"
	case EventListReplace:
		return "list-replace"
	case EventMapPut:
		return "map-put"
	case EventMapRemove:
		return "map-remove"
	case EventMapReplace:
		return "map-replace"
	case EventSchemaChange:
		return "schema-change"
	default:
		return "unknown"
	}
}

// Event carries the identity of the changed object, the field's storage
// ID (0 for object-level events: create, delete, schema-change), and
// old/new encoded values or a delta, per what Kind needs.
type Event struct {
	Kind           EventKind
	ID             objid.ObjId
	FieldStorageID uint32

	OldValueEncoded []byte
	NewValueEncoded []byte

	// ListIndex is populated for list-add/list-remove/list-replace.
	ListIndex uint32
	// MapKeyEncoded is populated for map-put/map-remove/map-replace.
	MapKeyEncoded []byte
	// Delta is populated for counter-adjust.
	Delta int64

	// OldSchemaVersion/NewSchemaVersion are populated for schema-change.
	OldSchemaVersion uint64
	NewSchemaVersion uint64
}

// Handler receives dispatched events. It runs synchronously on the
// mutating goroutine and may itself perform further mutations under the
// same transaction; recursion is bounded by application logic, not this
// package.
type Handler func(Event)

// Filter narrows which events a Handler receives. Zero value in
// TypeStorageID or FieldStorageID means "any"; AnyKind means "every event
// kind", overriding Kind.
type Filter struct {
	TypeStorageID  uint32
	FieldStorageID uint32
	Kind           EventKind
	AnyKind        bool
}

func (f Filter) matches(typeStorageID uint32, ev Event) bool {
	if f.TypeStorageID != 0 && f.TypeStorageID != typeStorageID {
		return false
	}
	if f.FieldStorageID != 0 && f.FieldStorageID != ev.FieldStorageID {
		return false
	}
	if !f.AnyKind && f.Kind != ev.Kind {
		return false
	}
	return true
}
