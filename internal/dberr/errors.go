// Package dberr defines the tagged error taxonomy surfaced by every layer
// of permadb. Errors are plain values, not panics: every operation that can
// fail returns an *Error whose Kind a caller can switch on.
package dberr

import "fmt"

// Kind identifies one of the error categories from the core's taxonomy.
type Kind string

const (
	// DeletedObject is returned when an operation targets an ObjId that
	// has no OBJ record (never created, or already deleted).
	DeletedObject Kind = "deleted-object"
	// TypeNotInSchema is returned when a type storage ID is absent from
	// the transaction's bound schema version.
	TypeNotInSchema Kind = "type-not-in-schema"
	// SchemaMismatch is returned when a field's stored encoding differs
	// from its current definition and no conversion policy applies.
	SchemaMismatch Kind = "schema-mismatch"
	// InvalidValue is returned when a value fails a field's codec or
	// semantic validation.
	InvalidValue Kind = "invalid-value"
	// ReferencedObject is returned when a delete is aborted because a
	// reference field with on_delete=EXCEPTION still points at the
	// target.
	ReferencedObject Kind = "referenced-object"
	// DanglingReference is returned when a reference field that
	// disallows dangling references would end up pointing at a
	// nonexistent object.
	DanglingReference Kind = "dangling-reference"
	// UniqueViolation is returned when commit-time validation finds a
	// duplicate value in a field or composite index marked unique.
	UniqueViolation Kind = "unique-violation"
	// NotUnique is returned when a uniqueness check itself cannot be
	// evaluated unambiguously (e.g. the index is missing entries).
	NotUnique Kind = "not-unique"
	// InvalidSchema is returned when schema canonicalization rejects an
	// ill-formed schema at registration time.
	InvalidSchema Kind = "invalid-schema"
	// KVConflict is returned when the underlying KV backend reports a
	// write-write conflict. The caller may retry the whole transaction.
	KVConflict Kind = "kv-conflict"
	// KVIO is returned when the underlying KV backend fails on I/O. The
	// transaction is no longer usable.
	KVIO Kind = "kv-io"
	// ValidationFailed is returned when the validation queue drains with
	// one or more unresolved constraint violations.
	ValidationFailed Kind = "validation-error"
)

// Error is the concrete error value every permadb operation returns on
// failure. Entity/Name/Field describe what was being operated on, mirroring
// the shape schema-level validation errors already use, so the same
// Error() rendering works for both layers.
type Error struct {
	Kind    Kind
	Entity  string
	Name    string
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	loc := e.Entity
	if e.Name != "" {
		loc = fmt.Sprintf("%s %q", loc, e.Name)
	}
	if e.Field != "" {
		loc = fmt.Sprintf("%s field %q", loc, e.Field)
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, loc, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, dberr.KindDeletedObject()) style checks by
// comparing Kind; target must be a *Error whose Kind is set and whose
// Entity, Name and Field are empty (the sentinel-construction convention
// used by the Kind* helpers below). Message and Cause are not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Entity == "" && t.Name == "" && t.Field == ""
}

// New builds an *Error of the given kind describing entity/name.
func New(kind Kind, entity, name, message string) *Error {
	return &Error{Kind: kind, Entity: entity, Name: name, Message: message}
}

// Newf is New with a formatted message.
func Newf(kind Kind, entity, name, format string, args ...any) *Error {
	return New(kind, entity, name, fmt.Sprintf(format, args...))
}

// Wrap builds an *Error of the given kind that wraps cause.
func Wrap(kind Kind, entity, name string, cause error) *Error {
	return &Error{Kind: kind, Entity: entity, Name: name, Cause: cause}
}

// WithField returns a copy of e with Field set, for the common case of
// attaching which field an error concerns after the fact.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// sentinel returns a bare Kind-only *Error suitable for errors.Is checks,
// e.g. `errors.Is(err, dberr.KindDeletedObject())`.
func sentinel(kind Kind) *Error { return &Error{Kind: kind} }

// KindDeletedObject, etc. are errors.Is-comparable sentinels for each Kind.
func KindDeletedObject() *Error     { return sentinel(DeletedObject) }
func KindTypeNotInSchema() *Error   { return sentinel(TypeNotInSchema) }
func KindSchemaMismatch() *Error    { return sentinel(SchemaMismatch) }
func KindInvalidValue() *Error      { return sentinel(InvalidValue) }
func KindReferencedObject() *Error  { return sentinel(ReferencedObject) }
func KindDanglingReference() *Error { return sentinel(DanglingReference) }
func KindUniqueViolation() *Error   { return sentinel(UniqueViolation) }
func KindNotUnique() *Error         { return sentinel(NotUnique) }
func KindInvalidSchema() *Error     { return sentinel(InvalidSchema) }
func KindKVConflict() *Error        { return sentinel(KVConflict) }
func KindKVIO() *Error              { return sentinel(KVIO) }
func KindValidationFailed() *Error  { return sentinel(ValidationFailed) }
