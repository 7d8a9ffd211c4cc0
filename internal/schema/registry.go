package schema

import (
	"permadb/internal/codec"
	"permadb/internal/dberr"
	"permadb/internal/keys"
)

// KV is the slice of the KV transaction contract (internal/kvstore.Tx)
// that the registry needs. It is declared here, rather than imported from
// internal/kvstore, so that internal/schema stays a leaf package with no
// dependency on the storage layer; any type satisfying this interface
// (kvstore.Tx does) can back a Registry.
type KV interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Range(min, max []byte) (KVIterator, error)
}

// KVIterator walks a key range in ascending key order.
type KVIterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

// Registry is the durable record of every schema version a database has
// ever registered, stored under the SCH key range. Registration is
// additive: OpenTransaction never mutates a previously written version
// record.
type Registry struct {
	kv KV
}

// NewRegistry wraps kv as a schema registry.
func NewRegistry(kv KV) *Registry {
	return &Registry{kv: kv}
}

// Get returns the schema registered at version, or (nil, false, nil) if no
// such version exists.
func (r *Registry) Get(version uint64) (*Schema, bool, error) {
	raw, ok, err := r.kv.Get(keys.Schema(version))
	if err != nil {
		return nil, false, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if !ok {
		return nil, false, nil
	}
	s, err := Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

// IterVersions returns every registered version number in ascending
// order.
func (r *Registry) IterVersions() ([]uint64, error) {
	rng := keys.SchemaRange()
	it, err := r.kv.Range(rng.Min, rng.Max)
	if err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	defer it.Close()

	var out []uint64
	for it.Next() {
		v, err := keys.DecodeSchema(it.Key())
		if err != nil {
			continue // the highest-version marker key lives in the same range; skip non-version entries
		}
		out = append(out, v)
	}
	if err := it.Err(); err != nil {
		return nil, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return out, nil
}

// HighestVersion returns the largest registered version number, or 0 if
// no schema has ever been registered. Exposed for callers (such as
// internal/txn's Options.SchemaVersion == 0 convention) that want to
// bind to "whatever is newest" without supplying a desired schema.
func (r *Registry) HighestVersion() (uint64, error) {
	return r.highestVersion()
}

// highestVersion reads the dedicated "highest assigned version" marker,
// defaulting to 0 (no version registered yet).
func (r *Registry) highestVersion() (uint64, error) {
	raw, ok, err := r.kv.Get(keys.SchemaHighestVersionKey())
	if err != nil {
		return 0, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	if !ok {
		return 0, nil
	}
	v, _, err := codec.DecodeUint(raw)
	if err != nil {
		return 0, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return v, nil
}

// findVersion returns the version number already registered for
// schemaID, if any.
func (r *Registry) findVersion(schemaID string) (uint64, bool, error) {
	versions, err := r.IterVersions()
	if err != nil {
		return 0, false, err
	}
	for _, v := range versions {
		s, ok, err := r.Get(v)
		if err != nil {
			return 0, false, err
		}
		if ok && s.ID() == schemaID {
			return v, true, nil
		}
	}
	return 0, false, nil
}

// OpenTransaction implements the bind-to-a-version operation: look up
// desired's canonical ID among registered versions; if present,
// return its version number; else, if allowNew, assign the next version
// number, validate compatibility against every existing version, register
// it, and return the new number; else fail with *dberr.Error of kind
// SchemaMismatch.
func (r *Registry) OpenTransaction(desired *Schema, allowNew bool) (uint64, error) {
	if err := desired.Validate(); err != nil {
		return 0, err
	}
	id := desired.ID()
	if v, ok, err := r.findVersion(id); err != nil {
		return 0, err
	} else if ok {
		return v, nil
	}
	if !allowNew {
		return 0, dberr.New(dberr.SchemaMismatch, "", "", "schema not registered and allow_new_schema is false")
	}

	versions, err := r.IterVersions()
	if err != nil {
		return 0, err
	}
	for _, v := range versions {
		existing, ok, err := r.Get(v)
		if err != nil {
			return 0, err
		}
		if ok {
			if err := desired.CompatibleWith(existing); err != nil {
				return 0, err
			}
		}
	}

	highest, err := r.highestVersion()
	if err != nil {
		return 0, err
	}
	next := highest + 1

	if err := r.kv.Put(keys.Schema(next), desired.CanonicalBytes()); err != nil {
		return 0, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	marker, encErr := codec.EncodeUint(nil, next)
	if encErr != nil {
		return 0, dberr.Wrap(dberr.InvalidSchema, "", "", encErr)
	}
	if err := r.kv.Put(keys.SchemaHighestVersionKey(), marker); err != nil {
		return 0, dberr.Wrap(dberr.KVIO, "", "", err)
	}
	return next, nil
}
