// Package txn implements the transaction core: one open transaction
// wraps a single kvstore.Tx and a bound schema version, exposing object
// CRUD, field read/write, collection mutators, index queries, schema
// migration, and listener dispatch, all backed by internal/index for
// index bookkeeping and internal/validate for the commit-time
// validation queue. An Options struct controls its behavior; it is
// itself a stateful session object wrapping one connection/transaction
// whose operations fail closed rather than partially applying.
package txn

import "permadb/internal/migrate"

// ValidationMode controls whether a mutation enqueues its object for
// commit-time validation.
type ValidationMode int

const (
	// ValidationAutomatic enqueues the owning object on every field
	// write, collection mutation, and schema migration.
	ValidationAutomatic ValidationMode = iota
	// ValidationManual only enqueues objects via an explicit Revalidate
	// call.
	ValidationManual
	// ValidationDisabled never enqueues objects; Commit never drains the
	// queue.
	ValidationDisabled
)

// Options configures one transaction's behavior: a plain struct of
// independent toggles rather than functional options, passed once at
// construction.
type Options struct {
	// AllowNewSchema permits registering Desired as a new schema version
	// if it isn't already known. Ignored if Desired is nil.
	AllowNewSchema bool
	// SchemaVersion explicitly selects which registered version to bind
	// to; 0 means "the highest registered version". Ignored if Desired
	// is non-nil (Desired's own resolved version wins).
	SchemaVersion uint64
	// ValidationMode selects when field writes enqueue their object.
	ValidationMode ValidationMode
	// UpgradeConversionDefault is the fallback per-field conversion
	// policy MigrateSchema applies when no finer-grained override
	// exists.
	UpgradeConversionDefault migrate.ConversionPolicy
	// ReadOnly rejects every mutating operation with dberr.InvalidValue.
	ReadOnly bool
}
