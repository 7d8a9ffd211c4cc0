// Package kvstore defines the abstract KV transaction contract the core
// depends on and a pluggable-backend registry: a backend registers a
// constructor under a name, and callers open a store by that name
// without depending on the concrete package.
package kvstore

import (
	"fmt"
	"sync"

	"permadb/internal/schema"
)

// Iterator walks a key range: in ascending key order when returned by
// Range, in descending order when returned by RangeReverse. It is a direct alias
// of schema.KVIterator so that any kvstore.Tx also satisfies
// schema.KV/schema.KVIterator without an adapter — the schema registry
// is itself just a specialized KV consumer.
type Iterator = schema.KVIterator

// Tx is one KV transaction: get/put/delete/range plus commit/rollback,
// plus AtomicAdd as an optional capability. A backend that cannot
// support it returns a dberr.KVIO-wrapped "unsupported" error rather
// than omitting the method, so the core can treat every Tx uniformly.
type Tx interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	DeleteRange(min, max []byte) error
	Range(min, max []byte) (Iterator, error)
	RangeReverse(min, max []byte) (Iterator, error)

	// AtomicAdd adds delta to the signed 64-bit counter stored at key
	// (as its fixed 8-byte big-endian-sign-flipped codec.EncodeInt
	// encoding) and returns the resulting value. Backends without a
	// native atomic primitive fall back to read-modify-write under
	// whatever isolation their own transaction provides (documented per
	// backend).
	AtomicAdd(key []byte, delta int64) (int64, error)

	Commit() error
	Rollback() error
}

// Store opens transactions against one underlying KV backend.
type Store interface {
	Begin() (Tx, error)
	Close() error
}

// Opener constructs a Store from a backend-specific DSN/connection
// string.
type Opener func(dsn string) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Opener{}
)

// RegisterBackend registers opener under name. Backends call this from
// their own init function so callers can select one by name without
// importing its package directly.
func RegisterBackend(name string, opener Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = opener
}

// Open looks up the backend registered under name and opens dsn against
// it.
func Open(name, dsn string) (Store, error) {
	registryMu.RLock()
	opener, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("kvstore: backend %q is not registered", name)
	}
	return opener(dsn)
}
