// Package memkv is an in-process KV backend over a sorted map, guarded by
// a single mutex. It is the reference backend for tests and for
// single-process deployments: every operation is immediately consistent,
// AtomicAdd is a real atomic read-modify-write under the store's lock, and
// there is no I/O to fail.
package memkv

import (
	"bytes"
	"sort"
	"sync"

	"permadb/internal/codec"
	"permadb/internal/dberr"
	"permadb/internal/kvstore"
)

func init() {
	kvstore.RegisterBackend("memkv", func(dsn string) (kvstore.Store, error) {
		return New(), nil
	})
}

// Store is an in-process, mutex-guarded sorted map. dsn passed to the
// registered opener is ignored: memkv has no external connection to make.
type Store struct {
	mu   sync.Mutex
	data map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: map[string][]byte{}}
}

// Begin starts a transaction by taking the store's only mutex and
// accumulating mutations in a local overlay; nothing reaches the
// underlying map until Commit, so Rollback is simply discarding the
// overlay.
func (s *Store) Begin() (kvstore.Tx, error) {
	s.mu.Lock()
	return &tx{
		store:      s,
		overlayPut: map[string][]byte{},
		overlayDel: map[string]bool{},
	}, nil
}

// Close is a no-op: memkv owns no external resource.
func (s *Store) Close() error { return nil }

type tx struct {
	store      *Store
	overlayPut map[string][]byte
	overlayDel map[string]bool
	done       bool
}

func (t *tx) checkOpen() error {
	if t.done {
		return dberr.New(dberr.KVIO, "", "", "transaction already committed or rolled back")
	}
	return nil
}

func (t *tx) Get(key []byte) ([]byte, bool, error) {
	if err := t.checkOpen(); err != nil {
		return nil, false, err
	}
	k := string(key)
	if t.overlayDel[k] {
		return nil, false, nil
	}
	if v, ok := t.overlayPut[k]; ok {
		return append([]byte(nil), v...), true, nil
	}
	if v, ok := t.store.data[k]; ok {
		return append([]byte(nil), v...), true, nil
	}
	return nil, false, nil
}

func (t *tx) Put(key, value []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	k := string(key)
	delete(t.overlayDel, k)
	t.overlayPut[k] = append([]byte(nil), value...)
	return nil
}

func (t *tx) Delete(key []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	k := string(key)
	delete(t.overlayPut, k)
	t.overlayDel[k] = true
	return nil
}

func (t *tx) DeleteRange(min, max []byte) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	for _, k := range t.keysInRange(min, max) {
		t.overlayDel[k] = true
		delete(t.overlayPut, k)
	}
	return nil
}

// keysInRange returns the sorted, deduplicated set of keys visible in
// [min, max) after merging the overlay over the store's committed data.
func (t *tx) keysInRange(min, max []byte) []string {
	seen := make(map[string]bool, len(t.store.data)+len(t.overlayPut))
	var keys []string
	add := func(k string) {
		if seen[k] || t.overlayDel[k] {
			return
		}
		seen[k] = true
		kb := []byte(k)
		if bytes.Compare(kb, min) < 0 {
			return
		}
		if max != nil && bytes.Compare(kb, max) >= 0 {
			return
		}
		keys = append(keys, k)
	}
	for k := range t.overlayPut {
		add(k)
	}
	for k := range t.store.data {
		add(k)
	}
	sort.Strings(keys)
	return keys
}

func (t *tx) valueFor(key string) []byte {
	if v, ok := t.overlayPut[key]; ok {
		return v
	}
	return t.store.data[key]
}

func (t *tx) Range(min, max []byte) (kvstore.Iterator, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	return &iterator{tx: t, keys: t.keysInRange(min, max), idx: -1}, nil
}

func (t *tx) RangeReverse(min, max []byte) (kvstore.Iterator, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	keys := t.keysInRange(min, max)
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return &iterator{tx: t, keys: keys, idx: -1}, nil
}

// AtomicAdd reads, adds, and writes back through the transaction's own
// overlay. It is "atomic" in the sense required here: the store's mutex
// is held for the transaction's whole lifetime, so no concurrent
// transaction can interleave with this read-modify-write.
func (t *tx) AtomicAdd(key []byte, delta int64) (int64, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	raw, ok, err := t.Get(key)
	if err != nil {
		return 0, err
	}
	var cur int64
	if ok {
		v, _, err := codec.DecodeInt(raw)
		if err != nil {
			return 0, dberr.Wrap(dberr.KVIO, "", "", err)
		}
		cur = v
	}
	next := cur + delta
	if err := t.Put(key, codec.EncodeInt(nil, next)); err != nil {
		return 0, err
	}
	return next, nil
}

func (t *tx) Commit() error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	for k := range t.overlayDel {
		delete(t.store.data, k)
	}
	for k, v := range t.overlayPut {
		t.store.data[k] = v
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

type iterator struct {
	tx   *tx
	keys []string
	idx  int
}

func (it *iterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

func (it *iterator) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *iterator) Value() []byte { return it.tx.valueFor(it.keys[it.idx]) }
func (it *iterator) Err() error    { return nil }
func (it *iterator) Close() error  { return nil }
