package schema_test

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/schema"
)

// memKV is a minimal sorted-map implementation of schema.KV/schema.KVIterator,
// enough to exercise Registry without depending on internal/kvstore.
type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

func (m *memKV) Get(key []byte) ([]byte, bool, error) {
	v, ok := m.data[string(key)]
	return v, ok, nil
}

func (m *memKV) Put(key, value []byte) error {
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Range(min, max []byte) (schema.KVIterator, error) {
	var keysInRange []string
	for k := range m.data {
		kb := []byte(k)
		if bytes.Compare(kb, min) < 0 {
			continue
		}
		if max != nil && bytes.Compare(kb, max) >= 0 {
			continue
		}
		keysInRange = append(keysInRange, k)
	}
	sort.Strings(keysInRange)
	return &memIter{keys: keysInRange, data: m.data, idx: -1}, nil
}

type memIter struct {
	keys []string
	data map[string][]byte
	idx  int
}

func (it *memIter) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}
func (it *memIter) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *memIter) Value() []byte { return it.data[it.keys[it.idx]] }
func (it *memIter) Err() error    { return nil }
func (it *memIter) Close() error  { return nil }

func TestOpenTransactionRegistersFirstSchema(t *testing.T) {
	kv := newMemKV()
	r := schema.NewRegistry(kv)
	s := personSchema(true)

	v, err := r.OpenTransaction(s, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	got, ok, err := r.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.ID(), got.ID())
}

func TestOpenTransactionRebindsToExistingVersion(t *testing.T) {
	kv := newMemKV()
	r := schema.NewRegistry(kv)
	s := personSchema(true)

	v1, err := r.OpenTransaction(s, true)
	require.NoError(t, err)
	v2, err := r.OpenTransaction(s, false)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestOpenTransactionFailsWithoutAllowNew(t *testing.T) {
	kv := newMemKV()
	r := schema.NewRegistry(kv)
	_, err := r.OpenTransaction(personSchema(true), false)
	assert.Error(t, err)
}

func TestOpenTransactionAssignsMonotonicVersions(t *testing.T) {
	kv := newMemKV()
	r := schema.NewRegistry(kv)
	v1, err := r.OpenTransaction(personSchema(true), true)
	require.NoError(t, err)

	incompatible := personSchema(true)
	incompatible.Types[0].Fields[1].Kind = schema.Reference
	incompatible.Types[0].Fields[1].SimpleType = 0
	_, err = r.OpenTransaction(incompatible, true)
	assert.Error(t, err, "incompatible schema must be rejected even with allow_new_schema")

	compatible := personSchema(false)
	v2, err := r.OpenTransaction(compatible, true)
	require.NoError(t, err)
	assert.Equal(t, v1+1, v2)

	versions, err := r.IterVersions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{v1, v2}, versions)
}
