package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/codec"
	"permadb/internal/index"
	"permadb/internal/kvstore"
	"permadb/internal/kvstore/memkv"
	"permadb/internal/objid"
	"permadb/internal/schema"
)

func newTx(t *testing.T) kvstore.Tx {
	t.Helper()
	store := memkv.New()
	tx, err := store.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return tx
}

func encString(s string) []byte {
	buf := codec.EncodeValuePrefix(nil)
	return codec.EncodeString(buf, s)
}

func TestUpdateSimpleMovesIndexEntry(t *testing.T) {
	tx := newTx(t)
	m := index.New(tx)

	id, err := objid.New(1)
	require.NoError(t, err)

	require.NoError(t, m.UpdateSimple(10, id, nil, encString("alice")))
	got, err := m.QueryIndex(10, encString("alice"))
	require.NoError(t, err)
	assert.Equal(t, []objid.ObjId{id}, got)

	require.NoError(t, m.UpdateSimple(10, id, encString("alice"), encString("alicia")))
	got, err = m.QueryIndex(10, encString("alice"))
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = m.QueryIndex(10, encString("alicia"))
	require.NoError(t, err)
	assert.Equal(t, []objid.ObjId{id}, got)
}

func TestUpdateSimpleSameValueIsNoop(t *testing.T) {
	tx := newTx(t)
	m := index.New(tx)
	id, err := objid.New(1)
	require.NoError(t, err)

	v := encString("same")
	require.NoError(t, m.UpdateSimple(10, id, nil, v))
	require.NoError(t, m.UpdateSimple(10, id, v, v))
	got, err := m.QueryIndex(10, v)
	require.NoError(t, err)
	assert.Equal(t, []objid.ObjId{id}, got)
}

func TestCollectionElementIndexAllowsDuplicateOwners(t *testing.T) {
	tx := newTx(t)
	m := index.New(tx)
	a, err := objid.New(1)
	require.NoError(t, err)
	b, err := objid.New(1)
	require.NoError(t, err)

	v := encString("red")
	require.NoError(t, m.AddCollectionElement(30, a, v))
	require.NoError(t, m.AddCollectionElement(30, b, v))

	got, err := m.QueryIndex(30, v)
	require.NoError(t, err)
	assert.ElementsMatch(t, []objid.ObjId{a, b}, got)

	require.NoError(t, m.RemoveCollectionElement(30, a, v))
	got, err = m.QueryIndex(30, v)
	require.NoError(t, err)
	assert.Equal(t, []objid.ObjId{b}, got)
}

func TestCompositeIndexQuery(t *testing.T) {
	tx := newTx(t)
	m := index.New(tx)
	idx := &schema.CompositeIndex{StorageID: 5, Name: "name_idx", FieldStorageIDs: []uint32{10, 11}}

	a, err := objid.New(1)
	require.NoError(t, err)
	tuple := codec.Concat(encString("Ada"), encString("Lovelace"))
	require.NoError(t, m.UpdateComposite(idx, a, nil, tuple))

	got, err := m.QueryComposite(idx, tuple)
	require.NoError(t, err)
	assert.Equal(t, []objid.ObjId{a}, got)

	newTuple := codec.Concat(encString("Ada"), encString("King"))
	require.NoError(t, m.UpdateComposite(idx, a, tuple, newTuple))
	got, err = m.QueryComposite(idx, tuple)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryReverseReference(t *testing.T) {
	tx := newTx(t)
	m := index.New(tx)
	owner, err := objid.New(1)
	require.NoError(t, err)
	pet, err := objid.New(2)
	require.NoError(t, err)

	ownerEncoded := codec.EncodeValuePrefix(nil)
	ownerEncoded = objid.Encode(ownerEncoded, owner)
	require.NoError(t, m.UpdateSimple(20, pet, nil, ownerEncoded))

	got, err := m.QueryReverseReference(20, owner)
	require.NoError(t, err)
	assert.Equal(t, []objid.ObjId{pet}, got)
}
