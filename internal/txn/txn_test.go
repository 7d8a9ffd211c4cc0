package txn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/kvstore/memkv"
	"permadb/internal/txn"
)

func TestOpenRejectsWhenNoSchemaRegisteredOrSupplied(t *testing.T) {
	store := memkv.New()
	kvtx, err := store.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvtx.Rollback() })

	_, err = txn.Open(kvtx, nil, nil, nil, txn.Options{})
	assert.Error(t, err)
}

func TestCommitPersistsAcrossTransactions(t *testing.T) {
	store := memkv.New()
	kvtx1, err := store.Begin()
	require.NoError(t, err)

	tx1, err := txn.Open(kvtx1, testSchema(), nil, nil, defaultOpts())
	require.NoError(t, err)
	id, err := tx1.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx1.WriteSimple(id, personName, "persisted"))
	require.NoError(t, tx1.Commit())

	kvtx2, err := store.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvtx2.Rollback() })
	tx2, err := txn.Open(kvtx2, nil, nil, nil, defaultOpts())
	require.NoError(t, err)

	v, err := tx2.ReadSimple(id, personName)
	require.NoError(t, err)
	assert.Equal(t, "persisted", v)
}

func TestRollbackDiscardsChanges(t *testing.T) {
	store := memkv.New()
	kvtx1, err := store.Begin()
	require.NoError(t, err)

	tx1, err := txn.Open(kvtx1, testSchema(), nil, nil, defaultOpts())
	require.NoError(t, err)
	id, err := tx1.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx1.Rollback())

	kvtx2, err := store.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvtx2.Rollback() })
	tx2, err := txn.Open(kvtx2, testSchema(), nil, nil, defaultOpts())
	require.NoError(t, err)

	exists, err := tx2.Exists(id)
	require.NoError(t, err)
	assert.False(t, exists, "rolled-back create must not be visible")
}

func TestCommitCallbackRunsBeforeCommit(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	var ran bool
	tx.AddCommitCallback(func() error {
		ran = true
		return nil
	})
	require.NoError(t, tx.Commit())
	assert.True(t, ran)
}

func TestCommitCallbackErrorRollsBackAndAbortsCommit(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	_, err := tx.Create(personType)
	require.NoError(t, err)

	tx.AddCommitCallback(func() error {
		return assert.AnError
	})
	// The underlying KV transaction is rolled back by Commit itself; the
	// fixture's own cleanup Rollback afterward is then a harmless no-op.
	err = tx.Commit()
	assert.Error(t, err)
}

func TestRevalidateEnqueuesUnderManualMode(t *testing.T) {
	opts := defaultOpts()
	opts.ValidationMode = txn.ValidationManual
	tx, _, _, _ := openTx(t, opts)

	a, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(a, personName, "dupe"))

	b, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(b, personName, "dupe"))

	// ValidationManual means WriteSimple never auto-enqueued a or b, so
	// an ordinary Commit would let the uniqueness violation through.
	// Revalidate forces b into the queue despite the manual mode.
	tx.Revalidate(b)
	err = tx.Commit()
	assert.Error(t, err, "explicitly revalidated object must still be checked at commit")
}

func TestValidationDisabledNeverDrainsQueue(t *testing.T) {
	opts := defaultOpts()
	opts.ValidationMode = txn.ValidationDisabled
	tx, _, _, _ := openTx(t, opts)

	a, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(a, personName, "dupe"))

	b, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(b, personName, "dupe"))

	tx.Revalidate(b)
	assert.NoError(t, tx.Commit(), "ValidationDisabled must skip the queue drain entirely, even for explicitly revalidated objects")
}
