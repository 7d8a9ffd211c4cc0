package txn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/validate"
)

func TestWriteAndReadSimpleString(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	id, err := tx.Create(personType)
	require.NoError(t, err)

	require.NoError(t, tx.WriteSimple(id, personName, "alice"))

	v, err := tx.ReadSimple(id, personName)
	require.NoError(t, err)
	assert.Equal(t, "alice", v)
}

func TestReadSimpleDefaultsWhenAbsent(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	id, err := tx.Create(personType)
	require.NoError(t, err)

	v, err := tx.ReadSimple(id, personAge)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v, "unwritten int field reads as its zero value")

	ref, err := tx.ReadSimple(id, personFriend)
	require.NoError(t, err)
	assert.Nil(t, ref, "unwritten reference field reads as nil")
}

func TestWriteSimpleSameValueIsNoop(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	id, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(id, personName, "alice"))

	var fired bool
	tx.RegisterListener(validate.Filter{AnyKind: true}, func(validate.Event) { fired = true })
	require.NoError(t, tx.WriteSimple(id, personName, "alice"))
	assert.False(t, fired, "writing the already-current value must not fire listeners")
}

func TestWriteSimpleRejectsWrongType(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	id, err := tx.Create(personType)
	require.NoError(t, err)

	err = tx.WriteSimple(id, personAge, "not an int")
	assert.Error(t, err)
}

func TestWriteSimpleReferenceToWrongType(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	person, err := tx.Create(personType)
	require.NoError(t, err)
	team, err := tx.Create(teamType)
	require.NoError(t, err)

	err = tx.WriteSimple(person, personFriend, team)
	assert.Error(t, err, "friend is declared Reference(Person), a Team id must be rejected")
}

func TestWriteSimpleUpdatesUniqueIndex(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	a, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(a, personName, "alice"))

	b, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(b, personName, "alice"), "uniqueness is checked at commit, not on write")
	err = tx.Commit()
	assert.Error(t, err, "name is Unique, two persons cannot both be named alice")
}

func TestCompositeIndexTracksBothFields(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	a, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(a, personName, "bob"))
	require.NoError(t, tx.WriteSimple(a, personAge, int64(30)))

	ids, err := tx.QueryComposite("Person", "name_age", []any{"bob", int64(30)})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, a, ids[0])

	require.NoError(t, tx.WriteSimple(a, personAge, int64(31)))

	ids, err = tx.QueryComposite("Person", "name_age", []any{"bob", int64(30)})
	require.NoError(t, err)
	assert.Empty(t, ids, "stale tuple must no longer resolve")

	ids, err = tx.QueryComposite("Person", "name_age", []any{"bob", int64(31)})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, a, ids[0])
}
