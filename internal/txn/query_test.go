package txn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryIndexRange(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	a, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(a, personName, "amy"))
	b, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(b, personName, "zack"))

	entries, err := tx.QueryIndexRange("Person", "name", "a", "m")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, a, entries[0].ID)
}

func TestQueryReverseReference(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	captain, err := tx.Create(personType)
	require.NoError(t, err)
	team, err := tx.Create(teamType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(team, teamCaptain, captain))

	referrers, err := tx.QueryReverseReference("Team", "captain", captain)
	require.NoError(t, err)
	require.Len(t, referrers, 1)
	assert.Equal(t, team, referrers[0])
}

func TestQueryCompositeRange(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	a, err := tx.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx.WriteSimple(a, personName, "m"))
	require.NoError(t, tx.WriteSimple(a, personAge, int64(20)))

	ids, err := tx.QueryCompositeRange("Person", "name_age", []any{"a", int64(0)}, []any{"z", int64(100)})
	require.NoError(t, err)
	assert.Contains(t, ids, a)
}

func TestQueryIndexUnknownFieldErrors(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	_, err := tx.QueryIndex("Person", "nosuchfield", "x")
	assert.Error(t, err)
}
