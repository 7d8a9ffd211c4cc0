package txn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCounterDefaultsToZero(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	id, err := tx.Create(personType)
	require.NoError(t, err)

	v, err := tx.ReadCounter(id, personBalance)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestAdjustCounterAccumulates(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	id, err := tx.Create(personType)
	require.NoError(t, err)

	v, err := tx.AdjustCounter(id, personBalance, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = tx.AdjustCounter(id, personBalance, -2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	read, err := tx.ReadCounter(id, personBalance)
	require.NoError(t, err)
	assert.Equal(t, int64(3), read)
}

func TestAdjustCounterRejectsWrongFieldKind(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	id, err := tx.Create(personType)
	require.NoError(t, err)

	_, err = tx.AdjustCounter(id, personAge, 1)
	assert.Error(t, err, "age is Simple(Int), not a Counter field")
}
