package txn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permadb/internal/kvstore/memkv"
	"permadb/internal/schema"
	"permadb/internal/txn"
	"permadb/internal/validate"
)

// personSchemaV2 is testSchema's Person type with age widened from Int to
// Float, forcing a Convert operation in the migration plan.
func personSchemaV2() *schema.Schema {
	base := testSchema()
	for _, ot := range base.Types {
		if ot.StorageID != personType {
			continue
		}
		for _, f := range ot.Fields {
			if f.StorageID == personAge {
				f.SimpleType = schema.TypeFloat
			}
		}
	}
	return base
}

func TestMigrateSchemaConvertsFieldAndBumpsVersion(t *testing.T) {
	store := memkv.New()
	kvtx1, err := store.Begin()
	require.NoError(t, err)

	dbListeners := validate.NewRegistry()
	userValid := validate.NewUserValidators()

	tx1, err := txn.Open(kvtx1, testSchema(), dbListeners, userValid, defaultOpts())
	require.NoError(t, err)

	id, err := tx1.Create(personType)
	require.NoError(t, err)
	require.NoError(t, tx1.WriteSimple(id, personAge, int64(42)))
	fromVersion := tx1.SchemaVersion()
	require.NoError(t, tx1.Commit())

	kvtx2, err := store.Begin()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kvtx2.Rollback() })

	tx2, err := txn.Open(kvtx2, personSchemaV2(), dbListeners, userValid, defaultOpts())
	require.NoError(t, err)
	toVersion := tx2.SchemaVersion()
	require.NotEqual(t, fromVersion, toVersion)

	require.NoError(t, tx2.MigrateSchema(id, toVersion))

	v, err := tx2.ReadSimple(id, personAge)
	require.NoError(t, err)
	assert.Equal(t, float64(42), v, "int 42 must convert to float 42")
}

func TestMigrateSchemaNoopWhenAlreadyAtVersion(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	id, err := tx.Create(personType)
	require.NoError(t, err)

	err = tx.MigrateSchema(id, tx.SchemaVersion())
	assert.NoError(t, err)
}

func TestMigrateSchemaUnregisteredVersionErrors(t *testing.T) {
	tx, _, _, _ := openTx(t, defaultOpts())

	id, err := tx.Create(personType)
	require.NoError(t, err)

	err = tx.MigrateSchema(id, tx.SchemaVersion()+999)
	assert.Error(t, err)
}
