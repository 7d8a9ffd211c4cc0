package sqlkv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"permadb/internal/kvstore/sqlkv"
)

func setupMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("permadb"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to get connection string")
	return dsn
}

func TestSqlkvPutGetCommitIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dsn := setupMySQL(t)
	store, err := sqlkv.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tx, err := store.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("alpha"), []byte("1")))
	require.NoError(t, tx.Commit())

	tx2, err := store.Begin()
	require.NoError(t, err)
	v, ok, err := tx2.Get([]byte("alpha"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)
	require.NoError(t, tx2.Rollback())
}

func TestSqlkvRollbackDiscardsMutationIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dsn := setupMySQL(t)
	store, err := sqlkv.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tx, err := store.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("beta"), []byte("1")))
	require.NoError(t, tx.Rollback())

	tx2, err := store.Begin()
	require.NoError(t, err)
	_, ok, err := tx2.Get([]byte("beta"))
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, tx2.Rollback())
}

func TestSqlkvAtomicAddUnderConcurrentWritersIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dsn := setupMySQL(t)
	store, err := sqlkv.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			tx, err := store.Begin()
			if err != nil {
				errs <- err
				return
			}
			if _, err := tx.AtomicAdd([]byte("counter"), 1); err != nil {
				_ = tx.Rollback()
				errs <- err
				return
			}
			errs <- tx.Commit()
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	tx, err := store.Begin()
	require.NoError(t, err)
	v, err := tx.AtomicAdd([]byte("counter"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(n), v)
	require.NoError(t, tx.Rollback())
}
