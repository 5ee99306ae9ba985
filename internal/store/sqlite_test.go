package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteBlob(t *testing.T) *SQLiteBlob {
	t.Helper()
	st, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "blobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func TestSQLiteBlob_Missing(t *testing.T) {
	st := newTestSQLiteBlob(t)
	data, err := st.Get(context.Background(), "extracted_estimates.csv")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLiteBlob_PutGetUpsert(t *testing.T) {
	st := newTestSQLiteBlob(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "k", []byte("v1")))
	require.NoError(t, st.Put(ctx, "k", []byte("v2")))

	data, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.Equal(t, "sqlite", st.Name())
}

func TestSQLiteBlob_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteBlob(t)
	assert.NoError(t, st.Migrate(context.Background()))
}
