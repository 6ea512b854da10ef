package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billtracker/internal/blob"
)

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "bills.db")

	repo, err := NewRepository(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	_, err = repo.Get(ctx, blob.KeyBills)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	require.NoError(t, repo.Set(ctx, blob.KeyBills, []byte(`[{"id":1}]`)))
	require.NoError(t, repo.Set(ctx, blob.KeyBills, []byte(`[]`)))

	got, err := repo.Get(ctx, blob.KeyBills)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestRepositoryReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "bills.db")

	repo, err := NewRepository(dbPath)
	require.NoError(t, err)
	require.NoError(t, repo.Set(ctx, blob.KeyBillTypes, []byte(`["Water"]`)))
	require.NoError(t, repo.Close())

	// Migrations are idempotent on an existing database.
	repo, err = NewRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.Get(ctx, blob.KeyBillTypes)
	require.NoError(t, err)
	assert.JSONEq(t, `["Water"]`, string(got))
}
