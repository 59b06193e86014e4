package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityLedger/internal/model"
	"liquidityLedger/internal/store"
)

// Set INDEXER_TEST_PG_DSN to run against a scratch database.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("INDEXER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("INDEXER_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	s, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.EnsureSchema(ctx))
	_, err = s.pool.Exec(ctx, `DELETE FROM entities WHERE id LIKE 'test-%'`)
	require.NoError(t, err)
	return s
}

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	require.Error(t, err)
}

func TestStoreUnitCommit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u := store.NewUnit(s)
	u.Save(&model.Bundle{ID: "test-bundle", EthPriceUSD: decimal.RequireFromString("1800.5")})
	u.Save(&model.Cursor{ID: "test-cursor", BlockNumber: 22757547, LogIndex: 4})
	require.NoError(t, u.Commit(ctx))

	// Upsert overwrites.
	u = store.NewUnit(s)
	u.Save(&model.Cursor{ID: "test-cursor", BlockNumber: 22757548, LogIndex: 1})
	require.NoError(t, u.Commit(ctx))

	fresh := store.NewUnit(s)
	cursor, ok, err := fresh.Cursor(ctx, "test-cursor")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(22757548), cursor.BlockNumber)
	assert.Equal(t, uint64(1), cursor.LogIndex)

	_, ok, err = s.Get(ctx, model.KindToken, "test-missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
