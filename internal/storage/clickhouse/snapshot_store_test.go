package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

func createTestSnapshot(marketID string, asOf int64, prob float64) *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		MarketID:       marketID,
		AsOf:           asOf,
		SmartCrowdProb: prob,
		RawPrice:       0.5,
		Divergence:     prob - 0.5,
		Disagreement:   0.1,
		Concentration:  0.3,
		IntegrityRisk:  0.2,
		Confidence:     0.8,
		WalletCount:    4,
		CreatedAt:      asOf,
	}
}

func TestSnapshotStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	ctx := context.Background()

	snaps := []*domain.MarketSnapshot{
		createTestSnapshot("m1", 1000, 0.6),
		createTestSnapshot("m1", 2000, 0.65),
		createTestSnapshot("m2", 1000, 0.4),
	}
	require.NoError(t, store.InsertBulk(ctx, snaps))

	got, err := store.GetByMarket(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].AsOf)
	assert.Equal(t, 0.6, got[0].SmartCrowdProb)
	assert.Equal(t, 4, got[0].WalletCount)
}

func TestSnapshotStore_InsertBulk_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.MarketSnapshot{createTestSnapshot("m1", 1000, 0.6)}))

	err := store.InsertBulk(ctx, []*domain.MarketSnapshot{createTestSnapshot("m1", 1000, 0.9)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Duplicate within one batch is caught before anything is written.
	err = store.InsertBulk(ctx, []*domain.MarketSnapshot{
		createTestSnapshot("m2", 1000, 0.4),
		createTestSnapshot("m2", 1000, 0.5),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSnapshotStore_UpsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	ctx := context.Background()

	require.NoError(t, store.UpsertBulk(ctx, []*domain.MarketSnapshot{createTestSnapshot("m1", 1000, 0.6)}))

	replacement := createTestSnapshot("m1", 1000, 0.72)
	replacement.CreatedAt = 2000
	require.NoError(t, store.UpsertBulk(ctx, []*domain.MarketSnapshot{replacement}))

	got, err := store.GetByMarket(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.72, got[0].SmartCrowdProb)
}

func TestSnapshotStore_GetLatest(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSnapshotStore(conn)
	ctx := context.Background()

	snaps := []*domain.MarketSnapshot{
		createTestSnapshot("m1", 3000, 0.7),
		createTestSnapshot("m1", 1000, 0.6),
	}
	require.NoError(t, store.InsertBulk(ctx, snaps))

	latest, err := store.GetLatest(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), latest.AsOf)

	_, err = store.GetLatest(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
