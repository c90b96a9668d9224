package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

func createTestTrade(id, walletID, marketID string, ts int64) *domain.Trade {
	return &domain.Trade{
		TradeID:   id,
		WalletID:  walletID,
		MarketID:  marketID,
		Side:      domain.TradeSideYes,
		Direction: domain.TradeDirectionOpen,
		Price:     0.6,
		Size:      100,
		Timestamp: ts,
		CreatedAt: ts,
	}
}

func TestTradeStore_InsertBulk(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	trades := []*domain.Trade{
		createTestTrade("t1", "w1", "m1", 1000),
		createTestTrade("t2", "w1", "m1", 2000),
		createTestTrade("t3", "w2", "m1", 3000),
	}

	err := store.InsertBulk(ctx, trades)
	require.NoError(t, err)

	got, err := store.GetByMarket(ctx, "m1", 5000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "t1", got[0].TradeID)
	assert.Equal(t, 0.6, got[0].Price)
}

func TestTradeStore_InsertBulk_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Trade{createTestTrade("t1", "w1", "m1", 1000)})
	require.NoError(t, err)

	// Batch with one duplicate fails entirely, the new trade is not kept.
	err = store.InsertBulk(ctx, []*domain.Trade{
		createTestTrade("t2", "w1", "m1", 2000),
		createTestTrade("t1", "w1", "m1", 1000),
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByMarket(ctx, "m1", 5000)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTradeStore_InsertBulk_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Trade{createTestTrade("", "w1", "m1", 1000)})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestTradeStore_GetByMarket_Ordering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	// Inserted out of order, plus a timestamp tie broken by trade_id.
	trades := []*domain.Trade{
		createTestTrade("t3", "w1", "m1", 3000),
		createTestTrade("t1b", "w1", "m1", 1000),
		createTestTrade("t1a", "w2", "m1", 1000),
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	got, err := store.GetByMarket(ctx, "m1", 5000)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "t1a", got[0].TradeID)
	assert.Equal(t, "t1b", got[1].TradeID)
	assert.Equal(t, "t3", got[2].TradeID)
}

func TestTradeStore_GetByMarket_UntilFilter(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	trades := []*domain.Trade{
		createTestTrade("t1", "w1", "m1", 1000),
		createTestTrade("t2", "w1", "m1", 2000),
		createTestTrade("t3", "w1", "m1", 3000),
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	got, err := store.GetByMarket(ctx, "m1", 2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[1].TradeID)
}

func TestTradeStore_GetByMarketWallet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	trades := []*domain.Trade{
		createTestTrade("t1", "w1", "m1", 1000),
		createTestTrade("t2", "w2", "m1", 2000),
		createTestTrade("t3", "w1", "m2", 3000),
		createTestTrade("t4", "w1", "m1", 4000),
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	got, err := store.GetByMarketWallet(ctx, "m1", "w1", 5000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].TradeID)
	assert.Equal(t, "t4", got[1].TradeID)
}

func TestTradeStore_ListWalletsByMarket(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	var trades []*domain.Trade
	for i := 0; i < 3; i++ {
		trades = append(trades, createTestTrade(
			fmt.Sprintf("t%d", i), fmt.Sprintf("w%d", i%2), "m1", int64(1000*(i+1)),
		))
	}
	require.NoError(t, store.InsertBulk(ctx, trades))

	wallets, err := store.ListWalletsByMarket(ctx, "m1", 5000)
	require.NoError(t, err)
	assert.Equal(t, []string{"w0", "w1"}, wallets)

	// Until cutoff before the second wallet's only trade.
	wallets, err = store.ListWalletsByMarket(ctx, "m1", 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"w0"}, wallets)
}
