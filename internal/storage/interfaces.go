package storage

import (
	"context"

	"smartcrowd/internal/domain"
)

// TradeStore provides access to the immutable trade ledger.
type TradeStore interface {
	// InsertBulk adds multiple trades in a single batch. Returns
	// ErrDuplicateKey if any trade_id already exists.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByMarket retrieves all trades for a market with timestamp <= until,
	// ordered by timestamp ASC, trade_id ASC.
	GetByMarket(ctx context.Context, marketID string, until int64) ([]*domain.Trade, error)

	// GetByMarketWallet retrieves one wallet's trade sequence within a market
	// with timestamp <= until, ordered by timestamp ASC, trade_id ASC.
	GetByMarketWallet(ctx context.Context, marketID, walletID string, until int64) ([]*domain.Trade, error)

	// ListWalletsByMarket returns the distinct wallets with any trade in the
	// market at timestamp <= until, sorted ascending.
	ListWalletsByMarket(ctx context.Context, marketID string, until int64) ([]string, error)
}

// MarketStore provides access to market metadata.
type MarketStore interface {
	// Upsert inserts or replaces a market record.
	Upsert(ctx context.Context, m *domain.Market) error

	// GetByID retrieves a market. Returns ErrNotFound if it does not exist.
	GetByID(ctx context.Context, marketID string) (*domain.Market, error)

	// GetByStatus retrieves all markets with the given status, ordered by
	// market_id ASC.
	GetByStatus(ctx context.Context, status string) ([]*domain.Market, error)

	// GetAll retrieves every market, ordered by market_id ASC.
	GetAll(ctx context.Context) ([]*domain.Market, error)
}

// MetricsStore provides access to wallet skill metrics. Records are
// recomputed wholesale each pipeline run; writes are replace-all upserts.
type MetricsStore interface {
	// UpsertContextBulk replaces context metrics in a single batch keyed by
	// (wallet_id, category, horizon).
	UpsertContextBulk(ctx context.Context, records []*domain.WalletContextMetrics) error

	// UpsertGlobalBulk replaces global metrics in a single batch keyed by
	// wallet_id.
	UpsertGlobalBulk(ctx context.Context, records []*domain.WalletGlobalMetrics) error

	// GetContext retrieves one context record. Returns ErrNotFound if absent.
	GetContext(ctx context.Context, walletID, category string, horizon domain.Horizon) (*domain.WalletContextMetrics, error)

	// GetContextAll retrieves all context records, ordered by key.
	GetContextAll(ctx context.Context) ([]*domain.WalletContextMetrics, error)

	// GetGlobal retrieves one wallet's global record. Returns ErrNotFound if absent.
	GetGlobal(ctx context.Context, walletID string) (*domain.WalletGlobalMetrics, error)

	// GetGlobalAll retrieves all global records, ordered by wallet_id.
	GetGlobalAll(ctx context.Context) ([]*domain.WalletGlobalMetrics, error)
}

// TrustWeightStore provides access to trust weight records.
type TrustWeightStore interface {
	// UpsertBulk replaces trust weights in a single batch keyed by
	// (wallet_id, category, horizon).
	UpsertBulk(ctx context.Context, weights []*domain.TrustWeight) error

	// Get retrieves one weight record. Returns ErrNotFound if absent.
	Get(ctx context.Context, walletID, category string, horizon domain.Horizon) (*domain.TrustWeight, error)

	// GetAll retrieves all weight records, ordered by key.
	GetAll(ctx context.Context) ([]*domain.TrustWeight, error)
}

// SnapshotStore provides access to the append-only snapshot history.
type SnapshotStore interface {
	// InsertBulk appends snapshots. Returns ErrDuplicateKey if any
	// (market_id, as_of) key already exists.
	InsertBulk(ctx context.Context, snaps []*domain.MarketSnapshot) error

	// UpsertBulk inserts or replaces snapshots by (market_id, as_of).
	// Used by backfill so reruns replace prior checkpoint rows.
	UpsertBulk(ctx context.Context, snaps []*domain.MarketSnapshot) error

	// GetByMarket retrieves all snapshots for a market, ordered by as_of ASC.
	GetByMarket(ctx context.Context, marketID string) ([]*domain.MarketSnapshot, error)

	// GetLatest retrieves the most recent snapshot for a market. Returns
	// ErrNotFound if the market has none.
	GetLatest(ctx context.Context, marketID string) (*domain.MarketSnapshot, error)
}
