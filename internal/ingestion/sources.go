// Package ingestion pulls trades and market metadata from an external
// source into storage. The source itself (pagination, auth, rate limits)
// lives outside this module; these interfaces are its seam.
package ingestion

import (
	"context"

	"smartcrowd/internal/domain"
)

// TradeSource provides trades from an external ledger.
type TradeSource interface {
	// FetchTrades returns trades executed at or after since (ms). Trade IDs
	// may be empty; the manager assigns deterministic ones.
	FetchTrades(ctx context.Context, since int64) ([]*domain.Trade, error)
}

// MarketSource provides market metadata from an external ledger.
type MarketSource interface {
	// FetchMarkets returns the current metadata of every known market,
	// including resolution status and outcome.
	FetchMarkets(ctx context.Context) ([]*domain.Market, error)
}
