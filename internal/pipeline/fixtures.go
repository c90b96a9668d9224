package pipeline

import (
	"context"
	"fmt"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/idhash"
	"smartcrowd/internal/storage"
)

// LoadFixtures populates stores with demonstration data: three resolved
// markets, one active market, and trade history for a handful of wallets
// with distinguishable track records.
func LoadFixtures(ctx context.Context, marketStore storage.MarketStore, tradeStore storage.TradeStore) error {
	if err := loadMarkets(ctx, marketStore); err != nil {
		return fmt.Errorf("load markets: %w", err)
	}
	if err := loadTrades(ctx, tradeStore); err != nil {
		return fmt.Errorf("load trades: %w", err)
	}
	return nil
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func loadMarkets(ctx context.Context, store storage.MarketStore) error {
	markets := []*domain.Market{
		{
			MarketID:           "mkt_election_2024",
			Category:           "politics",
			Status:             domain.MarketStatusResolved,
			Outcome:            f64(1.0),
			ExpectedResolution: 1704067200000, // 2024-01-01 00:00:00 UTC
			ResolvedAt:         i64(1704070800000),
			LastPrice:          0.96,
			CreatedAt:          1701388800000,
		},
		{
			MarketID:           "mkt_rate_cut_jan",
			Category:           "finance",
			Status:             domain.MarketStatusResolved,
			Outcome:            f64(0.0),
			ExpectedResolution: 1706745600000, // 2024-02-01 00:00:00 UTC
			ResolvedAt:         i64(1706749200000),
			LastPrice:          0.22,
			CreatedAt:          1704067200000,
		},
		{
			MarketID:           "mkt_btc_50k_q1",
			Category:           "crypto",
			Status:             domain.MarketStatusResolved,
			Outcome:            f64(1.0),
			ExpectedResolution: 1711843200000, // 2024-03-31 00:00:00 UTC
			ResolvedAt:         i64(1711846800000),
			LastPrice:          0.91,
			CreatedAt:          1704067200000,
		},
		{
			MarketID:           "mkt_eth_etf_q3",
			Category:           "crypto",
			Status:             domain.MarketStatusActive,
			ExpectedResolution: 1727740800000, // 2024-10-01 00:00:00 UTC
			LastPrice:          0.64,
			CreatedAt:          1711929600000,
		},
	}

	for _, m := range markets {
		if err := store.Upsert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// fixtureTrade builds a trade with a deterministic ID.
func fixtureTrade(marketID, walletID, side, direction string, price, size float64, ts int64) *domain.Trade {
	return &domain.Trade{
		TradeID:   idhash.ComputeTradeID(marketID, walletID, side, direction, ts, size),
		WalletID:  walletID,
		MarketID:  marketID,
		Side:      side,
		Direction: direction,
		Price:     price,
		Size:      size,
		Timestamp: ts,
		CreatedAt: ts,
	}
}

func loadTrades(ctx context.Context, store storage.TradeStore) error {
	// wallet_sharp: consistently on the right side, early, holds to resolution.
	// wallet_noise: late entries near the final price, no edge.
	// wallet_flip: rapid side reversals on one market, churn-heavy.
	trades := []*domain.Trade{
		fixtureTrade("mkt_election_2024", "wallet_sharp", domain.TradeSideYes, domain.TradeDirectionOpen, 0.55, 500, 1703462400000),
		fixtureTrade("mkt_rate_cut_jan", "wallet_sharp", domain.TradeSideNo, domain.TradeDirectionOpen, 0.60, 400, 1705838400000),
		fixtureTrade("mkt_btc_50k_q1", "wallet_sharp", domain.TradeSideYes, domain.TradeDirectionOpen, 0.48, 600, 1709251200000),
		fixtureTrade("mkt_eth_etf_q3", "wallet_sharp", domain.TradeSideYes, domain.TradeDirectionOpen, 0.58, 300, 1719792000000),

		fixtureTrade("mkt_election_2024", "wallet_noise", domain.TradeSideYes, domain.TradeDirectionOpen, 0.94, 200, 1704024000000),
		fixtureTrade("mkt_rate_cut_jan", "wallet_noise", domain.TradeSideYes, domain.TradeDirectionOpen, 0.25, 250, 1706702400000),
		fixtureTrade("mkt_btc_50k_q1", "wallet_noise", domain.TradeSideYes, domain.TradeDirectionOpen, 0.89, 150, 1711800000000),
		fixtureTrade("mkt_eth_etf_q3", "wallet_noise", domain.TradeSideNo, domain.TradeDirectionOpen, 0.35, 100, 1721001600000),

		fixtureTrade("mkt_btc_50k_q1", "wallet_flip", domain.TradeSideYes, domain.TradeDirectionOpen, 0.50, 1000, 1709337600000),
		fixtureTrade("mkt_btc_50k_q1", "wallet_flip", domain.TradeSideNo, domain.TradeDirectionOpen, 0.49, 1000, 1709337660000),
		fixtureTrade("mkt_btc_50k_q1", "wallet_flip", domain.TradeSideYes, domain.TradeDirectionOpen, 0.51, 1000, 1709337720000),
		fixtureTrade("mkt_btc_50k_q1", "wallet_flip", domain.TradeSideNo, domain.TradeDirectionOpen, 0.50, 1000, 1709337780000),
		fixtureTrade("mkt_eth_etf_q3", "wallet_flip", domain.TradeSideYes, domain.TradeDirectionOpen, 0.62, 2000, 1721088000000),
	}

	return store.InsertBulk(ctx, trades)
}
