package stub

import (
	"context"

	"smartcrowd/internal/domain"
)

// TradeSource returns fixed in-memory trades for testing.
// Trades can be intentionally unordered to exercise sorting.
// Implements ingestion.TradeSource.
type TradeSource struct {
	trades []*domain.Trade
}

// NewTradeSource creates a stub trade source over the given trades.
func NewTradeSource(trades []*domain.Trade) *TradeSource {
	return &TradeSource{trades: trades}
}

// FetchTrades returns trades executed at or after since.
// Returns copies to prevent mutation.
func (s *TradeSource) FetchTrades(_ context.Context, since int64) ([]*domain.Trade, error) {
	var result []*domain.Trade
	for _, trade := range s.trades {
		if trade.Timestamp >= since {
			copy := *trade
			result = append(result, &copy)
		}
	}
	return result, nil
}

// MarketSource returns fixed in-memory market metadata for testing.
// Implements ingestion.MarketSource.
type MarketSource struct {
	markets []*domain.Market
}

// NewMarketSource creates a stub market source over the given markets.
func NewMarketSource(markets []*domain.Market) *MarketSource {
	return &MarketSource{markets: markets}
}

// FetchMarkets returns every known market.
func (s *MarketSource) FetchMarkets(_ context.Context) ([]*domain.Market, error) {
	result := make([]*domain.Market, 0, len(s.markets))
	for _, market := range s.markets {
		copy := *market
		result = append(result, &copy)
	}
	return result, nil
}
