package memory

import (
	"context"
	"sort"
	"sync"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Trade // keyed by trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.Trade),
	}
}

// InsertBulk adds multiple trades. Returns ErrDuplicateKey if any trade_id
// exists; the batch is rejected as a whole.
func (s *TradeStore) InsertBulk(_ context.Context, trades []*domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		if t == nil || t.TradeID == "" || t.WalletID == "" || t.MarketID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, t := range trades {
		tradeCopy := *t
		s.data[t.TradeID] = &tradeCopy
	}
	return nil
}

// GetByMarket retrieves all trades for a market with timestamp <= until,
// ordered by timestamp ASC, trade_id ASC.
func (s *TradeStore) GetByMarket(_ context.Context, marketID string, until int64) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.MarketID == marketID && t.Timestamp <= until {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sortTrades(result)
	return result, nil
}

// GetByMarketWallet retrieves one wallet's trade sequence within a market
// with timestamp <= until, ordered by timestamp ASC, trade_id ASC.
func (s *TradeStore) GetByMarketWallet(_ context.Context, marketID, walletID string, until int64) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, t := range s.data {
		if t.MarketID == marketID && t.WalletID == walletID && t.Timestamp <= until {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}

	sortTrades(result)
	return result, nil
}

// ListWalletsByMarket returns the distinct wallets with any trade in the
// market at timestamp <= until, sorted ascending.
func (s *TradeStore) ListWalletsByMarket(_ context.Context, marketID string, until int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, t := range s.data {
		if t.MarketID == marketID && t.Timestamp <= until {
			seen[t.WalletID] = struct{}{}
		}
	}

	wallets := make([]string, 0, len(seen))
	for w := range seen {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)
	return wallets, nil
}

// sortTrades orders trades by timestamp ASC, trade_id ASC for deterministic
// iteration.
func sortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		return trades[i].TradeID < trades[j].TradeID
	})
}

// Verify interface compliance at compile time.
var _ storage.TradeStore = (*TradeStore)(nil)
