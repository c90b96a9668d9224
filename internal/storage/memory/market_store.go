package memory

import (
	"context"
	"sort"
	"sync"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// MarketStore is an in-memory implementation of storage.MarketStore.
type MarketStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Market // keyed by market_id
}

// NewMarketStore creates a new in-memory market store.
func NewMarketStore() *MarketStore {
	return &MarketStore{
		data: make(map[string]*domain.Market),
	}
}

// Upsert inserts or replaces a market record.
func (s *MarketStore) Upsert(_ context.Context, m *domain.Market) error {
	if m == nil || m.MarketID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	marketCopy := *m
	s.data[m.MarketID] = &marketCopy
	return nil
}

// GetByID retrieves a market. Returns ErrNotFound if it does not exist.
func (s *MarketStore) GetByID(_ context.Context, marketID string) (*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[marketID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	marketCopy := *m
	return &marketCopy, nil
}

// GetByStatus retrieves all markets with the given status, ordered by
// market_id ASC.
func (s *MarketStore) GetByStatus(_ context.Context, status string) ([]*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Market
	for _, m := range s.data {
		if m.Status == status {
			marketCopy := *m
			result = append(result, &marketCopy)
		}
	}

	sortMarkets(result)
	return result, nil
}

// GetAll retrieves every market, ordered by market_id ASC.
func (s *MarketStore) GetAll(_ context.Context) ([]*domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Market, 0, len(s.data))
	for _, m := range s.data {
		marketCopy := *m
		result = append(result, &marketCopy)
	}

	sortMarkets(result)
	return result, nil
}

func sortMarkets(markets []*domain.Market) {
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].MarketID < markets[j].MarketID
	})
}

// Verify interface compliance at compile time.
var _ storage.MarketStore = (*MarketStore)(nil)
