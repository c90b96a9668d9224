package memory

import (
	"context"
	"sort"
	"sync"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// TrustWeightStore is an in-memory implementation of storage.TrustWeightStore.
type TrustWeightStore struct {
	mu   sync.RWMutex
	data map[contextKey]*domain.TrustWeight
}

// NewTrustWeightStore creates a new in-memory trust weight store.
func NewTrustWeightStore() *TrustWeightStore {
	return &TrustWeightStore{
		data: make(map[contextKey]*domain.TrustWeight),
	}
}

// UpsertBulk replaces trust weights keyed by (wallet, category, horizon).
func (s *TrustWeightStore) UpsertBulk(_ context.Context, weights []*domain.TrustWeight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range weights {
		if w == nil || w.WalletID == "" || w.Category == "" || w.Horizon == "" {
			return storage.ErrInvalidInput
		}
		if w.Weight < domain.MinTrustWeight || w.Weight > domain.MaxTrustWeight {
			return storage.ErrInvalidInput
		}
		weightCopy := *w
		s.data[contextKey{w.WalletID, w.Category, w.Horizon}] = &weightCopy
	}
	return nil
}

// Get retrieves one weight record. Returns ErrNotFound if absent.
func (s *TrustWeightStore) Get(_ context.Context, walletID, category string, horizon domain.Horizon) (*domain.TrustWeight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[contextKey{walletID, category, horizon}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	weightCopy := *w
	return &weightCopy, nil
}

// GetAll retrieves all weight records ordered by (wallet_id, category, horizon).
func (s *TrustWeightStore) GetAll(_ context.Context) ([]*domain.TrustWeight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TrustWeight, 0, len(s.data))
	for _, w := range s.data {
		weightCopy := *w
		result = append(result, &weightCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].WalletID != result[j].WalletID {
			return result[i].WalletID < result[j].WalletID
		}
		if result[i].Category != result[j].Category {
			return result[i].Category < result[j].Category
		}
		return result[i].Horizon < result[j].Horizon
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TrustWeightStore = (*TrustWeightStore)(nil)
