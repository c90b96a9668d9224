package memory

import (
	"context"
	"sort"
	"sync"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// contextKey is the composite key of a context metrics record.
type contextKey struct {
	walletID string
	category string
	horizon  domain.Horizon
}

// MetricsStore is an in-memory implementation of storage.MetricsStore.
type MetricsStore struct {
	mu         sync.RWMutex
	contextRec map[contextKey]*domain.WalletContextMetrics
	globalRec  map[string]*domain.WalletGlobalMetrics // keyed by wallet_id
}

// NewMetricsStore creates a new in-memory metrics store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{
		contextRec: make(map[contextKey]*domain.WalletContextMetrics),
		globalRec:  make(map[string]*domain.WalletGlobalMetrics),
	}
}

// UpsertContextBulk replaces context metrics keyed by (wallet, category, horizon).
func (s *MetricsStore) UpsertContextBulk(_ context.Context, records []*domain.WalletContextMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r == nil || r.WalletID == "" || r.Category == "" || r.Horizon == "" {
			return storage.ErrInvalidInput
		}
		recCopy := *r
		s.contextRec[contextKey{r.WalletID, r.Category, r.Horizon}] = &recCopy
	}
	return nil
}

// UpsertGlobalBulk replaces global metrics keyed by wallet_id.
func (s *MetricsStore) UpsertGlobalBulk(_ context.Context, records []*domain.WalletGlobalMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r == nil || r.WalletID == "" {
			return storage.ErrInvalidInput
		}
		recCopy := *r
		s.globalRec[r.WalletID] = &recCopy
	}
	return nil
}

// GetContext retrieves one context record. Returns ErrNotFound if absent.
func (s *MetricsStore) GetContext(_ context.Context, walletID, category string, horizon domain.Horizon) (*domain.WalletContextMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.contextRec[contextKey{walletID, category, horizon}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *r
	return &recCopy, nil
}

// GetContextAll retrieves all context records ordered by
// (wallet_id, category, horizon).
func (s *MetricsStore) GetContextAll(_ context.Context) ([]*domain.WalletContextMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WalletContextMetrics, 0, len(s.contextRec))
	for _, r := range s.contextRec {
		recCopy := *r
		result = append(result, &recCopy)
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

// GetGlobal retrieves one wallet's global record. Returns ErrNotFound if absent.
func (s *MetricsStore) GetGlobal(_ context.Context, walletID string) (*domain.WalletGlobalMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.globalRec[walletID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recCopy := *r
	return &recCopy, nil
}

// GetGlobalAll retrieves all global records ordered by wallet_id.
func (s *MetricsStore) GetGlobalAll(_ context.Context) ([]*domain.WalletGlobalMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WalletGlobalMetrics, 0, len(s.globalRec))
	for _, r := range s.globalRec {
		recCopy := *r
		result = append(result, &recCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WalletID < result[j].WalletID
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.MetricsStore = (*MetricsStore)(nil)
