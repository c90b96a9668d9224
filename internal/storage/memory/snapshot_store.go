package memory

import (
	"context"
	"sort"
	"sync"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// snapshotKey is the composite key of a snapshot row.
type snapshotKey struct {
	marketID string
	asOf     int64
}

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.MarketSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[snapshotKey]*domain.MarketSnapshot),
	}
}

// InsertBulk appends snapshots. Returns ErrDuplicateKey if any
// (market_id, as_of) key already exists; the batch is rejected as a whole.
func (s *SnapshotStore) InsertBulk(_ context.Context, snaps []*domain.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		if snap == nil || snap.MarketID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[snapshotKey{snap.MarketID, snap.AsOf}]; exists {
			return storage.ErrDuplicateKey
		}
	}

	for _, snap := range snaps {
		snapCopy := *snap
		s.data[snapshotKey{snap.MarketID, snap.AsOf}] = &snapCopy
	}
	return nil
}

// UpsertBulk inserts or replaces snapshots by (market_id, as_of).
func (s *SnapshotStore) UpsertBulk(_ context.Context, snaps []*domain.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		if snap == nil || snap.MarketID == "" {
			return storage.ErrInvalidInput
		}
		snapCopy := *snap
		s.data[snapshotKey{snap.MarketID, snap.AsOf}] = &snapCopy
	}
	return nil
}

// GetByMarket retrieves all snapshots for a market, ordered by as_of ASC.
func (s *SnapshotStore) GetByMarket(_ context.Context, marketID string) ([]*domain.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MarketSnapshot
	for _, snap := range s.data {
		if snap.MarketID == marketID {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AsOf < result[j].AsOf
	})
	return result, nil
}

// GetLatest retrieves the most recent snapshot for a market. Returns
// ErrNotFound if the market has none.
func (s *SnapshotStore) GetLatest(ctx context.Context, marketID string) (*domain.MarketSnapshot, error) {
	snaps, err := s.GetByMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return snaps[len(snaps)-1], nil
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)
