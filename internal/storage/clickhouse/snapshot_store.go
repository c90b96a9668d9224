package clickhouse

import (
	"context"
	"fmt"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by (market_id, as_of) with
// created_at as the version column, so upserts are plain inserts and reads
// use FINAL to collapse replaced rows.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	market_id, as_of, smart_crowd_prob, raw_price, divergence, disagreement,
	concentration, integrity_risk, confidence, wallet_count, created_at
`

// InsertBulk appends snapshots. ReplacingMergeTree does not enforce
// uniqueness at insert time, so duplicates are detected with an explicit
// existence check per key, matching the append-only contract.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snaps []*domain.MarketSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(snaps))
	for _, snap := range snaps {
		if snap == nil || snap.MarketID == "" {
			return storage.ErrInvalidInput
		}
		key := fmt.Sprintf("%s|%d", snap.MarketID, snap.AsOf)
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}

		exists, err := s.exists(ctx, snap.MarketID, snap.AsOf)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	return s.UpsertBulk(ctx, snaps)
}

// UpsertBulk inserts or replaces snapshots by (market_id, as_of). The merge
// engine keeps the row with the highest created_at per key.
func (s *SnapshotStore) UpsertBulk(ctx context.Context, snaps []*domain.MarketSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO market_snapshots (`+snapshotColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare snapshot batch: %w", err)
	}

	for _, snap := range snaps {
		if snap == nil || snap.MarketID == "" {
			return storage.ErrInvalidInput
		}
		if err := batch.Append(
			snap.MarketID,
			snap.AsOf,
			snap.SmartCrowdProb,
			snap.RawPrice,
			snap.Divergence,
			snap.Disagreement,
			snap.Concentration,
			snap.IntegrityRisk,
			snap.Confidence,
			int32(snap.WalletCount),
			snap.CreatedAt,
		); err != nil {
			return fmt.Errorf("append snapshot: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send snapshot batch: %w", err)
	}
	return nil
}

// GetByMarket retrieves all snapshots for a market, ordered by as_of ASC.
func (s *SnapshotStore) GetByMarket(ctx context.Context, marketID string) ([]*domain.MarketSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM market_snapshots FINAL
		WHERE market_id = ?
		ORDER BY as_of ASC
	`

	rows, err := s.conn.Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by market: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.MarketSnapshot
	for rows.Next() {
		var (
			snap        domain.MarketSnapshot
			walletCount int32
		)
		if err := rows.Scan(
			&snap.MarketID,
			&snap.AsOf,
			&snap.SmartCrowdProb,
			&snap.RawPrice,
			&snap.Divergence,
			&snap.Disagreement,
			&snap.Concentration,
			&snap.IntegrityRisk,
			&snap.Confidence,
			&walletCount,
			&snap.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.WalletCount = int(walletCount)
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
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

// exists checks whether a (market_id, as_of) key is already stored.
func (s *SnapshotStore) exists(ctx context.Context, marketID string, asOf int64) (bool, error) {
	query := `
		SELECT count() FROM market_snapshots FINAL
		WHERE market_id = ? AND as_of = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, marketID, asOf).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
