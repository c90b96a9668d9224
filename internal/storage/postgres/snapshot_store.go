package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	market_id, as_of, smart_crowd_prob, raw_price, divergence, disagreement,
	concentration, integrity_risk, confidence, wallet_count, created_at
`

const insertSnapshotQuery = `
	INSERT INTO market_snapshots (` + snapshotColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

const upsertSnapshotSuffix = `
	ON CONFLICT (market_id, as_of) DO UPDATE SET
		smart_crowd_prob = EXCLUDED.smart_crowd_prob,
		raw_price = EXCLUDED.raw_price,
		divergence = EXCLUDED.divergence,
		disagreement = EXCLUDED.disagreement,
		concentration = EXCLUDED.concentration,
		integrity_risk = EXCLUDED.integrity_risk,
		confidence = EXCLUDED.confidence,
		wallet_count = EXCLUDED.wallet_count,
		created_at = EXCLUDED.created_at
`

// InsertBulk appends snapshots atomically. Fails the entire batch with
// ErrDuplicateKey if any (market_id, as_of) key exists.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snaps []*domain.MarketSnapshot) error {
	return s.writeBulk(ctx, snaps, insertSnapshotQuery)
}

// UpsertBulk inserts or replaces snapshots by (market_id, as_of).
func (s *SnapshotStore) UpsertBulk(ctx context.Context, snaps []*domain.MarketSnapshot) error {
	return s.writeBulk(ctx, snaps, insertSnapshotQuery+upsertSnapshotSuffix)
}

func (s *SnapshotStore) writeBulk(ctx context.Context, snaps []*domain.MarketSnapshot, query string) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, snap := range snaps {
		if snap == nil || snap.MarketID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			snap.MarketID,
			snap.AsOf,
			snap.SmartCrowdProb,
			snap.RawPrice,
			snap.Divergence,
			snap.Disagreement,
			snap.Concentration,
			snap.IntegrityRisk,
			snap.Confidence,
			snap.WalletCount,
			snap.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("write snapshot in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByMarket retrieves all snapshots for a market, ordered by as_of ASC.
func (s *SnapshotStore) GetByMarket(ctx context.Context, marketID string) ([]*domain.MarketSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM market_snapshots
		WHERE market_id = $1
		ORDER BY as_of ASC
	`

	rows, err := s.pool.Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("get snapshots by market: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetLatest retrieves the most recent snapshot for a market. Returns
// ErrNotFound if the market has none.
func (s *SnapshotStore) GetLatest(ctx context.Context, marketID string) (*domain.MarketSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM market_snapshots
		WHERE market_id = $1
		ORDER BY as_of DESC
		LIMIT 1
	`

	var snap domain.MarketSnapshot
	err := s.pool.QueryRow(ctx, query, marketID).Scan(
		&snap.MarketID,
		&snap.AsOf,
		&snap.SmartCrowdProb,
		&snap.RawPrice,
		&snap.Divergence,
		&snap.Disagreement,
		&snap.Concentration,
		&snap.IntegrityRisk,
		&snap.Confidence,
		&snap.WalletCount,
		&snap.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return &snap, nil
}

func scanSnapshots(rows pgx.Rows) ([]*domain.MarketSnapshot, error) {
	var snaps []*domain.MarketSnapshot
	for rows.Next() {
		var snap domain.MarketSnapshot
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
			&snap.WalletCount,
			&snap.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}
