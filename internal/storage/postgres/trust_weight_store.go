package postgres

import (
	"context"
	"fmt"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// TrustWeightStore implements storage.TrustWeightStore using PostgreSQL.
type TrustWeightStore struct {
	pool *Pool
}

// NewTrustWeightStore creates a new TrustWeightStore.
func NewTrustWeightStore(pool *Pool) *TrustWeightStore {
	return &TrustWeightStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TrustWeightStore = (*TrustWeightStore)(nil)

// UpsertBulk replaces trust weights in a single transaction keyed by
// (wallet_id, category, horizon).
func (s *TrustWeightStore) UpsertBulk(ctx context.Context, weights []*domain.TrustWeight) error {
	if len(weights) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trust_weights (
			wallet_id, category, horizon, weight, sample_size, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (wallet_id, category, horizon) DO UPDATE SET
			weight = EXCLUDED.weight,
			sample_size = EXCLUDED.sample_size,
			computed_at = EXCLUDED.computed_at
	`

	for _, w := range weights {
		if w == nil || w.WalletID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			w.WalletID, w.Category, string(w.Horizon),
			w.Weight, w.SampleSize, w.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert trust weight: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves one weight record. Returns ErrNotFound if absent.
func (s *TrustWeightStore) Get(ctx context.Context, walletID, category string, horizon domain.Horizon) (*domain.TrustWeight, error) {
	query := `
		SELECT wallet_id, category, horizon, weight, sample_size, computed_at
		FROM trust_weights
		WHERE wallet_id = $1 AND category = $2 AND horizon = $3
	`

	var w domain.TrustWeight
	err := s.pool.QueryRow(ctx, query, walletID, category, string(horizon)).Scan(
		&w.WalletID, &w.Category, &w.Horizon,
		&w.Weight, &w.SampleSize, &w.ComputedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trust weight: %w", err)
	}
	return &w, nil
}

// GetAll retrieves all weight records, ordered by key.
func (s *TrustWeightStore) GetAll(ctx context.Context) ([]*domain.TrustWeight, error) {
	query := `
		SELECT wallet_id, category, horizon, weight, sample_size, computed_at
		FROM trust_weights
		ORDER BY wallet_id ASC, category ASC, horizon ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all trust weights: %w", err)
	}
	defer rows.Close()

	var weights []*domain.TrustWeight
	for rows.Next() {
		var w domain.TrustWeight
		if err := rows.Scan(
			&w.WalletID, &w.Category, &w.Horizon,
			&w.Weight, &w.SampleSize, &w.ComputedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trust weight: %w", err)
		}
		weights = append(weights, &w)
	}
	return weights, rows.Err()
}
