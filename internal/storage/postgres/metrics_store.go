package postgres

import (
	"context"
	"fmt"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// MetricsStore implements storage.MetricsStore using PostgreSQL.
type MetricsStore struct {
	pool *Pool
}

// NewMetricsStore creates a new MetricsStore.
func NewMetricsStore(pool *Pool) *MetricsStore {
	return &MetricsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetricsStore = (*MetricsStore)(nil)

// UpsertContextBulk replaces context metrics in a single transaction keyed
// by (wallet_id, category, horizon).
func (s *MetricsStore) UpsertContextBulk(ctx context.Context, records []*domain.WalletContextMetrics) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO wallet_context_metrics (
			wallet_id, category, horizon, brier, log_loss, calibration_error,
			churn, persistence, timing_edge, roi, specialization, sample_size, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (wallet_id, category, horizon) DO UPDATE SET
			brier = EXCLUDED.brier,
			log_loss = EXCLUDED.log_loss,
			calibration_error = EXCLUDED.calibration_error,
			churn = EXCLUDED.churn,
			persistence = EXCLUDED.persistence,
			timing_edge = EXCLUDED.timing_edge,
			roi = EXCLUDED.roi,
			specialization = EXCLUDED.specialization,
			sample_size = EXCLUDED.sample_size,
			computed_at = EXCLUDED.computed_at
	`

	for _, r := range records {
		if r == nil || r.WalletID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.WalletID, r.Category, string(r.Horizon),
			r.Brier, r.LogLoss, r.CalibrationError,
			r.Churn, r.Persistence, r.TimingEdge, r.ROI,
			r.Specialization, r.SampleSize, r.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert context metrics: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpsertGlobalBulk replaces global metrics in a single transaction keyed by
// wallet_id.
func (s *MetricsStore) UpsertGlobalBulk(ctx context.Context, records []*domain.WalletGlobalMetrics) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO wallet_global_metrics (
			wallet_id, brier, log_loss, calibration_error,
			churn, persistence, timing_edge, roi, specialization, sample_size, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (wallet_id) DO UPDATE SET
			brier = EXCLUDED.brier,
			log_loss = EXCLUDED.log_loss,
			calibration_error = EXCLUDED.calibration_error,
			churn = EXCLUDED.churn,
			persistence = EXCLUDED.persistence,
			timing_edge = EXCLUDED.timing_edge,
			roi = EXCLUDED.roi,
			specialization = EXCLUDED.specialization,
			sample_size = EXCLUDED.sample_size,
			computed_at = EXCLUDED.computed_at
	`

	for _, r := range records {
		if r == nil || r.WalletID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			r.WalletID,
			r.Brier, r.LogLoss, r.CalibrationError,
			r.Churn, r.Persistence, r.TimingEdge, r.ROI,
			r.Specialization, r.SampleSize, r.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert global metrics: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const contextMetricsColumns = `
	wallet_id, category, horizon, brier, log_loss, calibration_error,
	churn, persistence, timing_edge, roi, specialization, sample_size, computed_at
`

// GetContext retrieves one context record. Returns ErrNotFound if absent.
func (s *MetricsStore) GetContext(ctx context.Context, walletID, category string, horizon domain.Horizon) (*domain.WalletContextMetrics, error) {
	query := `
		SELECT ` + contextMetricsColumns + `
		FROM wallet_context_metrics
		WHERE wallet_id = $1 AND category = $2 AND horizon = $3
	`

	var r domain.WalletContextMetrics
	err := s.pool.QueryRow(ctx, query, walletID, category, string(horizon)).Scan(
		&r.WalletID, &r.Category, &r.Horizon,
		&r.Brier, &r.LogLoss, &r.CalibrationError,
		&r.Churn, &r.Persistence, &r.TimingEdge, &r.ROI,
		&r.Specialization, &r.SampleSize, &r.ComputedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get context metrics: %w", err)
	}
	return &r, nil
}

// GetContextAll retrieves all context records, ordered by key.
func (s *MetricsStore) GetContextAll(ctx context.Context) ([]*domain.WalletContextMetrics, error) {
	query := `
		SELECT ` + contextMetricsColumns + `
		FROM wallet_context_metrics
		ORDER BY wallet_id ASC, category ASC, horizon ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all context metrics: %w", err)
	}
	defer rows.Close()

	var records []*domain.WalletContextMetrics
	for rows.Next() {
		var r domain.WalletContextMetrics
		if err := rows.Scan(
			&r.WalletID, &r.Category, &r.Horizon,
			&r.Brier, &r.LogLoss, &r.CalibrationError,
			&r.Churn, &r.Persistence, &r.TimingEdge, &r.ROI,
			&r.Specialization, &r.SampleSize, &r.ComputedAt,
		); err != nil {
			return nil, fmt.Errorf("scan context metrics: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

const globalMetricsColumns = `
	wallet_id, brier, log_loss, calibration_error,
	churn, persistence, timing_edge, roi, specialization, sample_size, computed_at
`

// GetGlobal retrieves one wallet's global record. Returns ErrNotFound if absent.
func (s *MetricsStore) GetGlobal(ctx context.Context, walletID string) (*domain.WalletGlobalMetrics, error) {
	query := `
		SELECT ` + globalMetricsColumns + `
		FROM wallet_global_metrics
		WHERE wallet_id = $1
	`

	var r domain.WalletGlobalMetrics
	err := s.pool.QueryRow(ctx, query, walletID).Scan(
		&r.WalletID,
		&r.Brier, &r.LogLoss, &r.CalibrationError,
		&r.Churn, &r.Persistence, &r.TimingEdge, &r.ROI,
		&r.Specialization, &r.SampleSize, &r.ComputedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get global metrics: %w", err)
	}
	return &r, nil
}

// GetGlobalAll retrieves all global records, ordered by wallet_id.
func (s *MetricsStore) GetGlobalAll(ctx context.Context) ([]*domain.WalletGlobalMetrics, error) {
	query := `
		SELECT ` + globalMetricsColumns + `
		FROM wallet_global_metrics
		ORDER BY wallet_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all global metrics: %w", err)
	}
	defer rows.Close()

	var records []*domain.WalletGlobalMetrics
	for rows.Next() {
		var r domain.WalletGlobalMetrics
		if err := rows.Scan(
			&r.WalletID,
			&r.Brier, &r.LogLoss, &r.CalibrationError,
			&r.Churn, &r.Persistence, &r.TimingEdge, &r.ROI,
			&r.Specialization, &r.SampleSize, &r.ComputedAt,
		); err != nil {
			return nil, fmt.Errorf("scan global metrics: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
