package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// MarketStore implements storage.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *Pool
}

// NewMarketStore creates a new MarketStore.
func NewMarketStore(pool *Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MarketStore = (*MarketStore)(nil)

// Upsert inserts or replaces a market record.
func (s *MarketStore) Upsert(ctx context.Context, m *domain.Market) error {
	if m == nil || m.MarketID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO markets (
			market_id, category, status, outcome, expected_resolution, resolved_at, last_price, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (market_id) DO UPDATE SET
			category = EXCLUDED.category,
			status = EXCLUDED.status,
			outcome = EXCLUDED.outcome,
			expected_resolution = EXCLUDED.expected_resolution,
			resolved_at = EXCLUDED.resolved_at,
			last_price = EXCLUDED.last_price
	`

	_, err := s.pool.Exec(ctx, query,
		m.MarketID,
		m.Category,
		m.Status,
		m.Outcome,
		m.ExpectedResolution,
		m.ResolvedAt,
		m.LastPrice,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert market: %w", err)
	}
	return nil
}

// GetByID retrieves a market. Returns ErrNotFound if it does not exist.
func (s *MarketStore) GetByID(ctx context.Context, marketID string) (*domain.Market, error) {
	query := `
		SELECT market_id, category, status, outcome, expected_resolution, resolved_at, last_price, created_at
		FROM markets
		WHERE market_id = $1
	`

	var m domain.Market
	err := s.pool.QueryRow(ctx, query, marketID).Scan(
		&m.MarketID,
		&m.Category,
		&m.Status,
		&m.Outcome,
		&m.ExpectedResolution,
		&m.ResolvedAt,
		&m.LastPrice,
		&m.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get market by id: %w", err)
	}
	return &m, nil
}

// GetByStatus retrieves all markets with the given status, ordered by
// market_id ASC.
func (s *MarketStore) GetByStatus(ctx context.Context, status string) ([]*domain.Market, error) {
	query := `
		SELECT market_id, category, status, outcome, expected_resolution, resolved_at, last_price, created_at
		FROM markets
		WHERE status = $1
		ORDER BY market_id ASC
	`

	rows, err := s.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("get markets by status: %w", err)
	}
	defer rows.Close()

	return scanMarkets(rows)
}

// GetAll retrieves every market, ordered by market_id ASC.
func (s *MarketStore) GetAll(ctx context.Context) ([]*domain.Market, error) {
	query := `
		SELECT market_id, category, status, outcome, expected_resolution, resolved_at, last_price, created_at
		FROM markets
		ORDER BY market_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all markets: %w", err)
	}
	defer rows.Close()

	return scanMarkets(rows)
}

func scanMarkets(rows pgx.Rows) ([]*domain.Market, error) {
	var markets []*domain.Market
	for rows.Next() {
		var m domain.Market
		if err := rows.Scan(
			&m.MarketID,
			&m.Category,
			&m.Status,
			&m.Outcome,
			&m.ExpectedResolution,
			&m.ResolvedAt,
			&m.LastPrice,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		markets = append(markets, &m)
	}
	return markets, rows.Err()
}
