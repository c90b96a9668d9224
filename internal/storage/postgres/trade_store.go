package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO trades (
		trade_id, wallet_id, market_id, side, direction, price, size, timestamp, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// InsertBulk adds multiple trades atomically. Fails the entire batch with
// ErrDuplicateKey if any trade_id exists.
func (s *TradeStore) InsertBulk(ctx context.Context, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if t == nil || t.TradeID == "" || t.WalletID == "" || t.MarketID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertTradeQuery,
			t.TradeID,
			t.WalletID,
			t.MarketID,
			t.Side,
			t.Direction,
			t.Price,
			t.Size,
			t.Timestamp,
			t.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByMarket retrieves all trades for a market with timestamp <= until,
// ordered by timestamp ASC, trade_id ASC.
func (s *TradeStore) GetByMarket(ctx context.Context, marketID string, until int64) ([]*domain.Trade, error) {
	query := `
		SELECT trade_id, wallet_id, market_id, side, direction, price, size, timestamp, created_at
		FROM trades
		WHERE market_id = $1 AND timestamp <= $2
		ORDER BY timestamp ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, marketID, until)
	if err != nil {
		return nil, fmt.Errorf("get trades by market: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByMarketWallet retrieves one wallet's trade sequence within a market
// with timestamp <= until, ordered by timestamp ASC, trade_id ASC.
func (s *TradeStore) GetByMarketWallet(ctx context.Context, marketID, walletID string, until int64) ([]*domain.Trade, error) {
	query := `
		SELECT trade_id, wallet_id, market_id, side, direction, price, size, timestamp, created_at
		FROM trades
		WHERE market_id = $1 AND wallet_id = $2 AND timestamp <= $3
		ORDER BY timestamp ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, marketID, walletID, until)
	if err != nil {
		return nil, fmt.Errorf("get trades by market and wallet: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListWalletsByMarket returns the distinct wallets with any trade in the
// market at timestamp <= until, sorted ascending.
func (s *TradeStore) ListWalletsByMarket(ctx context.Context, marketID string, until int64) ([]string, error) {
	query := `
		SELECT DISTINCT wallet_id
		FROM trades
		WHERE market_id = $1 AND timestamp <= $2
		ORDER BY wallet_id ASC
	`

	rows, err := s.pool.Query(ctx, query, marketID, until)
	if err != nil {
		return nil, fmt.Errorf("list wallets by market: %w", err)
	}
	defer rows.Close()

	var wallets []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// scanTrades reads trade rows.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(
			&t.TradeID,
			&t.WalletID,
			&t.MarketID,
			&t.Side,
			&t.Direction,
			&t.Price,
			&t.Size,
			&t.Timestamp,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}
