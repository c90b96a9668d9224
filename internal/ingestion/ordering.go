package ingestion

import (
	"errors"
	"sort"
	"strings"

	"smartcrowd/internal/domain"
)

// ErrInvalidOrdering is returned when trades are not deterministically ordered.
var ErrInvalidOrdering = errors.New("trades are not in deterministic order")

// SortTrades orders trades by (timestamp ASC, trade_id ASC). This fixes a
// deterministic ingestion order regardless of how the source paginates.
func SortTrades(trades []*domain.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		return compareTrades(trades[i], trades[j]) < 0
	})
}

// ValidateTradeOrdering checks that trades are strictly ordered.
// Returns ErrInvalidOrdering if not.
func ValidateTradeOrdering(trades []*domain.Trade) error {
	for i := 1; i < len(trades); i++ {
		if compareTrades(trades[i-1], trades[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareTrades returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (timestamp ASC, trade_id ASC)
func compareTrades(a, b *domain.Trade) int {
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	}
	return strings.Compare(a.TradeID, b.TradeID)
}
