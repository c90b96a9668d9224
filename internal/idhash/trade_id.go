package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(market_id|wallet_id|side|direction|timestamp|size)
// Returns hex-encoded hash (64 characters).
//
// Sources that already carry a native transaction id should keep it; this
// hash exists for sources that deliver bare fills, so re-ingesting the same
// window is rejected as duplicates by the trade store.
func ComputeTradeID(
	marketID string,
	walletID string,
	side string,
	direction string,
	timestamp int64,
	size float64,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d|%.12g",
		marketID,
		walletID,
		side,
		direction,
		timestamp,
		size,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
