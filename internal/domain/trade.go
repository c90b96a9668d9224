package domain

// Trade represents one executed trade on a prediction market.
// Corresponds to trades table in PostgreSQL. Immutable once ingested.
type Trade struct {
	TradeID   string  // PRIMARY KEY, deterministic hash
	WalletID  string  // trading wallet address
	MarketID  string  // FK to markets
	Side      string  // "yes" | "no"
	Direction string  // "open" | "close"
	Price     float64 // implied probability of the side taken, at execution
	Size      float64 // capital committed, in collateral units
	Timestamp int64   // Unix timestamp in milliseconds
	CreatedAt int64   // record creation timestamp (ms)
}

// Trade side constants
const (
	TradeSideYes = "yes"
	TradeSideNo  = "no"
)

// Trade direction constants
const (
	TradeDirectionOpen  = "open"
	TradeDirectionClose = "close"
)

// YesProb returns the trade's implied probability for the YES outcome.
// For a "no" side trade the yes-equivalent is the complement of the executed price.
func (t *Trade) YesProb() float64 {
	if t.Side == TradeSideNo {
		return 1 - t.Price
	}
	return t.Price
}

// SideOutcome maps a resolved market outcome (probability that YES realized)
// to the realized value of the side this trade took.
func (t *Trade) SideOutcome(outcome float64) float64 {
	if t.Side == TradeSideNo {
		return 1 - outcome
	}
	return outcome
}
