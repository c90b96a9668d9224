package domain

// WalletBelief is one wallet's inferred current probability for one market
// at one as-of time. Ephemeral: computed on demand, never persisted
// independently of a snapshot.
type WalletBelief struct {
	WalletID     string
	MarketID     string
	AsOf         int64   // ms
	Belief       float64 // decay-weighted YES probability, in [0,1]
	Confidence   float64 // in [0,1], from decayed trade mass and recency
	OpenPosition bool    // net position still open at AsOf
	TradeCount   int     // trades contributing to the estimate
}
