package domain

// MarketSnapshot is the aggregated SmartCrowd view of one market at one
// as-of time, plus manipulation diagnostics. Keyed by (market_id, as_of);
// history is append-only, a run never mutates a prior snapshot.
type MarketSnapshot struct {
	MarketID       string
	AsOf           int64   // ms
	SmartCrowdProb float64 // trust-weighted consensus probability, in [0,1]
	RawPrice       float64 // raw traded YES price at AsOf
	Divergence     float64 // SmartCrowdProb - RawPrice
	Disagreement   float64 // weighted stddev of beliefs around the consensus
	Concentration  float64 // Herfindahl index of combined weight shares
	IntegrityRisk  float64 // composite manipulation risk, in [0,1]
	Confidence     float64 // aggregation confidence, 0 on raw-price fallback
	WalletCount    int     // contributing wallets
	CreatedAt      int64   // ms
}

// Fallback reports whether the snapshot fell back to the raw market price
// because no wallet carried positive combined weight.
func (s *MarketSnapshot) Fallback() bool {
	return s.WalletCount == 0
}
