package domain

// Market represents a prediction market and its resolution metadata.
// Corresponds to markets table in PostgreSQL.
type Market struct {
	MarketID           string   // PRIMARY KEY
	Category           string   // e.g. "politics", "sports", "crypto"
	Status             string   // "active" | "resolved"
	Outcome            *float64 // realized YES probability, nil while unresolved
	ExpectedResolution int64    // expected resolution timestamp (ms)
	ResolvedAt         *int64   // actual resolution timestamp (ms), nil while unresolved
	LastPrice          float64  // most recent raw traded YES price
	CreatedAt          int64    // record creation timestamp (ms)
}

// Market status constants
const (
	MarketStatusActive   = "active"
	MarketStatusResolved = "resolved"
)

// Resolved reports whether the market has a known outcome.
func (m *Market) Resolved() bool {
	return m.Status == MarketStatusResolved && m.Outcome != nil
}

// ResolutionTime returns the best known resolution timestamp: the actual
// one when resolved, the expected one otherwise.
func (m *Market) ResolutionTime() int64 {
	if m.ResolvedAt != nil {
		return *m.ResolvedAt
	}
	return m.ExpectedResolution
}
