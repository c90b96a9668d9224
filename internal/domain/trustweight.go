package domain

// Trust weight bounds. Every stored weight lies inside this interval and a
// wallet with no history of any kind receives DefaultTrustWeight.
const (
	MinTrustWeight     = 0.10
	MaxTrustWeight     = 4.00
	DefaultTrustWeight = 1.00
)

// TrustWeight is the bounded aggregation weight for one
// (wallet, category, horizon) context. Pure function of stored metrics and
// configuration; recomputed wholesale each pipeline run.
type TrustWeight struct {
	WalletID   string
	Category   string
	Horizon    Horizon
	Weight     float64 // in [MinTrustWeight, MaxTrustWeight]
	SampleSize int     // context sample size the blend was computed with
	ComputedAt int64   // ms
}
