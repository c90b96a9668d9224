package domain

// SkillMetrics holds the per-group forecasting skill metrics shared by
// context and global records. All loss metrics are lower-is-better.
type SkillMetrics struct {
	Brier            float64 // mean squared error vs realized outcome
	LogLoss          float64 // mean negative log-likelihood, probabilities clamped
	CalibrationError float64 // count-weighted bucket deviation
	Churn            float64 // directional reversals per trade
	Persistence      float64 // fraction of positions held to resolution
	TimingEdge       float64 // mean favorable move remaining at entry
	ROI              float64 // mean realized return on capital committed
	Specialization   float64 // 1 - normalized category activity entropy
	SampleSize       int     // trades in the group
}

// WalletContextMetrics is the skill record for one (wallet, category, horizon)
// group over resolved markets. Recomputed wholesale each pipeline run.
type WalletContextMetrics struct {
	WalletID string
	Category string
	Horizon  Horizon
	SkillMetrics
	ComputedAt int64 // ms
}

// WalletGlobalMetrics aggregates the same metric set across all categories
// and horizons for one wallet. Serves as the shrinkage prior for sparse
// context groups.
type WalletGlobalMetrics struct {
	WalletID string
	SkillMetrics
	ComputedAt int64 // ms
}
