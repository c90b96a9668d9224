package domain

// PipelineConfig carries every tunable affecting the pure computation.
// It is passed by value into each stage invocation, never read from
// process-wide mutable state.
type PipelineConfig struct {
	// Belief inference
	DecayHalfLifeHours float64 `mapstructure:"decay_half_life_hours"` // per-trade weight halves every N hours
	PersistenceBoost   float64 `mapstructure:"persistence_boost"`     // confidence multiplier for open positions
	ConfidenceMassK    float64 `mapstructure:"confidence_mass_k"`     // mass saturation constant for confidence

	// Metrics
	MinSampleSize   int `mapstructure:"min_sample_size"`  // context groups below this are skipped
	CalibrationBins int `mapstructure:"calibration_bins"` // fixed bin count for calibration error

	// Trust weights
	ShrinkageK                  float64 `mapstructure:"shrinkage_k"`                   // prior strength k in f(n)=n/(n+k)
	ChurnPenaltyThreshold       float64 `mapstructure:"churn_penalty_threshold"`       // reversals per trade above which churn is penalized
	ChurnPenaltyFactor          float64 `mapstructure:"churn_penalty_factor"`          // multiplicative penalty for high churn
	CalibrationPenaltyThreshold float64 `mapstructure:"calibration_penalty_threshold"` // calibration error above which penalized
	CalibrationPenaltyFactor    float64 `mapstructure:"calibration_penalty_factor"`    // multiplicative penalty for poor calibration
	SpecializationCoefficient   float64 `mapstructure:"specialization_coefficient"`    // slope of the focus reward/penalty

	// Integrity diagnostics
	ConcentrationRiskWeight float64 `mapstructure:"concentration_risk_weight"`
	WashTradeRiskWeight     float64 `mapstructure:"wash_trade_risk_weight"`
	LowSampleRiskWeight     float64 `mapstructure:"low_sample_risk_weight"`
	WashTradeWindowMs       int64   `mapstructure:"wash_trade_window_ms"`   // side flips inside this window count as wash-like
	WashTradeMinReversals   int     `mapstructure:"wash_trade_min_reversals"`

	// Backfill
	BacktestCutoffHours float64 `mapstructure:"backtest_cutoff_hours"` // ignore trades older than this before a checkpoint, 0 = no cutoff

	// Execution
	MarketWorkers int `mapstructure:"market_workers"` // bounded pool size for per-market aggregation
}

// DefaultPipelineConfig returns the baseline configuration. Every field is
// valid on its own; loaders override selectively.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DecayHalfLifeHours: 24,
		PersistenceBoost:   1.25,
		ConfidenceMassK:    2.0,

		MinSampleSize:   5,
		CalibrationBins: 10,

		ShrinkageK:                  10,
		ChurnPenaltyThreshold:       0.5,
		ChurnPenaltyFactor:          0.6,
		CalibrationPenaltyThreshold: 0.15,
		CalibrationPenaltyFactor:    0.7,
		SpecializationCoefficient:   0.2,

		ConcentrationRiskWeight: 0.40,
		WashTradeRiskWeight:     0.35,
		LowSampleRiskWeight:     0.25,
		WashTradeWindowMs:       10 * 60 * 1000,
		WashTradeMinReversals:   3,

		BacktestCutoffHours: 0,

		MarketWorkers: 8,
	}
}
