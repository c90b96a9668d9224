package reporting

import (
	"time"

	"smartcrowd/internal/domain"
)

// Report is the run summary produced after a pipeline recompute.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	WalletCount int
	MarketCount int

	// Data Summary
	DataSummary DataSummary

	// Trust Leaderboard (sorted by weight descending)
	Leaderboard []LeaderboardRow

	// Latest snapshot per market (sorted by market_id)
	Snapshots []SnapshotRow

	// Largest divergences between the consensus and the raw price,
	// fallback snapshots excluded (sorted by |divergence| descending)
	Divergences []SnapshotRow
}

// DataSummary describes the ingested universe the run was computed over.
type DataSummary struct {
	TotalMarkets    int
	ActiveMarkets   int
	ResolvedMarkets int
	TotalTrades     int
	TotalWallets    int
	DateRangeStart  int64 // Unix ms, earliest trade
	DateRangeEnd    int64 // Unix ms, latest trade
}

// LeaderboardRow is one stored trust weight joined with its context metrics.
type LeaderboardRow struct {
	WalletID         string
	Category         string
	Horizon          domain.Horizon
	Weight           float64
	SampleSize       int
	Brier            float64
	LogLoss          float64
	CalibrationError float64
	ROI              float64
	TimingEdge       float64
}

// SnapshotRow is the latest consensus snapshot for one market.
type SnapshotRow struct {
	MarketID       string
	Category       string
	Status         string
	AsOf           int64
	SmartCrowdProb float64
	RawPrice       float64
	Divergence     float64
	Disagreement   float64
	Concentration  float64
	IntegrityRisk  float64
	Confidence     float64
	WalletCount    int
	Fallback       bool
}
