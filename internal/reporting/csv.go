package reporting

import (
	"fmt"
	"strings"
)

// RenderLeaderboardCSV renders leaderboard rows as a CSV string.
func RenderLeaderboardCSV(rows []LeaderboardRow) string {
	var sb strings.Builder

	sb.WriteString("wallet_id,category,horizon,weight,sample_size,")
	sb.WriteString("brier,log_loss,calibration_error,roi,timing_edge\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%d,%.6f,%.6f,%.6f,%.6f,%.6f\n",
			r.WalletID,
			r.Category,
			r.Horizon,
			r.Weight,
			r.SampleSize,
			r.Brier,
			r.LogLoss,
			r.CalibrationError,
			r.ROI,
			r.TimingEdge,
		))
	}

	return sb.String()
}

// RenderSnapshotsCSV renders snapshot rows as a CSV string.
func RenderSnapshotsCSV(rows []SnapshotRow) string {
	var sb strings.Builder

	sb.WriteString("market_id,category,status,as_of,smart_crowd_prob,raw_price,divergence,")
	sb.WriteString("disagreement,concentration,integrity_risk,confidence,wallet_count,fallback\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%t\n",
			r.MarketID,
			r.Category,
			r.Status,
			r.AsOf,
			r.SmartCrowdProb,
			r.RawPrice,
			r.Divergence,
			r.Disagreement,
			r.Concentration,
			r.IntegrityRisk,
			r.Confidence,
			r.WalletCount,
			r.Fallback,
		))
	}

	return sb.String()
}
