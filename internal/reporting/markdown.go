package reporting

import (
	"fmt"
	"strings"
	"time"
)

// leaderboardLimit caps the markdown leaderboard; the CSV carries every row.
const leaderboardLimit = 20

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# SmartCrowd Run Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Markets: %d | Wallets: %d\n\n", r.MarketCount, r.WalletCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Markets | %d |\n", r.DataSummary.TotalMarkets))
	sb.WriteString(fmt.Sprintf("| Active Markets | %d |\n", r.DataSummary.ActiveMarkets))
	sb.WriteString(fmt.Sprintf("| Resolved Markets | %d |\n", r.DataSummary.ResolvedMarkets))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.DataSummary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Total Wallets | %d |\n", r.DataSummary.TotalWallets))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.DataSummary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.DataSummary.DateRangeEnd))
	sb.WriteString("\n")

	// Trust Leaderboard
	sb.WriteString("## Trust Leaderboard\n\n")
	if len(r.Leaderboard) > 0 {
		rows := r.Leaderboard
		if len(rows) > leaderboardLimit {
			rows = rows[:leaderboardLimit]
			sb.WriteString(fmt.Sprintf("Top %d of %d contexts.\n\n", leaderboardLimit, len(r.Leaderboard)))
		}
		sb.WriteString("| Wallet | Category | Horizon | Weight | Samples | Brier | LogLoss | Calib | ROI | Timing |\n")
		sb.WriteString("|--------|----------|---------|--------|---------|-------|---------|-------|-----|--------|\n")
		for _, row := range rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f | %d | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
				row.WalletID, row.Category, row.Horizon,
				row.Weight, row.SampleSize, row.Brier, row.LogLoss,
				row.CalibrationError, row.ROI, row.TimingEdge))
		}
	} else {
		sb.WriteString("No trust weights stored.\n")
	}
	sb.WriteString("\n")

	// Market Snapshots
	sb.WriteString("## Market Snapshots\n\n")
	if len(r.Snapshots) > 0 {
		sb.WriteString("| Market | Category | Status | Prob | Raw | Divergence | Disagree | Conc | Risk | Conf | Wallets |\n")
		sb.WriteString("|--------|----------|--------|------|-----|------------|----------|------|------|------|--------|\n")
		for _, s := range r.Snapshots {
			wallets := fmt.Sprintf("%d", s.WalletCount)
			if s.Fallback {
				wallets = "fallback"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f | %.4f | %+.4f | %.4f | %.4f | %.4f | %.4f | %s |\n",
				s.MarketID, s.Category, s.Status,
				s.SmartCrowdProb, s.RawPrice, s.Divergence,
				s.Disagreement, s.Concentration, s.IntegrityRisk, s.Confidence, wallets))
		}
	} else {
		sb.WriteString("No snapshots stored.\n")
	}
	sb.WriteString("\n")

	// Largest Divergences
	sb.WriteString("## Largest Divergences\n\n")
	if len(r.Divergences) > 0 {
		sb.WriteString("| Market | Prob | Raw | Divergence | Risk |\n")
		sb.WriteString("|--------|------|-----|------------|------|\n")
		for _, s := range r.Divergences {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %+.4f | %.4f |\n",
				s.MarketID, s.SmartCrowdProb, s.RawPrice, s.Divergence, s.IntegrityRisk))
		}
	} else {
		sb.WriteString("No non-fallback snapshots to compare.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
