package snapshot

import (
	"smartcrowd/internal/domain"
)

// DetectWashPattern reports whether a wallet's trade sequence within one
// market shows rapid buy/sell flip-flopping: at least minReversals side
// reversals each landing within windowMs of the previous trade. Trades must
// be time-ordered.
func DetectWashPattern(trades []*domain.Trade, windowMs int64, minReversals int) bool {
	if minReversals <= 0 || len(trades) < 2 {
		return false
	}

	reversals := 0
	for i := 1; i < len(trades); i++ {
		prev, cur := trades[i-1], trades[i]
		if cur.Side != prev.Side && cur.Timestamp-prev.Timestamp <= windowMs {
			reversals++
			if reversals >= minReversals {
				return true
			}
		}
	}
	return false
}

// riskComposite combines the three manipulation signals into one score in
// [0,1], monotonically increasing in each: weight concentration, the weight
// share of wash-flagged wallets, and the weight share of low-sample wallets.
// Coefficients come from configuration and are documented there.
func riskComposite(herfindahl float64, n int, washShare, lowSampleShare float64, cfg domain.PipelineConfig) float64 {
	var concentration float64
	if n <= 1 {
		concentration = 1
	} else {
		// Rescale so the uniform distribution (H = 1/N) maps to zero and a
		// single dominant wallet (H = 1) maps to one.
		floor := 1 / float64(n)
		concentration = (herfindahl - floor) / (1 - floor)
		concentration = clamp01(concentration)
	}

	risk := cfg.ConcentrationRiskWeight*concentration +
		cfg.WashTradeRiskWeight*washShare +
		cfg.LowSampleRiskWeight*lowSampleShare
	return clamp01(risk)
}
