// Package snapshot implements stage 3 of the pipeline: combining all
// wallets' weighted beliefs for one market into a SmartCrowd probability
// with manipulation diagnostics.
package snapshot

import (
	"math"

	"smartcrowd/internal/domain"
)

// WalletInput is one wallet's contribution to a market snapshot.
type WalletInput struct {
	Belief      *domain.WalletBelief
	TrustWeight float64 // bounded trust weight for the market's context
	SampleSize  int     // best known sample size backing the weight
	WashFlagged bool    // rapid buy/sell reversal pattern detected
}

// Compute aggregates wallet inputs into one snapshot. Pure function: all
// store access happens in the caller. Inputs with non-positive combined
// weight drop out; when none remain the snapshot falls back to the raw
// market price with maximal integrity risk and zero confidence.
func Compute(marketID string, asOf int64, rawPrice float64, inputs []WalletInput, cfg domain.PipelineConfig, now int64) *domain.MarketSnapshot {
	type contribution struct {
		weight     float64
		belief     float64
		confidence float64
		lowSample  bool
		washFlag   bool
	}

	var contribs []contribution
	totalWeight := 0.0
	for _, in := range inputs {
		if in.Belief == nil {
			continue
		}
		w := in.TrustWeight * in.Belief.Confidence
		if w <= 0 {
			continue
		}
		contribs = append(contribs, contribution{
			weight:     w,
			belief:     clamp01(in.Belief.Belief),
			confidence: in.Belief.Confidence,
			lowSample:  in.SampleSize < cfg.MinSampleSize,
			washFlag:   in.WashFlagged,
		})
		totalWeight += w
	}

	if totalWeight <= 0 {
		return &domain.MarketSnapshot{
			MarketID:       marketID,
			AsOf:           asOf,
			SmartCrowdProb: clamp01(rawPrice),
			RawPrice:       rawPrice,
			IntegrityRisk:  1,
			CreatedAt:      now,
		}
	}

	// Normalized weighted mean of beliefs.
	prob := 0.0
	confidence := 0.0
	for _, c := range contribs {
		share := c.weight / totalWeight
		prob += share * c.belief
		confidence += share * c.confidence
	}
	prob = clamp01(prob)

	// Weighted standard deviation of beliefs around the consensus.
	variance := 0.0
	// Herfindahl concentration of weight shares.
	herfindahl := 0.0
	washShare := 0.0
	lowSampleShare := 0.0
	for _, c := range contribs {
		share := c.weight / totalWeight
		variance += share * (c.belief - prob) * (c.belief - prob)
		herfindahl += share * share
		if c.washFlag {
			washShare += share
		}
		if c.lowSample {
			lowSampleShare += share
		}
	}

	return &domain.MarketSnapshot{
		MarketID:       marketID,
		AsOf:           asOf,
		SmartCrowdProb: prob,
		RawPrice:       rawPrice,
		Divergence:     prob - rawPrice,
		Disagreement:   math.Sqrt(variance),
		Concentration:  herfindahl,
		IntegrityRisk:  riskComposite(herfindahl, len(contribs), washShare, lowSampleShare, cfg),
		Confidence:     confidence,
		WalletCount:    len(contribs),
		CreatedAt:      now,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
