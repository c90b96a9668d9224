package trust

import (
	"math"

	"smartcrowd/internal/domain"
)

// Baselines for turning loss metrics into a signed skill score. A coin-flip
// forecaster sits at Brier 0.25 and log loss ln 2; scores are measured as
// improvement over those.
const (
	brierBaseline   = 0.25
	logLossBaseline = math.Ln2
	calibBaseline   = 0.25

	brierWeight   = 0.5
	logLossWeight = 0.3
	calibWeight   = 0.2

	// sigmoidSteepness controls how fast skill saturates the weight bounds.
	sigmoidSteepness = 2.5
)

// RawSkill combines Brier, log loss and calibration error into one signed
// score, sign-flipped so higher is better. Zero is a coin-flip forecaster,
// 1 a perfect one; bad forecasters go negative.
func RawSkill(m domain.SkillMetrics) float64 {
	return brierWeight*(brierBaseline-m.Brier)/brierBaseline +
		logLossWeight*(logLossBaseline-m.LogLoss)/logLossBaseline +
		calibWeight*(calibBaseline-m.CalibrationError)/calibBaseline
}

// ShrinkageBlend shrinks a context score toward the global score with
// f(n) = n/(n+k): small samples lean on the global track record, large
// samples trust the context-specific signal.
func ShrinkageBlend(contextScore, globalScore float64, n int, k float64) float64 {
	if n <= 0 {
		return globalScore
	}
	f := float64(n) / (float64(n) + k)
	return f*contextScore + (1-f)*globalScore
}

// penaltyFactor derives the multiplicative penalty from behavioral metrics:
// high churn and poor calibration reduce the weight, specialization shifts
// it up for focused wallets and down for unfocused ones.
func penaltyFactor(m domain.SkillMetrics, cfg domain.PipelineConfig) float64 {
	penalty := 1.0
	if m.Churn > cfg.ChurnPenaltyThreshold {
		penalty *= cfg.ChurnPenaltyFactor
	}
	if m.CalibrationError > cfg.CalibrationPenaltyThreshold {
		penalty *= cfg.CalibrationPenaltyFactor
	}
	penalty *= 1 + cfg.SpecializationCoefficient*(m.Specialization-0.5)
	if penalty < 0 {
		penalty = 0
	}
	return penalty
}

// BoundedWeight maps a penalized skill score through a logistic transform
// into [MinTrustWeight, MaxTrustWeight]. The transform is centered so a
// zero score with no penalty lands on DefaultTrustWeight.
func BoundedWeight(score, penalty float64) float64 {
	span := domain.MaxTrustWeight - domain.MinTrustWeight
	neutral := domain.DefaultTrustWeight - domain.MinTrustWeight
	offset := -math.Log(span/neutral - 1)

	w := domain.MinTrustWeight + span/(1+math.Exp(-(sigmoidSteepness*score+offset)))
	// Penalties act on the distance above the floor so the result stays
	// inside the bounds and monotone in the penalty.
	w = domain.MinTrustWeight + (w-domain.MinTrustWeight)*penalty

	if w < domain.MinTrustWeight {
		return domain.MinTrustWeight
	}
	if w > domain.MaxTrustWeight {
		return domain.MaxTrustWeight
	}
	return w
}

// WeightFromMetrics computes the trust weight for one wallet-context from
// its context record (may be nil) and global record (may be nil). Pure
// function of metrics and configuration.
func WeightFromMetrics(contextM *domain.WalletContextMetrics, globalM *domain.WalletGlobalMetrics, cfg domain.PipelineConfig) float64 {
	switch {
	case contextM == nil && globalM == nil:
		return domain.DefaultTrustWeight
	case contextM == nil:
		// A global record thinner than the minimum sample carries no signal;
		// the wallet keeps the neutral weight.
		if globalM.SampleSize < cfg.MinSampleSize {
			return domain.DefaultTrustWeight
		}
		// Global-only: shrink the global score toward neutral by its own
		// sample size so a thin track record stays near the default.
		score := ShrinkageBlend(RawSkill(globalM.SkillMetrics), 0, globalM.SampleSize, cfg.ShrinkageK)
		return BoundedWeight(score, penaltyFactor(globalM.SkillMetrics, cfg))
	case globalM == nil:
		score := ShrinkageBlend(RawSkill(contextM.SkillMetrics), 0, contextM.SampleSize, cfg.ShrinkageK)
		return BoundedWeight(score, penaltyFactor(contextM.SkillMetrics, cfg))
	default:
		score := ShrinkageBlend(RawSkill(contextM.SkillMetrics), RawSkill(globalM.SkillMetrics), contextM.SampleSize, cfg.ShrinkageK)
		return BoundedWeight(score, penaltyFactor(contextM.SkillMetrics, cfg))
	}
}
