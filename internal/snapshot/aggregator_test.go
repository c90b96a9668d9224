package snapshot

import (
	"math"
	"testing"

	"smartcrowd/internal/domain"
)

const asOfTS = int64(1704067200000)

func input(belief, confidence, trust float64, sampleSize int) WalletInput {
	return WalletInput{
		Belief: &domain.WalletBelief{
			WalletID:   "w",
			MarketID:   "m1",
			AsOf:       asOfTS,
			Belief:     belief,
			Confidence: confidence,
		},
		TrustWeight: trust,
		SampleSize:  sampleSize,
	}
}

func TestCompute_WeightedMean(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	// Combined weights 2 and 1: (0.70*2 + 0.35*1) / 3 = 0.5833...
	inputs := []WalletInput{
		input(0.70, 1.0, 2.0, 20),
		input(0.35, 1.0, 1.0, 20),
	}

	snap := Compute("m1", asOfTS, 0.50, inputs, cfg, asOfTS)
	expected := (0.70*2 + 0.35*1) / 3
	if math.Abs(snap.SmartCrowdProb-expected) > 1e-9 {
		t.Errorf("expected prob %f, got %f", expected, snap.SmartCrowdProb)
	}
	if math.Abs(snap.Divergence-(expected-0.50)) > 1e-9 {
		t.Errorf("expected divergence %f, got %f", expected-0.50, snap.Divergence)
	}
	if snap.WalletCount != 2 {
		t.Errorf("expected 2 wallets, got %d", snap.WalletCount)
	}
}

func TestCompute_ConfidenceScalesWeight(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	// Equal trust but the second wallet's confidence is half: combined
	// weights 1.0 and 0.5.
	inputs := []WalletInput{
		input(0.9, 1.0, 1.0, 20),
		input(0.3, 0.5, 1.0, 20),
	}

	snap := Compute("m1", asOfTS, 0.5, inputs, cfg, asOfTS)
	expected := (0.9*1.0 + 0.3*0.5) / 1.5
	if math.Abs(snap.SmartCrowdProb-expected) > 1e-9 {
		t.Errorf("expected prob %f, got %f", expected, snap.SmartCrowdProb)
	}
}

func TestCompute_FallbackOnNoInputs(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()

	snap := Compute("m1", asOfTS, 0.63, nil, cfg, asOfTS)
	if !snap.Fallback() {
		t.Error("expected fallback snapshot")
	}
	if snap.SmartCrowdProb != 0.63 {
		t.Errorf("expected raw price passthrough, got %f", snap.SmartCrowdProb)
	}
	if snap.IntegrityRisk != 1 {
		t.Errorf("expected maximal integrity risk, got %f", snap.IntegrityRisk)
	}
	if snap.Confidence != 0 {
		t.Errorf("expected zero confidence, got %f", snap.Confidence)
	}
}

func TestCompute_FallbackOnZeroWeights(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	inputs := []WalletInput{
		input(0.8, 0, 2.0, 20),   // zero confidence
		input(0.4, 1.0, 0, 20),   // zero trust
		{Belief: nil, TrustWeight: 1}, // no belief at all
	}

	snap := Compute("m1", asOfTS, 0.40, inputs, cfg, asOfTS)
	if !snap.Fallback() {
		t.Error("expected fallback when every combined weight is zero")
	}
	if snap.SmartCrowdProb != 0.40 {
		t.Errorf("expected raw price passthrough, got %f", snap.SmartCrowdProb)
	}
}

func TestCompute_DisagreementZeroWhenUnanimous(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	inputs := []WalletInput{
		input(0.6, 1.0, 1.0, 20),
		input(0.6, 0.8, 2.5, 20),
		input(0.6, 0.9, 0.5, 20),
	}

	snap := Compute("m1", asOfTS, 0.5, inputs, cfg, asOfTS)
	if snap.Disagreement > 1e-9 {
		t.Errorf("expected zero disagreement, got %f", snap.Disagreement)
	}
}

func TestCompute_DisagreementGrowsWithSpread(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	tight := []WalletInput{
		input(0.58, 1.0, 1.0, 20),
		input(0.62, 1.0, 1.0, 20),
	}
	wide := []WalletInput{
		input(0.10, 1.0, 1.0, 20),
		input(0.90, 1.0, 1.0, 20),
	}

	snapTight := Compute("m1", asOfTS, 0.5, tight, cfg, asOfTS)
	snapWide := Compute("m1", asOfTS, 0.5, wide, cfg, asOfTS)
	if snapWide.Disagreement <= snapTight.Disagreement {
		t.Errorf("expected wider spread to disagree more: %f vs %f", snapWide.Disagreement, snapTight.Disagreement)
	}
	// Two equal weights split 0.4 from the mean: stddev is exactly 0.4.
	if math.Abs(snapWide.Disagreement-0.4) > 1e-9 {
		t.Errorf("expected disagreement 0.4, got %f", snapWide.Disagreement)
	}
}

func TestCompute_HerfindahlBounds(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()

	uniform := []WalletInput{
		input(0.5, 1.0, 1.0, 20),
		input(0.5, 1.0, 1.0, 20),
		input(0.5, 1.0, 1.0, 20),
		input(0.5, 1.0, 1.0, 20),
	}
	snap := Compute("m1", asOfTS, 0.5, uniform, cfg, asOfTS)
	if math.Abs(snap.Concentration-0.25) > 1e-9 {
		t.Errorf("expected H=1/4 for four equal weights, got %f", snap.Concentration)
	}

	dominated := []WalletInput{
		input(0.5, 1.0, 4.0, 20),
		input(0.5, 0.01, 0.1, 20),
	}
	snap = Compute("m1", asOfTS, 0.5, dominated, cfg, asOfTS)
	if snap.Concentration < 0.99 {
		t.Errorf("expected near-1 concentration under domination, got %f", snap.Concentration)
	}
}

func TestCompute_IntegrityRiskRisesWithWashShare(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()

	clean := []WalletInput{
		input(0.5, 1.0, 1.0, 20),
		input(0.6, 1.0, 1.0, 20),
	}
	flagged := []WalletInput{
		clean[0],
		clean[1],
	}
	flagged[1].WashFlagged = true

	snapClean := Compute("m1", asOfTS, 0.5, clean, cfg, asOfTS)
	snapFlagged := Compute("m1", asOfTS, 0.5, flagged, cfg, asOfTS)
	if snapFlagged.IntegrityRisk <= snapClean.IntegrityRisk {
		t.Errorf("expected wash flag to raise risk: %f vs %f", snapFlagged.IntegrityRisk, snapClean.IntegrityRisk)
	}
}

func TestCompute_IntegrityRiskRisesWithLowSamples(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()

	seasoned := []WalletInput{
		input(0.5, 1.0, 1.0, 50),
		input(0.6, 1.0, 1.0, 50),
	}
	green := []WalletInput{
		input(0.5, 1.0, 1.0, 1),
		input(0.6, 1.0, 1.0, 1),
	}

	snapSeasoned := Compute("m1", asOfTS, 0.5, seasoned, cfg, asOfTS)
	snapGreen := Compute("m1", asOfTS, 0.5, green, cfg, asOfTS)
	if snapGreen.IntegrityRisk <= snapSeasoned.IntegrityRisk {
		t.Errorf("expected low samples to raise risk: %f vs %f", snapGreen.IntegrityRisk, snapSeasoned.IntegrityRisk)
	}
}

func TestCompute_SingleWalletMaxConcentrationRisk(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()

	snap := Compute("m1", asOfTS, 0.5, []WalletInput{input(0.7, 1.0, 1.0, 50)}, cfg, asOfTS)
	if snap.Fallback() {
		t.Fatal("single wallet is not a fallback")
	}
	// One wallet holds everything: concentration term saturates.
	if snap.IntegrityRisk < cfg.ConcentrationRiskWeight-1e-9 {
		t.Errorf("expected risk at least the concentration weight, got %f", snap.IntegrityRisk)
	}
}

func TestCompute_ProbStaysInUnitInterval(t *testing.T) {
	cfg := domain.DefaultPipelineConfig()
	inputs := []WalletInput{
		input(1.2, 1.0, 1.0, 20),  // out-of-range belief gets clamped
		input(-0.2, 1.0, 1.0, 20),
	}

	snap := Compute("m1", asOfTS, 0.5, inputs, cfg, asOfTS)
	if snap.SmartCrowdProb < 0 || snap.SmartCrowdProb > 1 {
		t.Errorf("probability out of range: %f", snap.SmartCrowdProb)
	}
}
