// Package trust implements stage 2 of the pipeline: shrinkage-blended,
// penalty-adjusted trust weights per wallet-context.
package trust

import (
	"context"
	"fmt"
	"time"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// Estimator turns stored skill metrics into bounded trust weights.
type Estimator struct {
	metrics storage.MetricsStore
	weights storage.TrustWeightStore
	clock   func() time.Time
}

// NewEstimator creates a new trust weight estimator.
func NewEstimator(metrics storage.MetricsStore, weights storage.TrustWeightStore) *Estimator {
	return &Estimator{
		metrics: metrics,
		weights: weights,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock for deterministic ComputedAt stamps.
func (e *Estimator) WithClock(clock func() time.Time) *Estimator {
	e.clock = clock
	return e
}

// Result summarizes one estimation run.
type Result struct {
	WeightsComputed int
}

// Run computes one trust weight per stored context record and upserts them
// in a single batched write. Wallets without context records are handled at
// aggregation time via global-only blending, so no row is written for them.
func (e *Estimator) Run(ctx context.Context) (*Result, error) {
	return e.RunWithConfig(ctx, domain.DefaultPipelineConfig())
}

// RunWithConfig is Run with an explicit configuration.
func (e *Estimator) RunWithConfig(ctx context.Context, cfg domain.PipelineConfig) (*Result, error) {
	contextRecords, err := e.metrics.GetContextAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load context metrics: %w", err)
	}

	globalRecords, err := e.metrics.GetGlobalAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load global metrics: %w", err)
	}
	globalByWallet := make(map[string]*domain.WalletGlobalMetrics, len(globalRecords))
	for _, g := range globalRecords {
		globalByWallet[g.WalletID] = g
	}

	now := e.clock().UnixMilli()
	weights := make([]*domain.TrustWeight, 0, len(contextRecords))
	for _, cm := range contextRecords {
		weights = append(weights, &domain.TrustWeight{
			WalletID:   cm.WalletID,
			Category:   cm.Category,
			Horizon:    cm.Horizon,
			Weight:     WeightFromMetrics(cm, globalByWallet[cm.WalletID], cfg),
			SampleSize: cm.SampleSize,
			ComputedAt: now,
		})
	}

	if err := e.weights.UpsertBulk(ctx, weights); err != nil {
		return nil, fmt.Errorf("upsert trust weights: %w", err)
	}

	return &Result{WeightsComputed: len(weights)}, nil
}
