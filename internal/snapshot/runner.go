package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartcrowd/internal/belief"
	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
	"smartcrowd/internal/trust"
)

// ErrNoResolutionMetadata is returned when a market carries neither a
// resolution nor an expected-resolution time, so no horizon can be derived.
var ErrNoResolutionMetadata = errors.New("market has no resolution metadata")

// Runner assembles one market snapshot from stored trades, trust weights
// and skill metrics. Shared by the live pipeline and the backfiller; the
// backfiller passes historical as-of times and the horizon is recomputed
// relative to each.
type Runner struct {
	trades  storage.TradeStore
	weights storage.TrustWeightStore
	metrics storage.MetricsStore
	clock   func() time.Time
}

// NewRunner creates a new snapshot runner.
func NewRunner(trades storage.TradeStore, weights storage.TrustWeightStore, metrics storage.MetricsStore) *Runner {
	return &Runner{
		trades:  trades,
		weights: weights,
		metrics: metrics,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock for deterministic CreatedAt stamps.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// Snapshot computes the market's snapshot at asOf using only trades with
// timestamp <= asOf. The returned snapshot is not persisted.
func (r *Runner) Snapshot(ctx context.Context, market *domain.Market, asOf int64, cfg domain.PipelineConfig) (*domain.MarketSnapshot, error) {
	if market == nil {
		return nil, storage.ErrInvalidInput
	}
	if market.ResolutionTime() == 0 {
		return nil, fmt.Errorf("market %s: %w", market.MarketID, ErrNoResolutionMetadata)
	}

	horizon := domain.HorizonAt(market.ResolutionTime(), asOf)

	marketTrades, err := r.trades.GetByMarket(ctx, market.MarketID, asOf)
	if err != nil {
		return nil, fmt.Errorf("load trades for market %s: %w", market.MarketID, err)
	}

	// Optional cutoff: very old trades stop informing historical replays.
	if cfg.BacktestCutoffHours > 0 {
		cutoff := asOf - int64(cfg.BacktestCutoffHours*float64(60*60*1000))
		trimmed := marketTrades[:0]
		for _, t := range marketTrades {
			if t.Timestamp >= cutoff {
				trimmed = append(trimmed, t)
			}
		}
		marketTrades = trimmed
	}

	rawPrice := market.LastPrice
	if n := len(marketTrades); n > 0 {
		rawPrice = marketTrades[n-1].YesProb()
	}

	byWallet := make(map[string][]*domain.Trade)
	for _, t := range marketTrades {
		byWallet[t.WalletID] = append(byWallet[t.WalletID], t)
	}

	var inputs []WalletInput
	for walletID, seq := range byWallet {
		b, _ := belief.Infer(walletID, market.MarketID, seq, asOf, cfg)
		if b == nil {
			continue
		}

		weight, sampleSize, err := r.lookupWeight(ctx, walletID, market.Category, horizon, cfg)
		if err != nil {
			return nil, err
		}

		inputs = append(inputs, WalletInput{
			Belief:      b,
			TrustWeight: weight,
			SampleSize:  sampleSize,
			WashFlagged: DetectWashPattern(seq, cfg.WashTradeWindowMs, cfg.WashTradeMinReversals),
		})
	}

	return Compute(market.MarketID, asOf, rawPrice, inputs, cfg, r.clock().UnixMilli()), nil
}

// lookupWeight resolves a wallet's trust weight for the market's context:
// the stored context weight when present, otherwise global-only blending
// from the wallet's global metrics, otherwise the default weight.
func (r *Runner) lookupWeight(ctx context.Context, walletID, category string, horizon domain.Horizon, cfg domain.PipelineConfig) (float64, int, error) {
	tw, err := r.weights.Get(ctx, walletID, category, horizon)
	if err == nil {
		return tw.Weight, tw.SampleSize, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, 0, fmt.Errorf("load trust weight for %s: %w", walletID, err)
	}

	global, err := r.metrics.GetGlobal(ctx, walletID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.DefaultTrustWeight, 0, nil
		}
		return 0, 0, fmt.Errorf("load global metrics for %s: %w", walletID, err)
	}
	return trust.WeightFromMetrics(nil, global, cfg), global.SampleSize, nil
}
