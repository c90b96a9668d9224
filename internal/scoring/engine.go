// Package scoring implements stage 1 of the pipeline: per-wallet skill
// metrics over resolved markets, at context (wallet, category, horizon) and
// global (wallet) granularity.
package scoring

import (
	"context"
	"fmt"
	"time"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// Engine computes wallet skill metrics from the resolved trade ledger and
// bulk-upserts them, replacing prior values.
type Engine struct {
	markets storage.MarketStore
	trades  storage.TradeStore
	metrics storage.MetricsStore
	clock   func() time.Time
}

// NewEngine creates a new metrics engine.
func NewEngine(markets storage.MarketStore, trades storage.TradeStore, metrics storage.MetricsStore) *Engine {
	return &Engine{
		markets: markets,
		trades:  trades,
		metrics: metrics,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock for deterministic ComputedAt stamps.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Result summarizes one scoring run.
type Result struct {
	WalletsScored  int
	ContextRecords int
	GlobalRecords  int
	TradesScored   int
	TradesSkipped  int // malformed trades excluded from scoring
}

// groupKey identifies one context group.
type groupKey struct {
	walletID string
	category string
	horizon  domain.Horizon
}

// Run loads all trades of resolved markets, computes context and global
// metric records and upserts them in two batched writes. Context groups
// below cfg.MinSampleSize are skipped but still feed the global aggregate.
func (e *Engine) Run(ctx context.Context, cfg domain.PipelineConfig) (*Result, error) {
	resolved, err := e.markets.GetByStatus(ctx, domain.MarketStatusResolved)
	if err != nil {
		return nil, fmt.Errorf("load resolved markets: %w", err)
	}

	result := &Result{}
	contextGroups := make(map[groupKey][]resolvedTrade)
	globalGroups := make(map[string][]resolvedTrade)
	categoryCounts := make(map[string]map[string]int) // wallet_id -> category -> trades

	for _, m := range resolved {
		if m.Outcome == nil {
			// Status says resolved but the outcome never arrived; treat as
			// unresolved rather than scoring against a guess.
			continue
		}

		trades, err := e.trades.GetByMarket(ctx, m.MarketID, m.ResolutionTime())
		if err != nil {
			return nil, fmt.Errorf("load trades for market %s: %w", m.MarketID, err)
		}

		lastTS := make(map[string]int64) // wallet_id -> last accepted timestamp
		for _, t := range trades {
			if !tradeWellFormed(t) || t.Timestamp < lastTS[t.WalletID] {
				result.TradesSkipped++
				continue
			}
			lastTS[t.WalletID] = t.Timestamp

			rt := resolvedTrade{trade: t, outcome: *m.Outcome}
			horizon := domain.HorizonAt(m.ResolutionTime(), t.Timestamp)

			key := groupKey{t.WalletID, m.Category, horizon}
			contextGroups[key] = append(contextGroups[key], rt)
			globalGroups[t.WalletID] = append(globalGroups[t.WalletID], rt)

			if categoryCounts[t.WalletID] == nil {
				categoryCounts[t.WalletID] = make(map[string]int)
			}
			categoryCounts[t.WalletID][m.Category]++
			result.TradesScored++
		}
	}

	now := e.clock().UnixMilli()

	var globalRecords []*domain.WalletGlobalMetrics
	for walletID, trades := range globalGroups {
		spec := computeSpecialization(categoryCounts[walletID])
		globalRecords = append(globalRecords, &domain.WalletGlobalMetrics{
			WalletID:     walletID,
			SkillMetrics: computeGroup(trades, cfg.CalibrationBins, spec),
			ComputedAt:   now,
		})
	}

	var contextRecords []*domain.WalletContextMetrics
	for key, trades := range contextGroups {
		if len(trades) < cfg.MinSampleSize {
			continue
		}
		spec := computeSpecialization(categoryCounts[key.walletID])
		contextRecords = append(contextRecords, &domain.WalletContextMetrics{
			WalletID:     key.walletID,
			Category:     key.category,
			Horizon:      key.horizon,
			SkillMetrics: computeGroup(trades, cfg.CalibrationBins, spec),
			ComputedAt:   now,
		})
	}

	if err := e.metrics.UpsertGlobalBulk(ctx, globalRecords); err != nil {
		return nil, fmt.Errorf("upsert global metrics: %w", err)
	}
	if err := e.metrics.UpsertContextBulk(ctx, contextRecords); err != nil {
		return nil, fmt.Errorf("upsert context metrics: %w", err)
	}

	result.WalletsScored = len(globalRecords)
	result.ContextRecords = len(contextRecords)
	result.GlobalRecords = len(globalRecords)
	return result, nil
}

// tradeWellFormed rejects trades the estimators cannot use.
func tradeWellFormed(t *domain.Trade) bool {
	if t == nil || t.Timestamp <= 0 || t.Size <= 0 {
		return false
	}
	if t.Price < 0 || t.Price > 1 {
		return false
	}
	if t.Side != domain.TradeSideYes && t.Side != domain.TradeSideNo {
		return false
	}
	return true
}
