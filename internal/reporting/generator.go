package reporting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	marketStore      storage.MarketStore
	tradeStore       storage.TradeStore
	metricsStore     storage.MetricsStore
	trustWeightStore storage.TrustWeightStore
	snapshotStore    storage.SnapshotStore
	now              func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	marketStore storage.MarketStore,
	tradeStore storage.TradeStore,
	metricsStore storage.MetricsStore,
	trustWeightStore storage.TrustWeightStore,
	snapshotStore storage.SnapshotStore,
) *Generator {
	return &Generator{
		marketStore:      marketStore,
		tradeStore:       tradeStore,
		metricsStore:     metricsStore,
		trustWeightStore: trustWeightStore,
		snapshotStore:    snapshotStore,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete run report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	markets, err := g.marketStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}

	summary, walletCount, err := g.generateDataSummary(ctx, markets)
	if err != nil {
		return nil, err
	}

	leaderboard, err := g.generateLeaderboard(ctx)
	if err != nil {
		return nil, err
	}

	snapshots, err := g.generateSnapshots(ctx, markets)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		WalletCount: walletCount,
		MarketCount: len(markets),
		DataSummary: *summary,
		Leaderboard: leaderboard,
		Snapshots:   snapshots,
		Divergences: topDivergences(snapshots, 5),
	}, nil
}

// generateDataSummary walks every market's trade history up to now.
func (g *Generator) generateDataSummary(ctx context.Context, markets []*domain.Market) (*DataSummary, int, error) {
	nowMs := g.now().UnixMilli()

	summary := &DataSummary{TotalMarkets: len(markets)}
	wallets := make(map[string]struct{})

	for _, m := range markets {
		switch m.Status {
		case domain.MarketStatusActive:
			summary.ActiveMarkets++
		case domain.MarketStatusResolved:
			summary.ResolvedMarkets++
		}

		trades, err := g.tradeStore.GetByMarket(ctx, m.MarketID, nowMs)
		if err != nil {
			return nil, 0, fmt.Errorf("load trades for %s: %w", m.MarketID, err)
		}

		summary.TotalTrades += len(trades)
		for _, t := range trades {
			wallets[t.WalletID] = struct{}{}
			if summary.DateRangeStart == 0 || t.Timestamp < summary.DateRangeStart {
				summary.DateRangeStart = t.Timestamp
			}
			if t.Timestamp > summary.DateRangeEnd {
				summary.DateRangeEnd = t.Timestamp
			}
		}
	}

	summary.TotalWallets = len(wallets)
	return summary, len(wallets), nil
}

// generateLeaderboard joins stored trust weights with their context metrics.
func (g *Generator) generateLeaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	weights, err := g.trustWeightStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trust weights: %w", err)
	}

	rows := make([]LeaderboardRow, 0, len(weights))
	for _, w := range weights {
		row := LeaderboardRow{
			WalletID:   w.WalletID,
			Category:   w.Category,
			Horizon:    w.Horizon,
			Weight:     w.Weight,
			SampleSize: w.SampleSize,
		}

		m, err := g.metricsStore.GetContext(ctx, w.WalletID, w.Category, w.Horizon)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load context metrics: %w", err)
		}
		if m != nil {
			row.Brier = m.Brier
			row.LogLoss = m.LogLoss
			row.CalibrationError = m.CalibrationError
			row.ROI = m.ROI
			row.TimingEdge = m.TimingEdge
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Weight != rows[j].Weight {
			return rows[i].Weight > rows[j].Weight
		}
		if rows[i].WalletID != rows[j].WalletID {
			return rows[i].WalletID < rows[j].WalletID
		}
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Horizon < rows[j].Horizon
	})

	return rows, nil
}

// generateSnapshots collects the latest snapshot per market. Markets without
// any snapshot yet are skipped.
func (g *Generator) generateSnapshots(ctx context.Context, markets []*domain.Market) ([]SnapshotRow, error) {
	var rows []SnapshotRow
	for _, m := range markets {
		snap, err := g.snapshotStore.GetLatest(ctx, m.MarketID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load latest snapshot for %s: %w", m.MarketID, err)
		}

		rows = append(rows, SnapshotRow{
			MarketID:       snap.MarketID,
			Category:       m.Category,
			Status:         m.Status,
			AsOf:           snap.AsOf,
			SmartCrowdProb: snap.SmartCrowdProb,
			RawPrice:       snap.RawPrice,
			Divergence:     snap.Divergence,
			Disagreement:   snap.Disagreement,
			Concentration:  snap.Concentration,
			IntegrityRisk:  snap.IntegrityRisk,
			Confidence:     snap.Confidence,
			WalletCount:    snap.WalletCount,
			Fallback:       snap.Fallback(),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].MarketID < rows[j].MarketID
	})
	return rows, nil
}

// topDivergences returns up to limit non-fallback snapshots ordered by
// absolute divergence descending.
func topDivergences(snapshots []SnapshotRow, limit int) []SnapshotRow {
	var rows []SnapshotRow
	for _, s := range snapshots {
		if s.Fallback {
			continue
		}
		rows = append(rows, s)
	}

	sort.Slice(rows, func(i, j int) bool {
		di, dj := math.Abs(rows[i].Divergence), math.Abs(rows[j].Divergence)
		if di != dj {
			return di > dj
		}
		return rows[i].MarketID < rows[j].MarketID
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}
