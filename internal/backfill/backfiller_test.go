package backfill

import (
	"context"
	"testing"
	"time"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/snapshot"
	"smartcrowd/internal/storage/memory"
)

const (
	hourMs  = int64(60 * 60 * 1000)
	startTS = int64(1704067200000) // 2024-01-01 00:00:00 UTC
)

type fixture struct {
	backfiller *Backfiller
	markets    *memory.MarketStore
	trades     *memory.TradeStore
	snapshots  *memory.SnapshotStore
}

func newFixture(t *testing.T, now int64) *fixture {
	t.Helper()
	markets := memory.NewMarketStore()
	trades := memory.NewTradeStore()
	weights := memory.NewTrustWeightStore()
	metrics := memory.NewMetricsStore()
	snapshots := memory.NewSnapshotStore()

	clock := func() time.Time { return time.UnixMilli(now) }
	runner := snapshot.NewRunner(trades, weights, metrics).WithClock(clock)
	return &fixture{
		backfiller: New(markets, trades, snapshots, runner).WithClock(clock),
		markets:    markets,
		trades:     trades,
		snapshots:  snapshots,
	}
}

func f64ptr(v float64) *float64 { return &v }
func i64ptr(v int64) *int64     { return &v }

func (f *fixture) addResolvedMarket(t *testing.T, id string, resolvedAt int64) {
	t.Helper()
	m := &domain.Market{
		MarketID:           id,
		Category:           "crypto",
		Status:             domain.MarketStatusResolved,
		Outcome:            f64ptr(1.0),
		ExpectedResolution: resolvedAt,
		ResolvedAt:         i64ptr(resolvedAt),
		LastPrice:          0.9,
	}
	if err := f.markets.Upsert(context.Background(), m); err != nil {
		t.Fatalf("upsert market: %v", err)
	}
}

func (f *fixture) addTrades(t *testing.T, marketID string, timestamps ...int64) {
	t.Helper()
	var batch []*domain.Trade
	for i, ts := range timestamps {
		batch = append(batch, &domain.Trade{
			TradeID:   marketID + "_t" + string(rune('a'+i)),
			WalletID:  "w1",
			MarketID:  marketID,
			Side:      domain.TradeSideYes,
			Direction: domain.TradeDirectionOpen,
			Price:     0.6,
			Size:      100,
			Timestamp: ts,
		})
	}
	if err := f.trades.InsertBulk(context.Background(), batch); err != nil {
		t.Fatalf("insert trades: %v", err)
	}
}

func TestBackfillRun_EvenlySpacedCheckpoints(t *testing.T) {
	ctx := context.Background()
	resolvedAt := startTS + 100*hourMs
	f := newFixture(t, resolvedAt+hourMs)
	f.addResolvedMarket(t, "m1", resolvedAt)
	f.addTrades(t, "m1", startTS, startTS+20*hourMs, startTS+60*hourMs)

	result, err := f.backfiller.Run(ctx, "m1", 5, domain.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.MarketsProcessed != 1 {
		t.Errorf("expected 1 market processed, got %d", result.MarketsProcessed)
	}
	if result.SnapshotsWritten != 5 {
		t.Errorf("expected 5 snapshots, got %d", result.SnapshotsWritten)
	}

	snaps, err := f.snapshots.GetByMarket(ctx, "m1")
	if err != nil {
		t.Fatalf("get snapshots: %v", err)
	}
	if len(snaps) != 5 {
		t.Fatalf("expected 5 stored snapshots, got %d", len(snaps))
	}
	if snaps[0].AsOf != startTS {
		t.Errorf("expected first checkpoint at the first trade, got %d", snaps[0].AsOf)
	}
	if snaps[len(snaps)-1].AsOf != resolvedAt {
		t.Errorf("expected last checkpoint at resolution, got %d", snaps[len(snaps)-1].AsOf)
	}
	// Spacing between consecutive checkpoints is constant.
	gap := snaps[1].AsOf - snaps[0].AsOf
	for i := 2; i < len(snaps); i++ {
		if snaps[i].AsOf-snaps[i-1].AsOf != gap {
			t.Errorf("uneven spacing at checkpoint %d", i)
		}
	}
}

func TestBackfillRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	resolvedAt := startTS + 100*hourMs
	f := newFixture(t, resolvedAt+hourMs)
	f.addResolvedMarket(t, "m1", resolvedAt)
	f.addTrades(t, "m1", startTS, startTS+50*hourMs)

	cfg := domain.DefaultPipelineConfig()
	if _, err := f.backfiller.Run(ctx, "m1", 4, cfg); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := f.backfiller.Run(ctx, "m1", 4, cfg); err != nil {
		t.Fatalf("second run: %v", err)
	}

	snaps, err := f.snapshots.GetByMarket(ctx, "m1")
	if err != nil {
		t.Fatalf("get snapshots: %v", err)
	}
	if len(snaps) != 4 {
		t.Errorf("expected rerun to replace, not duplicate: got %d rows", len(snaps))
	}
}

func TestBackfillRun_NoOpCases(t *testing.T) {
	ctx := context.Background()
	resolvedAt := startTS + 100*hourMs
	f := newFixture(t, resolvedAt+hourMs)
	f.addResolvedMarket(t, "m_empty", resolvedAt)

	cfg := domain.DefaultPipelineConfig()

	// n <= 0 is a no-op.
	result, err := f.backfiller.Run(ctx, "m_empty", 0, cfg)
	if err != nil {
		t.Fatalf("run n=0: %v", err)
	}
	if result.SnapshotsWritten != 0 {
		t.Errorf("expected no snapshots for n=0, got %d", result.SnapshotsWritten)
	}

	// A market without trades is a no-op.
	result, err = f.backfiller.Run(ctx, "m_empty", 3, cfg)
	if err != nil {
		t.Fatalf("run without trades: %v", err)
	}
	if result.MarketsProcessed != 0 || result.SnapshotsWritten != 0 {
		t.Errorf("expected tradeless market to be skipped, got %+v", result)
	}
}

func TestBackfillRun_SingleCheckpointLandsOnEnd(t *testing.T) {
	ctx := context.Background()
	resolvedAt := startTS + 10*hourMs
	f := newFixture(t, resolvedAt+hourMs)
	f.addResolvedMarket(t, "m1", resolvedAt)
	f.addTrades(t, "m1", startTS)

	if _, err := f.backfiller.Run(ctx, "m1", 1, domain.DefaultPipelineConfig()); err != nil {
		t.Fatalf("run: %v", err)
	}

	snaps, err := f.snapshots.GetByMarket(ctx, "m1")
	if err != nil {
		t.Fatalf("get snapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if snaps[0].AsOf != resolvedAt {
		t.Errorf("expected the single checkpoint at resolution, got %d", snaps[0].AsOf)
	}
}

func TestBackfillRun_AllMarketsIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	resolvedAt := startTS + 100*hourMs
	f := newFixture(t, resolvedAt+hourMs)

	f.addResolvedMarket(t, "m_good", resolvedAt)
	f.addTrades(t, "m_good", startTS, startTS+10*hourMs)

	// A market with trades but no resolution metadata fails snapshotting.
	broken := &domain.Market{MarketID: "m_broken", Category: "crypto", Status: domain.MarketStatusActive}
	if err := f.markets.Upsert(ctx, broken); err != nil {
		t.Fatalf("upsert broken market: %v", err)
	}
	f.addTrades(t, "m_broken", startTS)

	result, err := f.backfiller.Run(ctx, "", 3, domain.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.MarketsProcessed != 1 {
		t.Errorf("expected the good market to finish, got %d processed", result.MarketsProcessed)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected one isolated failure, got %v", result.Errors)
	}

	if _, err := f.snapshots.GetLatest(ctx, "m_good"); err != nil {
		t.Errorf("expected snapshots for the good market: %v", err)
	}
}

func TestBackfillRun_BackfillMatchesLiveSnapshot(t *testing.T) {
	ctx := context.Background()
	resolvedAt := startTS + 100*hourMs
	f := newFixture(t, resolvedAt+hourMs)
	f.addResolvedMarket(t, "m1", resolvedAt)
	f.addTrades(t, "m1", startTS, startTS+40*hourMs, startTS+90*hourMs)

	cfg := domain.DefaultPipelineConfig()
	if _, err := f.backfiller.Run(ctx, "m1", 3, cfg); err != nil {
		t.Fatalf("run: %v", err)
	}

	snaps, err := f.snapshots.GetByMarket(ctx, "m1")
	if err != nil {
		t.Fatalf("get snapshots: %v", err)
	}

	// Recomputing any checkpoint directly yields the stored row.
	m, err := f.markets.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	for _, stored := range snaps {
		live, err := f.backfiller.runner.Snapshot(ctx, m, stored.AsOf, cfg)
		if err != nil {
			t.Fatalf("live snapshot at %d: %v", stored.AsOf, err)
		}
		if live.SmartCrowdProb != stored.SmartCrowdProb {
			t.Errorf("checkpoint %d: live %f != stored %f", stored.AsOf, live.SmartCrowdProb, stored.SmartCrowdProb)
		}
		if live.WalletCount != stored.WalletCount {
			t.Errorf("checkpoint %d: wallet count mismatch", stored.AsOf)
		}
	}
}
