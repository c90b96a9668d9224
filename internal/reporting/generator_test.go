package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/storage/memory"
)

type testStores struct {
	markets   *memory.MarketStore
	trades    *memory.TradeStore
	metrics   *memory.MetricsStore
	weights   *memory.TrustWeightStore
	snapshots *memory.SnapshotStore
}

func setupTestData(t *testing.T) *testStores {
	t.Helper()
	ctx := context.Background()

	s := &testStores{
		markets:   memory.NewMarketStore(),
		trades:    memory.NewTradeStore(),
		metrics:   memory.NewMetricsStore(),
		weights:   memory.NewTrustWeightStore(),
		snapshots: memory.NewSnapshotStore(),
	}

	outcome := 1.0
	resolvedAt := int64(3000000)
	markets := []*domain.Market{
		{MarketID: "m1", Category: "politics", Status: domain.MarketStatusResolved, Outcome: &outcome, ResolvedAt: &resolvedAt, LastPrice: 0.95, CreatedAt: 1},
		{MarketID: "m2", Category: "crypto", Status: domain.MarketStatusActive, ExpectedResolution: 9000000, LastPrice: 0.40, CreatedAt: 1},
	}
	for _, m := range markets {
		if err := s.markets.Upsert(ctx, m); err != nil {
			t.Fatalf("Upsert market failed: %v", err)
		}
	}

	trades := []*domain.Trade{
		{TradeID: "t1", WalletID: "w1", MarketID: "m1", Side: domain.TradeSideYes, Direction: domain.TradeDirectionOpen, Price: 0.6, Size: 100, Timestamp: 1000000, CreatedAt: 1000000},
		{TradeID: "t2", WalletID: "w2", MarketID: "m1", Side: domain.TradeSideNo, Direction: domain.TradeDirectionOpen, Price: 0.5, Size: 50, Timestamp: 2000000, CreatedAt: 2000000},
		{TradeID: "t3", WalletID: "w1", MarketID: "m2", Side: domain.TradeSideYes, Direction: domain.TradeDirectionOpen, Price: 0.45, Size: 80, Timestamp: 2500000, CreatedAt: 2500000},
	}
	if err := s.trades.InsertBulk(ctx, trades); err != nil {
		t.Fatalf("InsertBulk trades failed: %v", err)
	}

	metrics := []*domain.WalletContextMetrics{
		{
			WalletID: "w1", Category: "politics", Horizon: domain.HorizonShort,
			SkillMetrics: domain.SkillMetrics{Brier: 0.12, LogLoss: 0.45, CalibrationError: 0.05, ROI: 0.3, TimingEdge: 0.15, SampleSize: 10},
			ComputedAt:   3000000,
		},
	}
	if err := s.metrics.UpsertContextBulk(ctx, metrics); err != nil {
		t.Fatalf("UpsertContextBulk failed: %v", err)
	}

	weights := []*domain.TrustWeight{
		{WalletID: "w1", Category: "politics", Horizon: domain.HorizonShort, Weight: 2.1, SampleSize: 10, ComputedAt: 3000000},
		{WalletID: "w2", Category: "politics", Horizon: domain.HorizonShort, Weight: 0.7, SampleSize: 6, ComputedAt: 3000000},
	}
	if err := s.weights.UpsertBulk(ctx, weights); err != nil {
		t.Fatalf("UpsertBulk weights failed: %v", err)
	}

	snaps := []*domain.MarketSnapshot{
		{MarketID: "m1", AsOf: 2000000, SmartCrowdProb: 0.80, RawPrice: 0.60, Divergence: 0.20, Disagreement: 0.1, Concentration: 0.5, IntegrityRisk: 0.2, Confidence: 0.7, WalletCount: 2, CreatedAt: 3000000},
		{MarketID: "m1", AsOf: 3000000, SmartCrowdProb: 0.90, RawPrice: 0.95, Divergence: -0.05, Disagreement: 0.05, Concentration: 0.5, IntegrityRisk: 0.1, Confidence: 0.8, WalletCount: 2, CreatedAt: 3000000},
		{MarketID: "m2", AsOf: 3000000, SmartCrowdProb: 0.58, RawPrice: 0.40, Divergence: 0.18, Disagreement: 0.0, Concentration: 1.0, IntegrityRisk: 0.4, Confidence: 0.3, WalletCount: 1, CreatedAt: 3000000},
	}
	if err := s.snapshots.UpsertBulk(ctx, snaps); err != nil {
		t.Fatalf("UpsertBulk snapshots failed: %v", err)
	}

	return s
}

func newTestGenerator(s *testStores) *Generator {
	gen := NewGenerator(s.markets, s.trades, s.metrics, s.weights, s.snapshots)
	return gen.WithClock(func() time.Time {
		return time.UnixMilli(4000000).UTC()
	})
}

func TestGenerator_DataSummary(t *testing.T) {
	s := setupTestData(t)
	report, err := newTestGenerator(s).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	ds := report.DataSummary
	if ds.TotalMarkets != 2 || ds.ActiveMarkets != 1 || ds.ResolvedMarkets != 1 {
		t.Errorf("market counts = %d/%d/%d, want 2/1/1", ds.TotalMarkets, ds.ActiveMarkets, ds.ResolvedMarkets)
	}
	if ds.TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", ds.TotalTrades)
	}
	if ds.TotalWallets != 2 {
		t.Errorf("TotalWallets = %d, want 2", ds.TotalWallets)
	}
	if ds.DateRangeStart != 1000000 || ds.DateRangeEnd != 2500000 {
		t.Errorf("date range = [%d, %d], want [1000000, 2500000]", ds.DateRangeStart, ds.DateRangeEnd)
	}
}

func TestGenerator_Leaderboard(t *testing.T) {
	s := setupTestData(t)
	report, err := newTestGenerator(s).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(report.Leaderboard) != 2 {
		t.Fatalf("Leaderboard length = %d, want 2", len(report.Leaderboard))
	}

	// Sorted by weight descending.
	if report.Leaderboard[0].WalletID != "w1" {
		t.Errorf("top wallet = %s, want w1", report.Leaderboard[0].WalletID)
	}
	if report.Leaderboard[0].Brier != 0.12 {
		t.Errorf("top Brier = %v, want 0.12 from the joined metrics", report.Leaderboard[0].Brier)
	}

	// w2 has a weight but no context metrics row; the join leaves zeros.
	if report.Leaderboard[1].WalletID != "w2" {
		t.Errorf("second wallet = %s, want w2", report.Leaderboard[1].WalletID)
	}
	if report.Leaderboard[1].Brier != 0 {
		t.Errorf("second Brier = %v, want 0", report.Leaderboard[1].Brier)
	}
}

func TestGenerator_Snapshots(t *testing.T) {
	s := setupTestData(t)
	report, err := newTestGenerator(s).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(report.Snapshots) != 2 {
		t.Fatalf("Snapshots length = %d, want 2", len(report.Snapshots))
	}

	// Latest snapshot per market, not the full history.
	if report.Snapshots[0].MarketID != "m1" || report.Snapshots[0].AsOf != 3000000 {
		t.Errorf("m1 snapshot AsOf = %d, want 3000000", report.Snapshots[0].AsOf)
	}
	if report.Snapshots[0].SmartCrowdProb != 0.90 {
		t.Errorf("m1 prob = %v, want 0.90", report.Snapshots[0].SmartCrowdProb)
	}
	if report.Snapshots[1].Category != "crypto" {
		t.Errorf("m2 category = %s, want crypto", report.Snapshots[1].Category)
	}

	// m2 diverges more than the latest m1 snapshot.
	if len(report.Divergences) != 2 || report.Divergences[0].MarketID != "m2" {
		t.Fatalf("Divergences = %+v, want m2 first", report.Divergences)
	}
}

func TestGenerator_EmptyStores(t *testing.T) {
	s := &testStores{
		markets:   memory.NewMarketStore(),
		trades:    memory.NewTradeStore(),
		metrics:   memory.NewMetricsStore(),
		weights:   memory.NewTrustWeightStore(),
		snapshots: memory.NewSnapshotStore(),
	}

	report, err := newTestGenerator(s).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.MarketCount != 0 || len(report.Leaderboard) != 0 || len(report.Snapshots) != 0 {
		t.Errorf("empty stores produced non-empty report: %+v", report)
	}
}

func TestRenderMarkdown(t *testing.T) {
	s := setupTestData(t)
	report, err := newTestGenerator(s).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# SmartCrowd Run Report",
		"## Data Summary",
		"## Trust Leaderboard",
		"## Market Snapshots",
		"## Largest Divergences",
		"| m1 |",
		"| w1 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	s := setupTestData(t)
	report, err := newTestGenerator(s).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	leaderboard := RenderLeaderboardCSV(report.Leaderboard)
	if !strings.HasPrefix(leaderboard, "wallet_id,category,horizon,weight,") {
		t.Errorf("leaderboard CSV missing header: %q", leaderboard)
	}
	if got := strings.Count(leaderboard, "\n"); got != 3 {
		t.Errorf("leaderboard CSV lines = %d, want 3", got)
	}

	snapshots := RenderSnapshotsCSV(report.Snapshots)
	if !strings.Contains(snapshots, "m2,crypto,active,3000000,0.580000") {
		t.Errorf("snapshot CSV missing m2 row: %q", snapshots)
	}
}
