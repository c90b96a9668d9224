// Package backfill implements stage 4 of the pipeline: replaying belief
// inference and snapshot aggregation at evenly spaced historical
// checkpoints per market.
package backfill

import (
	"context"
	"fmt"
	"time"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/snapshot"
	"smartcrowd/internal/storage"
)

// Backfiller produces historical snapshot rows for one market or for the
// whole market universe.
type Backfiller struct {
	markets   storage.MarketStore
	trades    storage.TradeStore
	snapshots storage.SnapshotStore
	runner    *snapshot.Runner
	clock     func() time.Time
}

// New creates a new Backfiller.
func New(markets storage.MarketStore, trades storage.TradeStore, snapshots storage.SnapshotStore, runner *snapshot.Runner) *Backfiller {
	return &Backfiller{
		markets:   markets,
		trades:    trades,
		snapshots: snapshots,
		runner:    runner,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock for deterministic "now" on unresolved markets.
func (b *Backfiller) WithClock(clock func() time.Time) *Backfiller {
	b.clock = clock
	return b
}

// Result summarizes one backfill run.
type Result struct {
	MarketsProcessed int
	SnapshotsWritten int
	Errors           []string // per-market failures, isolated
}

// Run backfills n checkpoints for one market, or for every market when
// marketID is empty. Non-positive n and markets without trades are no-ops.
// Rerunning with the same n replaces the previously backfilled rows for
// those checkpoints. One market's failure never aborts the others.
func (b *Backfiller) Run(ctx context.Context, marketID string, n int, cfg domain.PipelineConfig) (*Result, error) {
	result := &Result{}
	if n <= 0 {
		return result, nil
	}

	var markets []*domain.Market
	if marketID != "" {
		m, err := b.markets.GetByID(ctx, marketID)
		if err != nil {
			return nil, fmt.Errorf("load market %s: %w", marketID, err)
		}
		markets = []*domain.Market{m}
	} else {
		all, err := b.markets.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load markets: %w", err)
		}
		markets = all
	}

	for _, m := range markets {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		written, err := b.backfillMarket(ctx, m, n, cfg)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("backfill %s: %v", m.MarketID, err))
			continue
		}
		if written > 0 {
			result.MarketsProcessed++
			result.SnapshotsWritten += written
		}
	}
	return result, nil
}

// backfillMarket computes and upserts one market's checkpoint snapshots as
// a single batched write.
func (b *Backfiller) backfillMarket(ctx context.Context, m *domain.Market, n int, cfg domain.PipelineConfig) (int, error) {
	end := b.clock().UnixMilli()
	if m.Resolved() && m.ResolvedAt != nil {
		end = *m.ResolvedAt
	}

	trades, err := b.trades.GetByMarket(ctx, m.MarketID, end)
	if err != nil {
		return 0, err
	}
	if len(trades) == 0 {
		return 0, nil
	}
	first := trades[0].Timestamp

	snaps := make([]*domain.MarketSnapshot, 0, n)
	for _, checkpoint := range checkpoints(first, end, n) {
		s, err := b.runner.Snapshot(ctx, m, checkpoint, cfg)
		if err != nil {
			return 0, err
		}
		snaps = append(snaps, s)
	}

	if err := b.snapshots.UpsertBulk(ctx, snaps); err != nil {
		return 0, err
	}
	return len(snaps), nil
}

// checkpoints returns n evenly spaced timestamps over [first, end],
// inclusive of both endpoints and deduplicated for very short spans.
// n == 1 yields just the end.
func checkpoints(first, end int64, n int) []int64 {
	if n == 1 || end <= first {
		return []int64{end}
	}

	ts := make([]int64, 0, n)
	span := end - first
	for i := 0; i < n; i++ {
		c := first + span*int64(i)/int64(n-1)
		if len(ts) > 0 && ts[len(ts)-1] == c {
			continue
		}
		ts = append(ts, c)
	}
	return ts
}
