// Package pipeline provides full-recompute orchestration.
// It coordinates: scoring → trust weights → snapshot aggregation (→ backfill)
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"smartcrowd/internal/backfill"
	"smartcrowd/internal/domain"
	"smartcrowd/internal/observability"
	"smartcrowd/internal/runlock"
	"smartcrowd/internal/scoring"
	"smartcrowd/internal/snapshot"
	"smartcrowd/internal/storage"
	"smartcrowd/internal/trust"
)

// ErrBusy is returned when a recompute request arrives while another run
// (or an ingestion) is in flight. Requests are rejected fast, never queued.
var ErrBusy = errors.New("pipeline busy")

// Orchestrator coordinates the full recompute.
// Flow: scoring → trust weights → snapshot aggregation → optional backfill
type Orchestrator struct {
	// Stores
	markets   storage.MarketStore
	trades    storage.TradeStore
	metrics   storage.MetricsStore
	weights   storage.TrustWeightStore
	snapshots storage.SnapshotStore

	// Collaborators
	guard  *runlock.Guard
	obs    *observability.Metrics
	logger *logrus.Logger

	cfg                 domain.PipelineConfig
	backfillCheckpoints int
	clock               func() time.Time
}

// Options for creating an Orchestrator.
type Options struct {
	// Required stores
	MarketStore      storage.MarketStore
	TradeStore       storage.TradeStore
	MetricsStore     storage.MetricsStore
	TrustWeightStore storage.TrustWeightStore
	SnapshotStore    storage.SnapshotStore

	// Guard shared with the ingestion manager. Required.
	Guard *runlock.Guard

	// Optional observability metrics.
	Observability *observability.Metrics

	// Optional logger; defaults to the standard logrus logger.
	Logger *logrus.Logger

	Config domain.PipelineConfig

	// BackfillCheckpoints > 0 enables stage 4 for every market after each
	// recompute.
	BackfillCheckpoints int
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		markets:             opts.MarketStore,
		trades:              opts.TradeStore,
		metrics:             opts.MetricsStore,
		weights:             opts.TrustWeightStore,
		snapshots:           opts.SnapshotStore,
		guard:               opts.Guard,
		obs:                 opts.Observability,
		logger:              logger,
		cfg:                 opts.Config,
		backfillCheckpoints: opts.BackfillCheckpoints,
		clock:               func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock for deterministic runs.
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.clock = clock
	return o
}

// RunResult contains results from one full recompute.
type RunResult struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	WalletsScored    int
	ContextRecords   int
	WeightsComputed  int
	MarketsProcessed int
	MarketsFailed    int
	SnapshotsWritten int
	TradesSkipped    int

	Errors []string // per-market failures, isolated
}

// Run executes the full recompute: stage 1 → 2 → 3 (→ 4). Each run
// recomputes state wholesale; there is no incremental mode. At most one
// run is in flight at a time; a concurrent request fails with ErrBusy.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	release, err := o.guard.TryAcquire("recompute")
	if err != nil {
		o.logger.WithError(err).Warn("recompute rejected")
		if o.obs != nil {
			o.obs.PipelineRunsTotal.WithLabelValues("busy").Inc()
		}
		return nil, ErrBusy
	}
	defer release()

	started := o.clock()
	result := &RunResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
	}
	log := o.logger.WithField("run_id", result.RunID)

	// Stage 1: wallet skill metrics
	log.Info("stage 1: scoring wallets")
	stageStart := time.Now()
	scoringResult, err := scoring.NewEngine(o.markets, o.trades, o.metrics).WithClock(o.clock).Run(ctx, o.cfg)
	o.observeStage("scoring", stageStart)
	if err != nil {
		return o.fail(result, fmt.Errorf("stage 1 (scoring) failed: %w", err))
	}
	result.WalletsScored = scoringResult.WalletsScored
	result.ContextRecords = scoringResult.ContextRecords
	result.TradesSkipped = scoringResult.TradesSkipped
	log.WithFields(logrus.Fields{
		"wallets":        scoringResult.WalletsScored,
		"context_groups": scoringResult.ContextRecords,
		"trades_skipped": scoringResult.TradesSkipped,
	}).Info("stage 1 complete")

	// Stage 2: trust weights, strictly after stage 1's output is committed
	log.Info("stage 2: estimating trust weights")
	stageStart = time.Now()
	trustResult, err := trust.NewEstimator(o.metrics, o.weights).WithClock(o.clock).RunWithConfig(ctx, o.cfg)
	o.observeStage("trust", stageStart)
	if err != nil {
		return o.fail(result, fmt.Errorf("stage 2 (trust weights) failed: %w", err))
	}
	result.WeightsComputed = trustResult.WeightsComputed
	log.WithField("weights", trustResult.WeightsComputed).Info("stage 2 complete")

	// Stage 3: snapshot aggregation across the market universe
	log.Info("stage 3: aggregating snapshots")
	stageStart = time.Now()
	err = o.runAggregation(ctx, result)
	o.observeStage("aggregation", stageStart)
	if err != nil {
		return o.fail(result, fmt.Errorf("stage 3 (aggregation) failed: %w", err))
	}
	log.WithFields(logrus.Fields{
		"markets_ok":     result.MarketsProcessed,
		"markets_failed": result.MarketsFailed,
	}).Info("stage 3 complete")

	// Stage 4 (optional): historical backfill
	if o.backfillCheckpoints > 0 {
		log.WithField("checkpoints", o.backfillCheckpoints).Info("stage 4: backfilling history")
		runner := snapshot.NewRunner(o.trades, o.weights, o.metrics).WithClock(o.clock)
		bf := backfill.New(o.markets, o.trades, o.snapshots, runner).WithClock(o.clock)
		bfResult, err := bf.Run(ctx, "", o.backfillCheckpoints, o.cfg)
		if err != nil {
			return o.fail(result, fmt.Errorf("stage 4 (backfill) failed: %w", err))
		}
		result.SnapshotsWritten += bfResult.SnapshotsWritten
		result.Errors = append(result.Errors, bfResult.Errors...)
	}

	result.Duration = o.clock().Sub(started)
	if o.obs != nil {
		o.obs.PipelineRunsTotal.WithLabelValues("ok").Inc()
		o.obs.WalletsScored.Set(float64(result.WalletsScored))
		o.obs.WeightsComputed.Set(float64(result.WeightsComputed))
		o.obs.TradesSkipped.Add(float64(result.TradesSkipped))
		o.obs.LastSuccessfulRun.SetToCurrentTime()
	}
	log.WithField("duration", result.Duration).Info("pipeline completed")
	return result, nil
}

// runAggregation computes one snapshot per market on a bounded worker pool.
// Per-market computation is independent; all writes are collected and
// committed in one batch after the pool drains so the single-writer store
// sees no interleaving. One market's failure is isolated into
// result.Errors.
func (o *Orchestrator) runAggregation(ctx context.Context, result *RunResult) error {
	markets, err := o.markets.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load markets: %w", err)
	}
	if len(markets) == 0 {
		return nil
	}

	asOf := o.clock().UnixMilli()
	runner := snapshot.NewRunner(o.trades, o.weights, o.metrics).WithClock(o.clock)

	var (
		mu    sync.Mutex
		snaps []*domain.MarketSnapshot
	)

	workers := o.cfg.MarketWorkers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, m := range markets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := runner.Snapshot(gctx, m, asOf, o.cfg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.MarketsFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("aggregate %s: %v", m.MarketID, err))
				if o.obs != nil {
					o.obs.MarketsFailed.Inc()
				}
				return nil // isolated, never aborts the batch
			}
			snaps = append(snaps, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Deterministic write order regardless of worker scheduling.
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].MarketID < snaps[j].MarketID
	})

	// Upsert keeps a rerun at a pinned as-of time idempotent; distinct
	// as-of keys still accumulate append-only history.
	if err := o.snapshots.UpsertBulk(ctx, snaps); err != nil {
		return fmt.Errorf("commit snapshots: %w", err)
	}

	result.MarketsProcessed = len(snaps)
	result.SnapshotsWritten = len(snaps)
	if o.obs != nil {
		o.obs.MarketsProcessed.Add(float64(len(snaps)))
		o.obs.SnapshotsWritten.Add(float64(len(snaps)))
	}
	return nil
}

// observeStage records the wall-clock duration of one stage.
func (o *Orchestrator) observeStage(stage string, start time.Time) {
	if o.obs != nil {
		o.obs.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (o *Orchestrator) fail(result *RunResult, err error) (*RunResult, error) {
	if o.obs != nil {
		o.obs.PipelineRunsTotal.WithLabelValues("error").Inc()
	}
	o.logger.WithField("run_id", result.RunID).WithError(err).Error("pipeline failed")
	return nil, err
}
