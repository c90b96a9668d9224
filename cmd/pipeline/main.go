// Package main provides the full-recompute entry point.
// Executes: scoring → trust weights → snapshot aggregation (→ backfill)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"smartcrowd/internal/config"
	"smartcrowd/internal/observability"
	"smartcrowd/internal/pipeline"
	"smartcrowd/internal/runlock"
	"smartcrowd/internal/storage"
	chstore "smartcrowd/internal/storage/clickhouse"
	"smartcrowd/internal/storage/memory"
	"smartcrowd/internal/storage/migrations"
	pgstore "smartcrowd/internal/storage/postgres"
)

func main() {
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage with fixture data instead of PostgreSQL")
	checkpoints := flag.Int("backfill-checkpoints", -1, "Historical checkpoints per market after the recompute (-1 uses config)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if *checkpoints < 0 {
		*checkpoints = cfg.Backfill.Checkpoints
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig).Info("cancelling recompute")
		cancel()
	}()

	obs := observability.NewMetrics("smartcrowd")
	startMetricsServer(logger, cfg.Server.MetricsAddr)

	stores, cleanup, err := buildStores(ctx, logger, cfg, *useMemory)
	if err != nil {
		logger.WithError(err).Fatal("initialize storage")
	}
	defer cleanup()

	if *useMemory {
		if err := pipeline.LoadFixtures(ctx, stores.markets, stores.trades); err != nil {
			logger.WithError(err).Fatal("load fixtures")
		}
		logger.Info("loaded fixture data into memory stores")
	}

	orch := pipeline.New(pipeline.Options{
		MarketStore:         stores.markets,
		TradeStore:          stores.trades,
		MetricsStore:        stores.metrics,
		TrustWeightStore:    stores.weights,
		SnapshotStore:       stores.snapshots,
		Guard:               &runlock.Guard{},
		Observability:       obs,
		Logger:              logger,
		Config:              cfg.Pipeline,
		BackfillCheckpoints: *checkpoints,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("recompute cancelled")
			return
		}
		logger.WithError(err).Fatal("recompute failed")
	}

	fmt.Println("Recompute completed:")
	fmt.Printf("  Run ID:           %s\n", result.RunID)
	fmt.Printf("  Duration:         %v\n", result.Duration)
	fmt.Printf("  Wallets scored:   %d\n", result.WalletsScored)
	fmt.Printf("  Context records:  %d\n", result.ContextRecords)
	fmt.Printf("  Trust weights:    %d\n", result.WeightsComputed)
	fmt.Printf("  Markets:          %d ok, %d failed\n", result.MarketsProcessed, result.MarketsFailed)
	fmt.Printf("  Snapshots:        %d\n", result.SnapshotsWritten)
	if result.TradesSkipped > 0 {
		fmt.Printf("  Trades skipped:   %d\n", result.TradesSkipped)
	}
	for _, e := range result.Errors {
		fmt.Printf("    - %s\n", e)
	}
}

// stores bundles the five store interfaces every stage needs.
type stores struct {
	markets   storage.MarketStore
	trades    storage.TradeStore
	metrics   storage.MetricsStore
	weights   storage.TrustWeightStore
	snapshots storage.SnapshotStore
}

// buildStores wires memory or database-backed stores. With databases,
// PostgreSQL is the system of record and ClickHouse (when configured)
// replaces the snapshot history sink.
func buildStores(ctx context.Context, logger *logrus.Logger, cfg *config.Config, useMemory bool) (*stores, func(), error) {
	if useMemory {
		return &stores{
			markets:   memory.NewMarketStore(),
			trades:    memory.NewTradeStore(),
			metrics:   memory.NewMetricsStore(),
			weights:   memory.NewTrustWeightStore(),
			snapshots: memory.NewSnapshotStore(),
		}, func() {}, nil
	}

	if cfg.Postgres.DSN == "" {
		return nil, nil, fmt.Errorf("postgres.dsn is required (use --use-memory for in-memory storage)")
	}

	pool, err := pgstore.NewPoolWithMaxConns(ctx, cfg.Postgres.DSN, int32(cfg.Postgres.MaxOpenConns))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	s := &stores{
		markets:   pgstore.NewMarketStore(pool),
		trades:    pgstore.NewTradeStore(pool),
		metrics:   pgstore.NewMetricsStore(pool),
		weights:   pgstore.NewTrustWeightStore(pool),
		snapshots: pgstore.NewSnapshotStore(pool),
	}
	cleanup := func() { pool.Close() }

	if cfg.ClickHouse.DSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		s.snapshots = chstore.NewSnapshotStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
		logger.Info("snapshot history sink: clickhouse")
	}

	return s, cleanup, nil
}

// startMetricsServer exposes /metrics and /health when addr is non-empty.
func startMetricsServer(logger *logrus.Logger, addr string) {
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		logger.WithField("addr", addr).Info("starting metrics server")
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server stopped")
		}
	}()
}
