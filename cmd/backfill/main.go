// Package main provides the historical backfill entry point. It replays
// snapshot aggregation at evenly spaced checkpoints per market.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"smartcrowd/internal/backfill"
	"smartcrowd/internal/config"
	"smartcrowd/internal/pipeline"
	"smartcrowd/internal/snapshot"
	"smartcrowd/internal/storage"
	chstore "smartcrowd/internal/storage/clickhouse"
	"smartcrowd/internal/storage/memory"
	"smartcrowd/internal/storage/migrations"
	pgstore "smartcrowd/internal/storage/postgres"
)

func main() {
	marketID := flag.String("market", "", "Backfill one market only (empty backfills every market)")
	checkpoints := flag.Int("checkpoints", 0, "Checkpoints per market (0 uses config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage with fixture data instead of PostgreSQL")
	flag.Parse()

	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if *checkpoints <= 0 {
		*checkpoints = cfg.Backfill.Checkpoints
	}
	if *checkpoints <= 0 {
		logger.Fatal("--checkpoints (or backfill.checkpoints in config) must be positive")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig).Info("cancelling backfill")
		cancel()
	}()

	var (
		marketStore   storage.MarketStore      = memory.NewMarketStore()
		tradeStore    storage.TradeStore       = memory.NewTradeStore()
		metricsStore  storage.MetricsStore     = memory.NewMetricsStore()
		weightStore   storage.TrustWeightStore = memory.NewTrustWeightStore()
		snapshotStore storage.SnapshotStore    = memory.NewSnapshotStore()
	)

	if *useMemory {
		if err := pipeline.LoadFixtures(ctx, marketStore, tradeStore); err != nil {
			logger.WithError(err).Fatal("load fixtures")
		}
	} else {
		if cfg.Postgres.DSN == "" {
			logger.Fatal("postgres.dsn is required (use --use-memory for in-memory storage)")
		}
		pool, err := pgstore.NewPoolWithMaxConns(ctx, cfg.Postgres.DSN, int32(cfg.Postgres.MaxOpenConns))
		if err != nil {
			logger.WithError(err).Fatal("connect to postgres")
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.WithError(err).Fatal("run postgres migrations")
		}
		marketStore = pgstore.NewMarketStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)
		metricsStore = pgstore.NewMetricsStore(pool)
		weightStore = pgstore.NewTrustWeightStore(pool)
		snapshotStore = pgstore.NewSnapshotStore(pool)

		if cfg.ClickHouse.DSN != "" {
			conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
			if err != nil {
				logger.WithError(err).Fatal("run clickhouse migrations")
			}
			defer conn.Close()
			snapshotStore = chstore.NewSnapshotStore(conn)
			logger.Info("snapshot history sink: clickhouse")
		}
	}

	runner := snapshot.NewRunner(tradeStore, weightStore, metricsStore)
	bf := backfill.New(marketStore, tradeStore, snapshotStore, runner)

	result, err := bf.Run(ctx, *marketID, *checkpoints, cfg.Pipeline)
	if err != nil {
		logger.WithError(err).Fatal("backfill failed")
	}

	fmt.Println("Backfill completed:")
	fmt.Printf("  Markets:   %d\n", result.MarketsProcessed)
	fmt.Printf("  Snapshots: %d\n", result.SnapshotsWritten)
	for _, e := range result.Errors {
		fmt.Printf("    - %s\n", e)
	}
}
