// Package main generates the run report: a markdown summary plus CSV
// exports of the trust leaderboard and the latest market snapshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"smartcrowd/internal/config"
	"smartcrowd/internal/pipeline"
	"smartcrowd/internal/reporting"
	"smartcrowd/internal/runlock"
	"smartcrowd/internal/storage"
	chstore "smartcrowd/internal/storage/clickhouse"
	"smartcrowd/internal/storage/memory"
	pgstore "smartcrowd/internal/storage/postgres"
)

func main() {
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	useMemory := flag.Bool("use-memory", false, "Run a full in-memory recompute over fixture data and report on it")
	flag.Parse()

	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}

	ctx := context.Background()

	var (
		marketStore   storage.MarketStore      = memory.NewMarketStore()
		tradeStore    storage.TradeStore       = memory.NewTradeStore()
		metricsStore  storage.MetricsStore     = memory.NewMetricsStore()
		weightStore   storage.TrustWeightStore = memory.NewTrustWeightStore()
		snapshotStore storage.SnapshotStore    = memory.NewSnapshotStore()
	)

	if *useMemory {
		// Fixtures alone carry no computed state, so run the recompute first.
		if err := pipeline.LoadFixtures(ctx, marketStore, tradeStore); err != nil {
			logger.WithError(err).Fatal("load fixtures")
		}
		orch := pipeline.New(pipeline.Options{
			MarketStore:      marketStore,
			TradeStore:       tradeStore,
			MetricsStore:     metricsStore,
			TrustWeightStore: weightStore,
			SnapshotStore:    snapshotStore,
			Guard:            &runlock.Guard{},
			Logger:           logger,
			Config:           cfg.Pipeline,
		})
		if _, err := orch.Run(ctx); err != nil {
			logger.WithError(err).Fatal("fixture recompute failed")
		}
	} else {
		if cfg.Postgres.DSN == "" {
			logger.Fatal("postgres.dsn is required (use --use-memory for a fixture report)")
		}
		pool, err := pgstore.NewPoolWithMaxConns(ctx, cfg.Postgres.DSN, int32(cfg.Postgres.MaxOpenConns))
		if err != nil {
			logger.WithError(err).Fatal("connect to postgres")
		}
		defer pool.Close()

		marketStore = pgstore.NewMarketStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)
		metricsStore = pgstore.NewMetricsStore(pool)
		weightStore = pgstore.NewTrustWeightStore(pool)
		snapshotStore = pgstore.NewSnapshotStore(pool)

		if cfg.ClickHouse.DSN != "" {
			conn, err := chstore.NewConn(ctx, cfg.ClickHouse.DSN)
			if err != nil {
				logger.WithError(err).Fatal("connect to clickhouse")
			}
			defer conn.Close()
			snapshotStore = chstore.NewSnapshotStore(conn)
		}
	}

	gen := reporting.NewGenerator(marketStore, tradeStore, metricsStore, weightStore, snapshotStore)
	if *useMemory {
		// Fixed clock for deterministic fixture output.
		fixedTime := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
		gen = gen.WithClock(func() time.Time { return fixedTime })
	}

	report, err := gen.Generate(ctx)
	if err != nil {
		logger.WithError(err).Fatal("generate report")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.WithError(err).Fatal("create output directory")
	}

	outputs := map[string]string{
		"REPORT.md":       reporting.RenderMarkdown(report),
		"leaderboard.csv": reporting.RenderLeaderboardCSV(report.Leaderboard),
		"snapshots.csv":   reporting.RenderSnapshotsCSV(report.Snapshots),
	}
	for name, content := range outputs {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			logger.WithError(err).Fatalf("write %s", path)
		}
	}

	fmt.Println("Report generated successfully:")
	fmt.Printf("  - %s/REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/leaderboard.csv\n", *outputDir)
	fmt.Printf("  - %s/snapshots.csv\n", *outputDir)
}
