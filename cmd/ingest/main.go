// Package main provides the ingestion entry point. It fetches markets and
// trades from a source and commits them through the ingestion manager.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"smartcrowd/internal/config"
	"smartcrowd/internal/domain"
	"smartcrowd/internal/ingestion"
	"smartcrowd/internal/ingestion/stub"
	"smartcrowd/internal/observability"
	"smartcrowd/internal/pipeline"
	"smartcrowd/internal/runlock"
	"smartcrowd/internal/storage"
	"smartcrowd/internal/storage/memory"
	"smartcrowd/internal/storage/migrations"
	pgstore "smartcrowd/internal/storage/postgres"
)

func main() {
	sinceStr := flag.String("since", "", "Only ingest trades at or after this time (RFC3339; empty ingests everything)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	useFixtures := flag.Bool("use-fixtures", false, "Ingest the built-in fixture universe instead of a live source")
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig).Info("cancelling ingestion")
		cancel()
	}()

	obs := observability.NewMetrics("smartcrowd")
	startMetricsServer(logger, cfg.Server.MetricsAddr)

	var since int64
	if *sinceStr != "" {
		t, err := time.Parse(time.RFC3339, *sinceStr)
		if err != nil {
			logger.WithError(err).Fatal("parse --since")
		}
		since = t.UnixMilli()
	}

	var marketStore storage.MarketStore = memory.NewMarketStore()
	var tradeStore storage.TradeStore = memory.NewTradeStore()

	if !*useMemory {
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
	}

	if !*useFixtures {
		logger.Fatal("no live source configured; use --use-fixtures to ingest the demo universe")
	}

	tradeSource, marketSource, err := fixtureSources(ctx)
	if err != nil {
		logger.WithError(err).Fatal("build fixture sources")
	}

	manager := ingestion.NewManager(ingestion.ManagerOptions{
		TradeSource:   tradeSource,
		MarketSource:  marketSource,
		TradeStore:    tradeStore,
		MarketStore:   marketStore,
		Guard:         &runlock.Guard{},
		Observability: obs,
		Logger:        logger,
	})

	result, err := manager.Run(ctx, since)
	if err != nil {
		logger.WithError(err).Fatal("ingestion failed")
	}

	fmt.Println("Ingestion completed:")
	fmt.Printf("  Markets upserted: %d\n", result.MarketsUpserted)
	fmt.Printf("  Trades ingested:  %d\n", result.TradesIngested)
	fmt.Printf("  Duplicates:       %d\n", result.TradesDuplicate)
}

// fixtureSources loads the fixture universe into scratch stores and wraps
// the contents in stub sources, so the ingestion path is exercised the same
// way a live source would.
func fixtureSources(ctx context.Context) (*stub.TradeSource, *stub.MarketSource, error) {
	scratchMarkets := memory.NewMarketStore()
	scratchTrades := memory.NewTradeStore()
	if err := pipeline.LoadFixtures(ctx, scratchMarkets, scratchTrades); err != nil {
		return nil, nil, err
	}

	markets, err := scratchMarkets.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	var trades []*domain.Trade
	for _, m := range markets {
		mt, err := scratchTrades.GetByMarket(ctx, m.MarketID, time.Now().UnixMilli())
		if err != nil {
			return nil, nil, err
		}
		trades = append(trades, mt...)
	}

	return stub.NewTradeSource(trades), stub.NewMarketSource(markets), nil
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Warn("metrics server stopped")
		}
	}()
}
