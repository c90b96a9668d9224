package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"smartcrowd/internal/domain"
	"smartcrowd/internal/idhash"
	"smartcrowd/internal/observability"
	"smartcrowd/internal/runlock"
	"smartcrowd/internal/storage"
)

// ErrWriterBusy is returned when ingestion is requested while another
// operation, a recompute or a concurrent ingest, holds the writer guard.
// Bulk writers never overlap; the wrapped guard error names the holder.
var ErrWriterBusy = errors.New("ingestion rejected: writer busy")

// Manager orchestrates ingestion from sources to storage. It enforces
// deterministic ordering and relies on the storage layer for duplicate
// rejection.
type Manager struct {
	tradeSource  TradeSource
	marketSource MarketSource

	tradeStore  storage.TradeStore
	marketStore storage.MarketStore

	guard  *runlock.Guard
	obs    *observability.Metrics
	logger *logrus.Logger
	clock  func() time.Time
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	TradeSource  TradeSource
	MarketSource MarketSource

	TradeStore  storage.TradeStore
	MarketStore storage.MarketStore

	// Guard shared with the pipeline orchestrator. Required.
	Guard *runlock.Guard

	Observability *observability.Metrics
	Logger        *logrus.Logger
}

// NewManager creates a new ingestion manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		tradeSource:  opts.TradeSource,
		marketSource: opts.MarketSource,
		tradeStore:   opts.TradeStore,
		marketStore:  opts.MarketStore,
		guard:        opts.Guard,
		obs:          opts.Observability,
		logger:       logger,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// Result summarizes one ingestion run.
type Result struct {
	MarketsUpserted int
	TradesIngested  int
	TradesDuplicate int
}

// Run fetches markets and trades since the given timestamp and stores
// them. Fails fast with ErrWriterBusy while any other operation holds the
// guard; a recompute conversely cannot start until ingestion releases it.
func (m *Manager) Run(ctx context.Context, since int64) (*Result, error) {
	release, err := m.guard.TryAcquire("ingest")
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrWriterBusy, err)
	}
	defer release()

	result := &Result{}

	if m.marketSource != nil && m.marketStore != nil {
		markets, err := m.marketSource.FetchMarkets(ctx)
		if err != nil {
			m.countError()
			return nil, fmt.Errorf("fetch markets: %w", err)
		}
		for _, market := range markets {
			if err := m.marketStore.Upsert(ctx, market); err != nil {
				m.countError()
				return nil, fmt.Errorf("upsert market %s: %w", market.MarketID, err)
			}
			result.MarketsUpserted++
		}
		if m.obs != nil {
			m.obs.MarketsIngested.Add(float64(result.MarketsUpserted))
		}
	}

	if m.tradeSource != nil && m.tradeStore != nil {
		trades, err := m.tradeSource.FetchTrades(ctx, since)
		if err != nil {
			m.countError()
			return nil, fmt.Errorf("fetch trades: %w", err)
		}

		now := m.clock().UnixMilli()
		for _, t := range trades {
			if t.TradeID == "" {
				t.TradeID = idhash.ComputeTradeID(t.MarketID, t.WalletID, t.Side, t.Direction, t.Timestamp, t.Size)
			}
			if t.CreatedAt == 0 {
				t.CreatedAt = now
			}
		}

		// Enforce deterministic ordering before the batched write.
		SortTrades(trades)

		// Insert one by one so a re-fetched window degrades to duplicate
		// rejections instead of failing the whole batch.
		for _, t := range trades {
			err := m.tradeStore.InsertBulk(ctx, []*domain.Trade{t})
			switch {
			case errors.Is(err, storage.ErrDuplicateKey):
				result.TradesDuplicate++
			case err != nil:
				m.countError()
				return nil, fmt.Errorf("insert trade %s: %w", t.TradeID, err)
			default:
				result.TradesIngested++
			}
		}
		if m.obs != nil {
			m.obs.TradesIngested.Add(float64(result.TradesIngested))
		}
	}

	m.logger.WithFields(logrus.Fields{
		"markets":    result.MarketsUpserted,
		"trades":     result.TradesIngested,
		"duplicates": result.TradesDuplicate,
	}).Info("ingestion complete")
	return result, nil
}

func (m *Manager) countError() {
	if m.obs != nil {
		m.obs.IngestionErrors.Inc()
	}
}
