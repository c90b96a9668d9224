// Package belief implements per-wallet belief inference: deriving one
// wallet's current believed probability for one market from its trade
// sequence. Purely a query, nothing is persisted here.
package belief

import (
	"math"

	"smartcrowd/internal/domain"
)

// minPositionSize is the net size below which a position counts as closed.
const minPositionSize = 1e-9

// Infer derives the (belief, confidence) pair for one wallet in one market
// from its time-ordered trade sequence, using only trades with
// timestamp <= asOf. Returns nil when no usable trade remains, plus the
// count of malformed or out-of-order trades that were skipped.
func Infer(walletID, marketID string, trades []*domain.Trade, asOf int64, cfg domain.PipelineConfig) (*domain.WalletBelief, int) {
	halfLifeMs := cfg.DecayHalfLifeHours * float64(60*60*1000)
	if halfLifeMs <= 0 {
		return nil, 0
	}

	var (
		weightSum  float64
		beliefSum  float64
		netSize    float64
		lastTS     int64
		used       int
		skipped    int
	)

	for _, t := range trades {
		if t == nil || t.Timestamp > asOf {
			continue
		}
		if !usable(t) || t.Timestamp < lastTS {
			skipped++
			continue
		}
		lastTS = t.Timestamp

		elapsed := float64(asOf - t.Timestamp)
		w := t.Size * math.Exp2(-elapsed/halfLifeMs)
		weightSum += w
		beliefSum += w * t.YesProb()

		if t.Direction == domain.TradeDirectionClose {
			netSize -= t.Size
		} else {
			netSize += t.Size
		}
		used++
	}

	if used == 0 || weightSum <= 0 {
		return nil, skipped
	}

	open := netSize > minPositionSize
	conf := confidence(weightSum, asOf-lastTS, halfLifeMs, cfg)
	if open {
		conf = math.Min(1, conf*cfg.PersistenceBoost)
	}

	return &domain.WalletBelief{
		WalletID:     walletID,
		MarketID:     marketID,
		AsOf:         asOf,
		Belief:       beliefSum / weightSum,
		Confidence:   conf,
		OpenPosition: open,
		TradeCount:   used,
	}, skipped
}

// confidence grows with decay-weighted trade mass and shrinks as the last
// trade ages. Saturates toward 1, never reaches it without the persistence
// boost.
func confidence(mass float64, sinceLastMs int64, halfLifeMs float64, cfg domain.PipelineConfig) float64 {
	saturation := mass / (mass + cfg.ConfidenceMassK)
	recency := math.Exp2(-float64(sinceLastMs) / halfLifeMs)
	return saturation * (0.5 + 0.5*recency)
}

// usable rejects trades the inference cannot price.
func usable(t *domain.Trade) bool {
	if t.Timestamp <= 0 || t.Size <= 0 {
		return false
	}
	if t.Price < 0 || t.Price > 1 {
		return false
	}
	if t.Side != domain.TradeSideYes && t.Side != domain.TradeSideNo {
		return false
	}
	return true
}
