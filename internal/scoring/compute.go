package scoring

import (
	"math"

	"smartcrowd/internal/domain"
)

// probEpsilon keeps probabilities away from 0/1 so log loss stays finite.
const probEpsilon = 1e-4

// minPositionSize is the net size below which a position counts as closed.
const minPositionSize = 1e-9

// resolvedTrade pairs a trade with the resolution data of its market.
type resolvedTrade struct {
	trade   *domain.Trade
	outcome float64 // realized YES probability of the market
}

// sideProb returns the clamped implied probability of the side taken.
func (r resolvedTrade) sideProb() float64 {
	return clampProb(r.trade.Price)
}

// sideOutcome returns the realized value of the side taken.
func (r resolvedTrade) sideOutcome() float64 {
	return r.trade.SideOutcome(r.outcome)
}

// computeGroup calculates the full metric set for one group of resolved
// trades. Trades must be pre-sorted by timestamp ASC, trade_id ASC;
// specialization is wallet-level and supplied by the caller.
func computeGroup(trades []resolvedTrade, bins int, specialization float64) domain.SkillMetrics {
	return domain.SkillMetrics{
		Brier:            computeBrier(trades),
		LogLoss:          computeLogLoss(trades),
		CalibrationError: computeCalibration(trades, bins),
		Churn:            computeChurn(trades),
		Persistence:      computePersistence(trades),
		TimingEdge:       computeTimingEdge(trades),
		ROI:              computeROI(trades),
		Specialization:   specialization,
		SampleSize:       len(trades),
	}
}

// computeBrier calculates mean squared error between each trade's implied
// probability and the realized outcome of the side taken. Lower is better.
func computeBrier(trades []resolvedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	sum := 0.0
	for _, rt := range trades {
		diff := rt.sideProb() - rt.sideOutcome()
		sum += diff * diff
	}
	return sum / float64(len(trades))
}

// computeLogLoss calculates mean negative log-likelihood of the realized
// outcome under the trade's implied probability.
func computeLogLoss(trades []resolvedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}
	sum := 0.0
	for _, rt := range trades {
		p := rt.sideProb()
		o := rt.sideOutcome()
		sum += -(o*math.Log(p) + (1-o)*math.Log(1-p))
	}
	return sum / float64(len(trades))
}

// computeCalibration buckets trades by implied probability into a fixed bin
// count and returns the count-weighted mean absolute deviation between each
// bin's mean prediction and its realized frequency.
func computeCalibration(trades []resolvedTrade, bins int) float64 {
	if len(trades) == 0 || bins <= 0 {
		return 0
	}

	predSum := make([]float64, bins)
	outcomeSum := make([]float64, bins)
	counts := make([]int, bins)

	for _, rt := range trades {
		p := rt.sideProb()
		idx := int(p * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		predSum[idx] += p
		outcomeSum[idx] += rt.sideOutcome()
		counts[idx]++
	}

	total := float64(len(trades))
	weighted := 0.0
	for i := 0; i < bins; i++ {
		if counts[i] == 0 {
			continue
		}
		n := float64(counts[i])
		weighted += n / total * math.Abs(predSum[i]/n-outcomeSum[i]/n)
	}
	return weighted
}

// computeChurn counts directional reversals within each market's trade
// sequence and normalizes by total trade count. High churn signals noise
// trading.
func computeChurn(trades []resolvedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}

	lastSide := make(map[string]string) // market_id -> last side seen
	reversals := 0
	for _, rt := range trades {
		prev, seen := lastSide[rt.trade.MarketID]
		if seen && prev != rt.trade.Side {
			reversals++
		}
		lastSide[rt.trade.MarketID] = rt.trade.Side
	}
	return float64(reversals) / float64(len(trades))
}

// computePersistence returns the fraction of traded markets where the
// wallet's net position was still open at resolution.
func computePersistence(trades []resolvedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}

	netSize := make(map[string]float64) // market_id -> open size minus closed size
	for _, rt := range trades {
		if rt.trade.Direction == domain.TradeDirectionClose {
			netSize[rt.trade.MarketID] -= rt.trade.Size
		} else {
			netSize[rt.trade.MarketID] += rt.trade.Size
		}
	}

	held := 0
	for _, net := range netSize {
		if net > minPositionSize {
			held++
		}
	}
	return float64(held) / float64(len(netSize))
}

// computeTimingEdge returns the mean favorable move remaining when the
// wallet entered: positive when the wallet's entries preceded movement
// toward the eventual outcome.
func computeTimingEdge(trades []resolvedTrade) float64 {
	sum := 0.0
	n := 0
	for _, rt := range trades {
		if rt.trade.Direction != domain.TradeDirectionOpen {
			continue
		}
		sum += rt.sideOutcome() - rt.sideProb()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// computeROI returns the mean realized return on capital committed per
// entry: (payout - cost) / cost with the entry price as cost per unit.
func computeROI(trades []resolvedTrade) float64 {
	sum := 0.0
	n := 0
	for _, rt := range trades {
		if rt.trade.Direction != domain.TradeDirectionOpen {
			continue
		}
		p := rt.sideProb()
		sum += (rt.sideOutcome() - p) / p
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// computeSpecialization returns one minus the normalized entropy of a
// wallet's activity across categories: 1.0 for a single-category wallet,
// approaching 0 for activity spread evenly over many categories.
func computeSpecialization(categoryCounts map[string]int) float64 {
	if len(categoryCounts) <= 1 {
		if len(categoryCounts) == 0 {
			return 0
		}
		return 1
	}

	total := 0
	for _, c := range categoryCounts {
		total += c
	}
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, c := range categoryCounts {
		if c == 0 {
			continue
		}
		share := float64(c) / float64(total)
		entropy -= share * math.Log(share)
	}

	maxEntropy := math.Log(float64(len(categoryCounts)))
	return 1 - entropy/maxEntropy
}

// clampProb keeps a probability inside (0,1) by probEpsilon.
func clampProb(p float64) float64 {
	if p < probEpsilon {
		return probEpsilon
	}
	if p > 1-probEpsilon {
		return 1 - probEpsilon
	}
	return p
}
