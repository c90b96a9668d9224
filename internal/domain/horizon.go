package domain

// Horizon is the categorical time-to-resolution class of a trade.
// It is a pure function of timestamps, never stored independently of the
// records keyed by it.
type Horizon string

// Horizon bucket constants
const (
	HorizonIntraday Horizon = "intraday" // < 24h to resolution
	HorizonShort    Horizon = "short"    // < 7d
	HorizonMedium   Horizon = "medium"   // < 30d
	HorizonLong     Horizon = "long"     // >= 30d
)

const (
	hourMs = int64(60 * 60 * 1000)
	dayMs  = 24 * hourMs
)

// HorizonAt buckets the distance between at and resolutionTime (both ms).
// A trade placed after the resolution time falls into intraday.
func HorizonAt(resolutionTime, at int64) Horizon {
	remaining := resolutionTime - at
	switch {
	case remaining < dayMs:
		return HorizonIntraday
	case remaining < 7*dayMs:
		return HorizonShort
	case remaining < 30*dayMs:
		return HorizonMedium
	default:
		return HorizonLong
	}
}
