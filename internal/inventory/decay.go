package inventory

import (
	"math"
	"time"

	"tonight/internal/catalog"
)

// Estimate is an inventory item's confidence and remaining quantity as of a
// point in time.
type Estimate struct {
	Confidence   float64
	RemainingQty *float64
}

// Decayer ages an inventory observation. Implementations must never return a
// higher confidence or quantity for a later time.
type Decayer interface {
	Decay(item catalog.InventoryItem, now time.Time) Estimate
}

// HalfLifeDecayer halves confidence every HalfLife and draws remaining
// quantity down by UsagePerDay.
type HalfLifeDecayer struct {
	HalfLife    time.Duration
	UsagePerDay float64
}

// Decay implements Decayer. Observations stamped after now are treated as
// fresh.
func (d HalfLifeDecayer) Decay(item catalog.InventoryItem, now time.Time) Estimate {
	elapsed := now.Sub(item.LastSeenAt)
	if elapsed < 0 || item.LastSeenAt.IsZero() {
		elapsed = 0
	}

	confidence := clamp01(item.Confidence)
	if d.HalfLife > 0 && elapsed > 0 {
		confidence *= math.Pow(0.5, float64(elapsed)/float64(d.HalfLife))
	}

	var remaining *float64
	if item.RemainingQty != nil {
		qty := *item.RemainingQty
		if d.UsagePerDay > 0 && elapsed > 0 {
			qty -= d.UsagePerDay * elapsed.Hours() / 24
		}
		if qty < 0 {
			qty = 0
		}
		remaining = &qty
	}
	return Estimate{Confidence: confidence, RemainingQty: remaining}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
