package screening

import (
	"log/slog"
	"math"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/conjunction"
	"github.com/Salad109/satellite-conjunction-api/internal/propagation"
)

const (
	refineAbsTimeToleranceS = 0.1 // 100ms, per the contract
	refineMaxEvals          = 100
)

// Refine locates the within-event time of closest approach and miss
// distance via a bracketed 1-D minimization, then computes relative speed
// at the refined TCA with a second propagation. ok is false if the event's
// pair has no usable propagator or every probe inside the bracket fails.
func Refine(event Event, cache *propagation.Cache, stepSeconds float64, logger *slog.Logger) (conjunction.Conjunction, bool) {
	propA, okA := cache.Get(event.Pair.A)
	propB, okB := cache.Get(event.Pair.B)
	if !okA || !okB {
		return conjunction.Conjunction{}, false
	}

	step := time.Duration(stepSeconds * float64(time.Second))
	bracketStart := event.Start().Add(-step)
	bracketEnd := event.End().Add(step)
	bracketWidth := bracketEnd.Sub(bracketStart).Seconds()

	warnedOnce := false
	d := func(offsetSeconds float64) float64 {
		t := bracketStart.Add(time.Duration(offsetSeconds * float64(time.Second)))
		pvA, errA := propA.Propagate(t)
		pvB, errB := propB.Propagate(t)
		if errA != nil || errB != nil {
			if logger != nil && !warnedOnce {
				logger.Warn("propagation failure during refinement, probe treated as infinite distance",
					"catalog_number_a", event.Pair.A, "catalog_number_b", event.Pair.B)
				warnedOnce = true
			}
			return math.Inf(1)
		}
		return distanceKm(pvA, pvB)
	}

	bestOffset, bestDistanceKm, _ := brentMinimize(d, 0, bracketWidth, refineAbsTimeToleranceS, refineMaxEvals)
	if math.IsInf(bestDistanceKm, 1) {
		return conjunction.Conjunction{}, false
	}

	tca := bracketStart.Add(time.Duration(bestOffset * float64(time.Second)))
	pvA, errA := propA.Propagate(tca)
	pvB, errB := propB.Propagate(tca)
	if errA != nil || errB != nil {
		return conjunction.Conjunction{}, false
	}

	return conjunction.Conjunction{
		CatalogNumberA:        event.Pair.A,
		CatalogNumberB:        event.Pair.B,
		TimeOfClosestApproach: tca,
		MissDistanceKm:        bestDistanceKm,
		RelativeSpeedMS:       relativeSpeedMS(pvA, pvB),
	}, true
}

func relativeSpeedMS(a, b propagation.PV) float64 {
	dx := a.VelocityMS[0] - b.VelocityMS[0]
	dy := a.VelocityMS[1] - b.VelocityMS[1]
	dz := a.VelocityMS[2] - b.VelocityMS[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
