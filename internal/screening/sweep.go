package screening

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/propagation"
	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
)

// Sweep propagates all cached satellites at uniform time steps across the
// lookahead window and, at each step, records every candidate pair whose
// 3-D distance falls below toleranceKm. Time is the outer loop so each
// propagator is evaluated once per step rather than once per pair per step.
func Sweep(ctx context.Context, pairs []satellite.Pair, cache *propagation.Cache, start time.Time, cfg Config, logger *slog.Logger) []CoarseDetection {
	if len(pairs) == 0 || cache.Len() == 0 {
		return nil
	}

	stepDuration := time.Duration(cfg.StepSeconds * float64(time.Second))
	numSteps := int(cfg.LookaheadHours*3600/cfg.StepSeconds) + 1
	logInterval := numSteps / 10
	if logInterval == 0 {
		logInterval = 1
	}

	startTime := time.Now()
	var detections []CoarseDetection

	for k := 0; k < numSteps; k++ {
		select {
		case <-ctx.Done():
			if logger != nil {
				logger.Warn("coarse sweep cancelled", "completed_steps", k, "total_steps", numSteps)
			}
			return detections
		default:
		}

		tk := start.Add(time.Duration(k) * stepDuration)
		positions := cache.PropagateAll(tk, cfg.Workers)

		detections = append(detections, sweepStep(pairs, positions, tk, cfg.ToleranceKm)...)

		if k%logInterval == 0 && logger != nil {
			logger.Info("coarse sweep progress",
				"step", k,
				"total_steps", numSteps,
				"detections_so_far", len(detections),
			)
		}
	}

	if logger != nil {
		logger.Info("coarse sweep complete",
			"total_steps", numSteps,
			"detections", len(detections),
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
	}
	return detections
}

// sweepStep checks every pair against a single position snapshot, fanned out
// across the outer pair index the same way internal/satellite.Reduce fans
// out over the catalog.
func sweepStep(pairs []satellite.Pair, positions map[int]propagation.PV, t time.Time, toleranceKm float64) []CoarseDetection {
	n := len(pairs)
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers == 0 {
		return nil
	}

	partials := make([][]CoarseDetection, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			var local []CoarseDetection
			for i := worker; i < n; i += workers {
				pair := pairs[i]
				pvA, okA := positions[pair.A]
				pvB, okB := positions[pair.B]
				if !okA || !okB {
					continue
				}
				d := distanceKm(pvA, pvB)
				if d < toleranceKm {
					local = append(local, CoarseDetection{Pair: pair, TimeUTC: t, DistanceKm: d})
				}
			}
			partials[worker] = local
		}(w)
	}
	wg.Wait()

	var out []CoarseDetection
	for _, p := range partials {
		out = append(out, p...)
	}
	return out
}

// distanceKm computes 3-D Euclidean separation in kilometres, converting
// from metres first to stay in a numerically comfortable range.
func distanceKm(a, b propagation.PV) float64 {
	const mToKm = 1.0 / 1000.0
	dx := (a.PositionM[0] - b.PositionM[0]) * mToKm
	dy := (a.PositionM[1] - b.PositionM[1]) * mToKm
	dz := (a.PositionM[2] - b.PositionM[2]) * mToKm
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
