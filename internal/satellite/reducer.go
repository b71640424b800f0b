package satellite

import (
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Reduce returns every pair of satellites whose perigee/apogee altitude
// shells overlap once each endpoint is inflated by toleranceKm. This is a
// necessary, not sufficient, condition for a close approach: two orbits
// whose altitude bands don't overlap within tolerance cannot approach each
// other during the run, so the pair is never considered again downstream.
//
// The pair universe is O(N²) in len(satellites) and dominates memory at
// catalog scale; it is parallelized across the outer index the same way
// internal/propagation fans out across satellites, and callers should
// release the result as soon as the coarse sweep that consumes it completes.
func Reduce(satellites []Satellite, toleranceKm float64, logger *slog.Logger) []Pair {
	start := time.Now()
	n := len(satellites)
	if n < 2 {
		return nil
	}

	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}

	partials := make([][]Pair, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			var local []Pair
			for i := worker; i < n; i += workers {
				a := satellites[i]
				for j := i + 1; j < n; j++ {
					b := satellites[j]
					if shellsOverlap(a, b, toleranceKm) {
						pair, ok := NewPair(a.CatalogNumber, b.CatalogNumber)
						if ok {
							local = append(local, pair)
						}
					}
				}
			}
			partials[worker] = local
		}(w)
	}
	wg.Wait()

	total := 0
	for _, p := range partials {
		total += len(p)
	}
	pairs := make([]Pair, 0, total)
	for _, p := range partials {
		pairs = append(pairs, p...)
	}

	if logger != nil {
		logger.Debug("pair reduction complete",
			"satellites", n,
			"tolerance_km", toleranceKm,
			"pairs", len(pairs),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return pairs
}

// shellsOverlap implements the shell-overlap rule: the closed altitude
// intervals [pA, aA] and [pB, aB], each inflated by toleranceKm on both
// ends, must intersect.
func shellsOverlap(a, b Satellite, toleranceKm float64) bool {
	lo := a.PerigeeAltitudeKm
	if b.PerigeeAltitudeKm > lo {
		lo = b.PerigeeAltitudeKm
	}
	hi := a.ApogeeAltitudeKm
	if b.ApogeeAltitudeKm < hi {
		hi = b.ApogeeAltitudeKm
	}
	return lo-toleranceKm <= hi+toleranceKm
}
