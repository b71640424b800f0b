package screening

import (
	"sort"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
)

// Cluster groups detections by pair and, within each pair, splits the
// time-sorted sequence into contiguous runs ("events") wherever the gap
// between consecutive samples exceeds 3 * stepSeconds. A single encounter
// produces several consecutive below-tolerance samples; a later encounter,
// orbits away, produces a new run separated by a much larger gap.
func Cluster(detections []CoarseDetection, stepSeconds float64) map[satellite.Pair][]Event {
	byPair := make(map[satellite.Pair][]CoarseDetection)
	for _, d := range detections {
		byPair[d.Pair] = append(byPair[d.Pair], d)
	}

	maxGap := time.Duration(3 * stepSeconds * float64(time.Second))
	events := make(map[satellite.Pair][]Event, len(byPair))

	for pair, ds := range byPair {
		sort.Slice(ds, func(i, j int) bool { return ds[i].TimeUTC.Before(ds[j].TimeUTC) })

		var runs []Event
		start := 0
		for i := 1; i < len(ds); i++ {
			gap := ds[i].TimeUTC.Sub(ds[i-1].TimeUTC)
			if gap > maxGap {
				runs = append(runs, Event{Pair: pair, Detections: append([]CoarseDetection(nil), ds[start:i]...)})
				start = i
			}
		}
		runs = append(runs, Event{Pair: pair, Detections: append([]CoarseDetection(nil), ds[start:]...)})
		events[pair] = runs
	}
	return events
}

// Flatten concatenates every pair's events into a single slice, the shape
// the refiner fans out over.
func Flatten(byPair map[satellite.Pair][]Event) []Event {
	var out []Event
	for _, events := range byPair {
		out = append(out, events...)
	}
	return out
}
