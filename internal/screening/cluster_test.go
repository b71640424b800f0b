package screening

import (
	"testing"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
)

func det(pair satellite.Pair, t time.Time, distKm float64) CoarseDetection {
	return CoarseDetection{Pair: pair, TimeUTC: t, DistanceKm: distKm}
}

// TestClusterPreservesInput verifies the union of all events' detections
// equals the input set for a pair, and events are disjoint and time-sorted.
func TestClusterPreservesInput(t *testing.T) {
	pair, _ := satellite.NewPair(1, 2)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 10.0

	input := []CoarseDetection{
		det(pair, base, 10),
		det(pair, base.Add(10*time.Second), 8),
		det(pair, base.Add(20*time.Second), 9),
		// gap larger than 3*step opens a new event
		det(pair, base.Add(10*time.Minute), 12),
		det(pair, base.Add(10*time.Minute+10*time.Second), 11),
	}

	byPair := Cluster(input, step)
	events := byPair[pair]
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	var total int
	for _, e := range events {
		if len(e.Detections) == 0 {
			t.Error("expected non-empty event")
		}
		for i := 1; i < len(e.Detections); i++ {
			if e.Detections[i].TimeUTC.Before(e.Detections[i-1].TimeUTC) {
				t.Error("expected event detections to be time-sorted")
			}
		}
		total += len(e.Detections)
	}
	if total != len(input) {
		t.Errorf("expected union of event detections to equal input (%d), got %d", len(input), total)
	}
}

// TestClusterSplitRule verifies no two consecutive detections in the same
// event are separated by more than 3*step, and any larger gap splits.
func TestClusterSplitRule(t *testing.T) {
	pair, _ := satellite.NewPair(3, 4)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 5.0
	maxGap := time.Duration(3*step) * time.Second

	input := []CoarseDetection{
		det(pair, base, 1),
		det(pair, base.Add(maxGap), 1), // exactly at the boundary: stays in the same event
		det(pair, base.Add(maxGap+2*maxGap), 1), // beyond boundary: splits
	}

	byPair := Cluster(input, step)
	events := byPair[pair]
	if len(events) != 2 {
		t.Fatalf("expected boundary gap to stay joined and the larger gap to split, got %d events", len(events))
	}
	if len(events[0].Detections) != 2 {
		t.Errorf("expected first event to contain 2 detections, got %d", len(events[0].Detections))
	}
}

func TestFlatten(t *testing.T) {
	pairA, _ := satellite.NewPair(1, 2)
	pairB, _ := satellite.NewPair(3, 4)
	byPair := map[satellite.Pair][]Event{
		pairA: {{Pair: pairA}, {Pair: pairA}},
		pairB: {{Pair: pairB}},
	}
	flat := Flatten(byPair)
	if len(flat) != 3 {
		t.Fatalf("expected 3 flattened events, got %d", len(flat))
	}
}
