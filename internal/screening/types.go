package screening

import (
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
)

// CoarseDetection is a single below-tolerance sample recorded during the
// coarse sweep. It lives only for the duration of one screening run.
type CoarseDetection struct {
	Pair       satellite.Pair
	TimeUTC    time.Time
	DistanceKm float64
}

// Event is a non-empty, time-sorted, contiguous run of coarse detections for
// one pair, representing a single orbital encounter.
type Event struct {
	Pair       satellite.Pair
	Detections []CoarseDetection
}

// Start and End are the first and last sample times in the event.
func (e Event) Start() time.Time { return e.Detections[0].TimeUTC }
func (e Event) End() time.Time   { return e.Detections[len(e.Detections)-1].TimeUTC }

// Config bundles the tunables governing a screening run.
type Config struct {
	ToleranceKm    float64
	ThresholdKm    float64
	LookaheadHours float64
	StepSeconds    float64
	Workers        int
}
