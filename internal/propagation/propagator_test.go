package propagation

import (
	"math"
	"testing"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
)

// ISS TLE (epoch 2024, still propagates reasonably for near-future times).
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

// Starlink TLE (typical LEO constellation satellite).
const (
	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05"
)

// TestPropagateSingle verifies a single satellite propagates to a position
// with a physically reasonable magnitude for its known orbit.
func TestPropagateSingle(t *testing.T) {
	prop, err := NewSGP4Propagator(issLine1, issLine2, 25544)
	if err != nil {
		t.Fatalf("NewSGP4Propagator failed: %v", err)
	}

	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	pv, err := prop.Propagate(target)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}

	magKm := math.Sqrt(pv.PositionM[0]*pv.PositionM[0]+pv.PositionM[1]*pv.PositionM[1]+pv.PositionM[2]*pv.PositionM[2]) / 1000.0
	if magKm < 6500 || magKm > 7000 {
		t.Errorf("position magnitude = %.1f km, expected ~6791 km (ISS orbit)", magKm)
	}
}

// TestPropagateSubSecondInterpolation verifies Propagate at a fractional
// second lies between the floor and ceiling whole-second samples.
func TestPropagateSubSecondInterpolation(t *testing.T) {
	prop, err := NewSGP4Propagator(issLine1, issLine2, 25544)
	if err != nil {
		t.Fatalf("NewSGP4Propagator failed: %v", err)
	}

	base := time.Date(2024, 4, 10, 12, 0, 10, 0, time.UTC)
	mid := base.Add(500 * time.Millisecond)

	pv0, err := prop.Propagate(base)
	if err != nil {
		t.Fatalf("Propagate(base) failed: %v", err)
	}
	pv1, err := prop.Propagate(base.Add(time.Second))
	if err != nil {
		t.Fatalf("Propagate(base+1s) failed: %v", err)
	}
	pvMid, err := prop.Propagate(mid)
	if err != nil {
		t.Fatalf("Propagate(mid) failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		lo, hi := pv0.PositionM[i], pv1.PositionM[i]
		if lo > hi {
			lo, hi = hi, lo
		}
		const slack = 1.0 // metres
		if pvMid.PositionM[i] < lo-slack || pvMid.PositionM[i] > hi+slack {
			t.Errorf("axis %d: midpoint %.3f not between %.3f and %.3f", i, pvMid.PositionM[i], lo, hi)
		}
	}
}

// TestPropagateInvalidTLE verifies an invalid TLE returns an error instead
// of calling into the underlying library.
func TestPropagateInvalidTLE(t *testing.T) {
	_, err := NewSGP4Propagator("invalid line 1", "invalid line 2", 99999)
	if err == nil {
		t.Fatal("expected error for invalid TLE, got nil")
	}
}

func testSatellite(catNum int, line1, line2 string) satellite.Satellite {
	s := satellite.Satellite{
		CatalogNumber: catNum,
		Line1:         line1,
		Line2:         line2,
		Eccentricity:  0.0001,
		MeanMotion:    15.5,
	}
	s.ComputeDerivedElements()
	return s
}

// TestBuildSkipsInvalidEccentricity verifies a satellite with eccentricity
// >= 1 never reaches the propagator map.
func TestBuildSkipsInvalidEccentricity(t *testing.T) {
	sats := []satellite.Satellite{
		testSatellite(1, issLine1, issLine2),
		{CatalogNumber: 2, Line1: starlinkLine1, Line2: starlinkLine2, Eccentricity: 1.2, PerigeeAltitudeKm: 100, ApogeeAltitudeKm: 200},
	}

	cache := Build(sats, nil)
	if cache.Len() != 1 {
		t.Fatalf("expected 1 cached propagator, got %d", cache.Len())
	}
	if !cache.Has(1) {
		t.Error("expected satellite 1 to be cached")
	}
	if cache.Has(2) {
		t.Error("expected satellite 2 (eccentricity >= 1) to be skipped")
	}
}

// TestBuildSkipsUnparseableTLE verifies a malformed TLE is dropped rather
// than aborting the whole build.
func TestBuildSkipsUnparseableTLE(t *testing.T) {
	sats := []satellite.Satellite{
		testSatellite(1, issLine1, issLine2),
		testSatellite(2, "garbage", "garbage"),
	}

	cache := Build(sats, nil)
	if cache.Len() != 1 {
		t.Fatalf("expected 1 cached propagator, got %d", cache.Len())
	}
}

// TestPropagateAllSnapshot verifies the worker pool produces a position for
// every cached satellite.
func TestPropagateAllSnapshot(t *testing.T) {
	sats := []satellite.Satellite{
		testSatellite(25544, issLine1, issLine2),
		testSatellite(44713, starlinkLine1, starlinkLine2),
	}
	cache := Build(sats, nil)
	if cache.Len() != 2 {
		t.Fatalf("expected 2 cached propagators, got %d", cache.Len())
	}

	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	snapshot := cache.PropagateAll(target, 4)

	if len(snapshot) != 2 {
		t.Fatalf("expected 2 positions in snapshot, got %d", len(snapshot))
	}
	if _, ok := snapshot[25544]; !ok {
		t.Error("expected snapshot entry for 25544")
	}
	if _, ok := snapshot[44713]; !ok {
		t.Error("expected snapshot entry for 44713")
	}
}

// TestPropagateAllEmptyCache verifies an empty cache yields an empty, non-nil-panicking snapshot.
func TestPropagateAllEmptyCache(t *testing.T) {
	cache := Build(nil, nil)
	snapshot := cache.PropagateAll(time.Now().UTC(), 2)
	if len(snapshot) != 0 {
		t.Errorf("expected empty snapshot, got %d entries", len(snapshot))
	}
}

// BenchmarkPropagateAll1000 benchmarks a snapshot across 1000 satellites.
func BenchmarkPropagateAll1000(b *testing.B) {
	sats := make([]satellite.Satellite, 1000)
	for i := range sats {
		sats[i] = testSatellite(25544+i, issLine1, issLine2)
	}
	cache := Build(sats, nil)
	target := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.PropagateAll(target, 8)
	}
}
