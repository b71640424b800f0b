package propagation

import (
	"log/slog"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
)

// Cache is a set of preinitialized SGP4 propagators for one screening run's
// catalog snapshot. It is built once per run and discarded at run end, never
// mutated or reused across runs, since a fresh catalog sync invalidates every
// propagator in it.
type Cache struct {
	props map[int]*SGP4Propagator
}

// Build constructs a propagator for every satellite whose TLE parses and
// whose orbital elements satisfy the eccentricity/shell invariants,
// discarding the rest. The count of skipped entries is always logged.
func Build(satellites []satellite.Satellite, logger *slog.Logger) *Cache {
	props := make(map[int]*SGP4Propagator, len(satellites))
	var skipped int

	for _, s := range satellites {
		if !s.Valid() {
			skipped++
			continue
		}
		sp, err := NewSGP4Propagator(s.Line1, s.Line2, s.CatalogNumber)
		if err != nil {
			if logger != nil {
				logger.Warn("propagator build skipped satellite", "catalog_number", s.CatalogNumber, "error", err)
			}
			skipped++
			continue
		}
		props[s.CatalogNumber] = sp
	}

	if logger != nil {
		logger.Info("propagator cache built",
			"cached", len(props),
			"skipped", skipped,
		)
	}
	return &Cache{props: props}
}

// Len reports the number of satellites with a usable propagator.
func (c *Cache) Len() int {
	return len(c.props)
}

// Has reports whether catalogNumber has a usable propagator in this cache.
func (c *Cache) Has(catalogNumber int) bool {
	_, ok := c.props[catalogNumber]
	return ok
}

// Get returns the propagator for catalogNumber, for callers that need a
// single satellite's pv(t) directly rather than a full-catalog snapshot
// (the event refiner only ever needs two).
func (c *Cache) Get(catalogNumber int) (*SGP4Propagator, bool) {
	p, ok := c.props[catalogNumber]
	return p, ok
}

// PropagateAll computes a position/velocity snapshot for every cached
// satellite at instant t, fanned out across a worker pool. A satellite whose
// propagation fails at this instant (numerical blow-up, epoch too far from
// validity) is silently dropped from the returned snapshot; it may still
// succeed at a different instant.
func (c *Cache) PropagateAll(t time.Time, workers int) map[int]PV {
	pool := NewWorkerPool(workers)
	return pool.PropagateSnapshot(c.props, t)
}
