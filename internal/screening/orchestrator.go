package screening

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/conjunction"
	"github.com/Salad109/satellite-conjunction-api/internal/metrics"
	"github.com/Salad109/satellite-conjunction-api/internal/propagation"
	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
)

// Summary reports what one screening run did, for logging and the HTTP
// control surface.
type Summary struct {
	SatellitesConsidered int
	PairsReduced         int
	Detections           int
	Events               int
	ConjunctionsFound    int
	Inserted             int
	Updated              int
	Duration             time.Duration
}

// Publisher receives each conjunction a screening run upserts, for fan-out
// to connected stream clients. A nil Publisher is valid; Orchestrator skips
// publishing entirely in that case.
type Publisher interface {
	Publish(conjunction.Conjunction)
}

// Orchestrator drives the pair-reduction → coarse-sweep → cluster → refine →
// dedup → upsert pipeline on a schedule.
type Orchestrator struct {
	catalog      satellite.CatalogStore
	conjunctions conjunction.Store
	publisher    Publisher
	cfg          Config
	logger       *slog.Logger
}

func NewOrchestrator(catalog satellite.CatalogStore, conjunctions conjunction.Store, publisher Publisher, cfg Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{catalog: catalog, conjunctions: conjunctions, publisher: publisher, cfg: cfg, logger: logger}
}

// Run executes one screening pass starting at now, per the orchestrator
// contract: load → reduce → build → sweep → cluster → refine → filter →
// dedup → upsert.
func (o *Orchestrator) Run(ctx context.Context, now time.Time) (Summary, error) {
	start := time.Now()

	sats := o.catalog.All()
	summary := Summary{SatellitesConsidered: len(sats)}

	reduceStart := time.Now()
	pairs := satellite.Reduce(sats, o.cfg.ToleranceKm, o.logger)
	summary.PairsReduced = len(pairs)
	metrics.ObserveStage("reduce", time.Since(reduceStart), len(pairs))

	cache := propagation.Build(sats, o.logger)

	sweepStart := time.Now()
	detections := Sweep(ctx, pairs, cache, now, o.cfg, o.logger)
	summary.Detections = len(detections)
	metrics.ObserveStage("sweep", time.Since(sweepStart), len(detections))
	pairs = nil // release the O(N^2) candidate list as soon as the sweep consumes it

	if len(detections) == 0 {
		if o.logger != nil {
			o.logger.Warn("screening run produced zero detections", "satellites", summary.SatellitesConsidered)
		}
		summary.Duration = time.Since(start)
		return summary, nil
	}

	clusterStart := time.Now()
	byPair := Cluster(detections, o.cfg.StepSeconds)
	events := Flatten(byPair)
	summary.Events = len(events)
	metrics.ObserveStage("cluster", time.Since(clusterStart), len(events))

	refineStart := time.Now()
	candidates := o.refineAll(ctx, events, cache)
	metrics.ObserveStage("refine", time.Since(refineStart), len(candidates))

	var filtered []conjunction.Conjunction
	for _, c := range candidates {
		if c.MissDistanceKm <= o.cfg.ThresholdKm {
			filtered = append(filtered, c)
		}
	}

	dedupeStart := time.Now()
	deduped := dedupeByPair(filtered)
	summary.ConjunctionsFound = len(deduped)
	metrics.ObserveStage("dedupe", time.Since(dedupeStart), len(deduped))

	inserted, updated := o.conjunctions.BatchUpsertIfCloser(deduped, now)
	summary.Inserted, summary.Updated = inserted, updated
	summary.Duration = time.Since(start)

	if o.publisher != nil {
		for _, c := range deduped {
			o.publisher.Publish(c)
		}
	}

	if o.logger != nil {
		o.logger.Info("screening run complete",
			"satellites", summary.SatellitesConsidered,
			"pairs_reduced", summary.PairsReduced,
			"detections", summary.Detections,
			"events", summary.Events,
			"conjunctions", summary.ConjunctionsFound,
			"inserted", summary.Inserted,
			"updated", summary.Updated,
			"duration_ms", summary.Duration.Milliseconds(),
		)
	}
	return summary, nil
}

// refineAll refines every event in parallel, bounded by cfg.Workers
// goroutines through a semaphore channel.
func (o *Orchestrator) refineAll(ctx context.Context, events []Event, cache *propagation.Cache) []conjunction.Conjunction {
	workers := o.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	results := make([]conjunction.Conjunction, len(events))
	ok := make([]bool, len(events))

	var wg sync.WaitGroup
eventLoop:
	for i, event := range events {
		select {
		case <-ctx.Done():
			break eventLoop
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, event Event) {
			defer wg.Done()
			defer func() { <-sem }()
			c, refined := Refine(event, cache, o.cfg.StepSeconds, o.logger)
			results[i] = c
			ok[i] = refined
		}(i, event)
	}
	wg.Wait()

	out := make([]conjunction.Conjunction, 0, len(events))
	for i, refined := range ok {
		if refined {
			out = append(out, results[i])
		}
	}
	return out
}

// dedupeByPair keeps, per (catId_a, catId_b), the candidate with the
// smallest miss distance; ties are broken deterministically by lower TCA.
func dedupeByPair(candidates []conjunction.Conjunction) []conjunction.Conjunction {
	best := make(map[satellite.Pair]conjunction.Conjunction, len(candidates))
	for _, c := range candidates {
		pair := satellite.Pair{A: c.CatalogNumberA, B: c.CatalogNumberB}
		existing, exists := best[pair]
		if !exists || c.MissDistanceKm < existing.MissDistanceKm ||
			(c.MissDistanceKm == existing.MissDistanceKm && c.TimeOfClosestApproach.Before(existing.TimeOfClosestApproach)) {
			best[pair] = c
		}
	}

	out := make([]conjunction.Conjunction, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CatalogNumberA != out[j].CatalogNumberA {
			return out[i].CatalogNumberA < out[j].CatalogNumberA
		}
		return out[i].CatalogNumberB < out[j].CatalogNumberB
	})
	return out
}
