// screen-once runs a single screening pass against a cached TLE snapshot
// and prints a human-readable summary of the conjunctions it finds, for
// local diagnosis without standing up the full HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/conjunction"
	"github.com/Salad109/satellite-conjunction-api/internal/ingestion"
	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
	"github.com/Salad109/satellite-conjunction-api/internal/screening"
)

func main() {
	cacheDir := flag.String("cache-dir", "/tmp/screener/tle", "directory containing cached TLE snapshot files")
	toleranceKm := flag.Float64("tolerance-km", 50, "shell-overlap pair-reduction tolerance, in km")
	thresholdKm := flag.Float64("threshold-km", 5, "miss-distance threshold for a reported conjunction, in km")
	lookaheadHours := flag.Float64("lookahead-hours", 24, "screening lookahead window, in hours")
	stepSeconds := flag.Float64("step-seconds", 3, "coarse sweep step, in seconds")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	catalog := satellite.NewInMemoryCatalogStore()
	svc := ingestion.NewService(nil, *cacheDir, 5, catalog, ingestion.NewInMemoryLogStore(), 1000, logger)

	result, err := svc.SyncFromCache()
	if err != nil {
		fmt.Println("ERROR loading cached TLE data:", err)
		os.Exit(1)
	}
	fmt.Printf("Catalog loaded from cache: %d processed, %d skipped\n", result.ObjectsProcessed, result.ObjectsSkipped)

	conjunctions := conjunction.NewInMemoryStore()
	cfg := screening.Config{
		ToleranceKm:    *toleranceKm,
		ThresholdKm:    *thresholdKm,
		LookaheadHours: *lookaheadHours,
		StepSeconds:    *stepSeconds,
		Workers:        4,
	}
	orchestrator := screening.NewOrchestrator(catalog, conjunctions, nil, cfg, logger)

	now := time.Now().UTC()
	fmt.Printf("Screening run start: %v (catalog: %d satellites, lookahead: %.0fh)\n",
		now.Format(time.RFC3339), catalog.Count(), cfg.LookaheadHours)

	summary, err := orchestrator.Run(context.Background(), now)
	if err != nil {
		fmt.Println("ERROR during screening run:", err)
		os.Exit(1)
	}

	fmt.Printf("\nPairs reduced: %d | Detections: %d | Events: %d\n",
		summary.PairsReduced, summary.Detections, summary.Events)
	fmt.Printf("Conjunctions found: %d (inserted %d, updated %d) in %v\n\n",
		summary.ConjunctionsFound, summary.Inserted, summary.Updated, summary.Duration)

	page, total := conjunctions.GetConjunctions(0, 1000)
	sort.Slice(page, func(i, j int) bool {
		return page[i].MissDistanceKm < page[j].MissDistanceKm
	})

	for _, c := range page {
		fmt.Printf("  %6d <-> %-6d  TCA=%s  miss=%.3fkm  rel_speed=%.0fm/s\n",
			c.CatalogNumberA, c.CatalogNumberB,
			c.TimeOfClosestApproach.Format(time.RFC3339),
			c.MissDistanceKm, c.RelativeSpeedMS)
	}
	fmt.Printf("\nTotal stored conjunctions: %d\n", total)
}
