package propagation

import (
	"sync"
	"time"
)

// snapshotJob is a unit of work for the worker pool: propagate one cached
// satellite to a shared target time.
type snapshotJob struct {
	catalogNumber int
	prop          *SGP4Propagator
}

type snapshotResult struct {
	catalogNumber int
	pv            PV
	err           error
}

// WorkerPool fans SGP4 propagation at a single instant out across a fixed
// number of goroutines, the same shape the original library used for batch
// keyframe generation.
type WorkerPool struct {
	workers int
}

// NewWorkerPool creates a worker pool with the given width. A width <= 0
// falls back to a single worker.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{workers: workers}
}

// PropagateSnapshot propagates every entry in props to t and returns the
// successful results keyed by catalog number. Failures are dropped silently;
// the caller is expected to treat a missing entry as "unavailable this
// instant" rather than an error.
func (wp *WorkerPool) PropagateSnapshot(props map[int]*SGP4Propagator, t time.Time) map[int]PV {
	if len(props) == 0 {
		return nil
	}

	jobs := make(chan snapshotJob, wp.workers*2)
	results := make(chan snapshotResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				pv, err := job.prop.Propagate(t)
				results <- snapshotResult{catalogNumber: job.catalogNumber, pv: pv, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for catalogNumber, prop := range props {
			jobs <- snapshotJob{catalogNumber: catalogNumber, prop: prop}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[int]PV, len(props))
	for r := range results {
		if r.err != nil {
			continue
		}
		out[r.catalogNumber] = r.pv
	}
	return out
}
