// Package scheduler binds ingestion and screening runs to cron schedules
// using github.com/robfig/cron/v3, which parses the standard 5-field cron
// syntax the ingestion schedule is expressed in.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Salad109/satellite-conjunction-api/internal/ingestion"
	"github.com/Salad109/satellite-conjunction-api/internal/screening"
)

// IngestionRunner performs one catalog sync.
type IngestionRunner interface {
	Sync(ctx context.Context) ingestion.SyncResult
}

// ScreeningRunner performs one screening pass anchored at the given time.
type ScreeningRunner interface {
	Run(ctx context.Context, now time.Time) (screening.Summary, error)
}

// Scheduler owns the cron engine binding ingestion and screening runs to
// their respective runners. Each job is wrapped with SkipIfStillRunning so
// a slow sync or screening pass can never overlap with its own next
// scheduled invocation.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a Scheduler using the local-time cron parser options the
// package default provides (minute-level resolution, no seconds field,
// matching the conventional 5-field cron syntax the ingestion schedule is
// expressed in).
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}))),
		logger: logger,
	}
}

// cronLogger adapts *slog.Logger to cron.Logger so SkipIfStillRunning's
// skip notices land in the same structured log stream as everything else.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// ScheduleIngestion runs ingestion.Sync on expr.
func (s *Scheduler) ScheduleIngestion(expr string, runner IngestionRunner) error {
	_, err := s.cron.AddFunc(expr, func() {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		result := runner.Sync(ctx)
		s.logger.Info("scheduled ingestion sync complete",
			"successful", result.Successful,
			"processed", result.ObjectsProcessed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
	return err
}

// ScheduleScreening runs a screening pass on expr, anchored at the wall-clock
// time the trigger fires.
func (s *Scheduler) ScheduleScreening(expr string, runner ScreeningRunner) error {
	_, err := s.cron.AddFunc(expr, func() {
		now := time.Now().UTC()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		summary, err := runner.Run(ctx, now)
		if err != nil {
			s.logger.Error("scheduled screening run failed", "error", err)
			return
		}
		s.logger.Info("scheduled screening run complete",
			"conjunctions_found", summary.ConjunctionsFound,
			"duration_ms", summary.Duration.Milliseconds(),
		)
	})
	return err
}

// TriggerScreeningNow runs one screening pass immediately, outside the cron
// schedule. cmd/screen-once does not go through it; it calls
// Orchestrator.Run directly.
func TriggerScreeningNow(ctx context.Context, runner ScreeningRunner, now time.Time) (screening.Summary, error) {
	return runner.Run(ctx, now)
}

// Start begins running scheduled jobs in the background. Non-blocking.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}
