package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Salad109/satellite-conjunction-api/internal/satellite"
)

// LogStore persists ingestion attempts independently of the catalog
// mutation itself, so a failed sync is still observable even though the
// satellite upsert that would have accompanied it never happened.
type LogStore interface {
	Save(l Log)
}

// InMemoryLogStore is a LogStore sufficient for a single screener instance;
// a durable deployment would back this with a table instead.
type InMemoryLogStore struct {
	logs   []Log
	nextID int64
}

func NewInMemoryLogStore() *InMemoryLogStore {
	return &InMemoryLogStore{}
}

func (s *InMemoryLogStore) Save(l Log) {
	s.nextID++
	l.ID = s.nextID
	s.logs = append(s.logs, l)
}

// Service drives one full catalog sync: fetch raw TLE text, parse and
// derive elements, diff against the existing catalog, upsert in batches,
// delete anything no longer present upstream, and log the attempt. It also
// owns the on-disk snapshot of the last few raw TLE fetches, so a cold start
// can warm-load the catalog without waiting on the network.
type Service struct {
	fetcher      *Fetcher
	cacheDir     string
	maxSnapshots int
	catalog      satellite.CatalogStore
	logs         LogStore
	batchSize    int
	logger       *slog.Logger
}

// NewService wires a Service. cacheDir may be empty to disable snapshotting
// entirely (Sync still succeeds; SyncFromCache then always errors).
func NewService(fetcher *Fetcher, cacheDir string, maxSnapshots int, catalog satellite.CatalogStore, logs LogStore, batchSize int, logger *slog.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if maxSnapshots <= 0 {
		maxSnapshots = 5
	}
	return &Service{
		fetcher:      fetcher,
		cacheDir:     cacheDir,
		maxSnapshots: maxSnapshots,
		catalog:      catalog,
		logs:         logs,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Sync performs one fetch → snapshot → parse → delete → upsert → log cycle.
func (s *Service) Sync(ctx context.Context) SyncResult {
	startedAt := time.Now().UTC()

	data, err := s.fetcher.Fetch(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("catalog sync failed fetching upstream TLE data", "error", err)
		}
		result := SyncResult{
			StartedAt:    startedAt,
			CompletedAt:  time.Now().UTC(),
			Successful:   false,
			ErrorMessage: err.Error(),
		}
		s.logs.Save(toLog(result))
		return result
	}

	if werr := s.writeSnapshot(data, startedAt); werr != nil && s.logger != nil {
		s.logger.Warn("failed writing TLE snapshot", "error", werr)
	}

	result := s.processEntries(data, startedAt)
	s.logs.Save(toLog(result))
	return result
}

// SyncFromCache replays the newest on-disk TLE snapshot without touching the
// network, for startup warm-loads and offline test fixtures.
func (s *Service) SyncFromCache() (SyncResult, error) {
	startedAt := time.Now().UTC()
	data, _, err := s.loadLatestSnapshot()
	if err != nil {
		return SyncResult{}, err
	}
	return s.processEntries(data, startedAt), nil
}

func (s *Service) processEntries(data []byte, startedAt time.Time) SyncResult {
	entries, err := Parse(bytes.NewReader(data), s.logger)
	if err != nil {
		result := SyncResult{
			StartedAt:    startedAt,
			CompletedAt:  time.Now().UTC(),
			Successful:   false,
			ErrorMessage: err.Error(),
		}
		return result
	}

	catalogNumbers := make([]int, 0, len(entries))
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if !seen[e.NORADID] {
			seen[e.NORADID] = true
			catalogNumbers = append(catalogNumbers, e.NORADID)
		}
	}

	deleted := s.catalog.DeleteByCatalogNumberNotIn(catalogNumbers)

	var (
		processed, updated, skipped int
		batch                       []satellite.Satellite
	)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		for _, sat := range batch {
			if _, exists := s.catalog.Find(sat.CatalogNumber); exists {
				updated++
			}
		}
		s.catalog.SaveAll(batch)
		batch = batch[:0]
	}

	for _, entry := range entries {
		sat, err := ToSatellite(entry)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping TLE entry with unparseable orbital elements", "catalog_number", entry.NORADID, "error", err)
			}
			skipped++
			continue
		}

		batch = append(batch, sat)
		processed++

		if len(batch) >= s.batchSize {
			flush()
		}
	}
	flush()

	inserted := processed - updated

	if s.logger != nil {
		s.logger.Info("catalog sync complete",
			"processed", processed,
			"inserted", inserted,
			"updated", updated,
			"skipped", skipped,
			"deleted", deleted,
		)
	}

	return SyncResult{
		StartedAt:        startedAt,
		CompletedAt:      time.Now().UTC(),
		ObjectsProcessed: processed,
		ObjectsInserted:  inserted,
		ObjectsUpdated:   updated,
		ObjectsSkipped:   skipped,
		ObjectsDeleted:   deleted,
		Successful:       true,
	}
}

func toLog(r SyncResult) Log {
	return Log{
		StartedAt:        r.StartedAt,
		CompletedAt:      r.CompletedAt,
		ObjectsProcessed: r.ObjectsProcessed,
		ObjectsInserted:  r.ObjectsInserted,
		ObjectsUpdated:   r.ObjectsUpdated,
		ObjectsSkipped:   r.ObjectsSkipped,
		ObjectsDeleted:   r.ObjectsDeleted,
		Successful:       r.Successful,
		ErrorMessage:     r.ErrorMessage,
	}
}

// snapshotFile is one timestamped raw TLE fetch on disk, named
// tle_<unix_seconds>.txt so the newest snapshot can be found by filename
// alone, without reading file metadata.
type snapshotFile struct {
	name string
	ts   time.Time
}

// writeSnapshot saves the raw TLE text from one fetch and prunes anything
// beyond maxSnapshots. A no-op when the service has no cache directory.
func (s *Service) writeSnapshot(data []byte, ts time.Time) error {
	if s.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return fmt.Errorf("creating TLE snapshot dir: %w", err)
	}

	filename := fmt.Sprintf("tle_%d.txt", ts.Unix())
	path := filepath.Join(s.cacheDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing TLE snapshot: %w", err)
	}

	return s.pruneSnapshots()
}

// loadLatestSnapshot reads the newest snapshot by filename timestamp.
func (s *Service) loadLatestSnapshot() ([]byte, time.Time, error) {
	if s.cacheDir == "" {
		return nil, time.Time{}, fmt.Errorf("no TLE snapshot directory configured")
	}

	files, err := s.listSnapshots()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(files) == 0 {
		return nil, time.Time{}, fmt.Errorf("no TLE snapshots found in %s", s.cacheDir)
	}

	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(s.cacheDir, latest.name))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading TLE snapshot: %w", err)
	}
	return data, latest.ts, nil
}

func (s *Service) listSnapshots() ([]snapshotFile, error) {
	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing TLE snapshot dir: %w", err)
	}

	var files []snapshotFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "tle_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		tsStr := strings.TrimSuffix(strings.TrimPrefix(name, "tle_"), ".txt")
		unix, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, snapshotFile{name: name, ts: time.Unix(unix, 0)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].ts.Before(files[j].ts) })
	return files, nil
}

func (s *Service) pruneSnapshots() error {
	files, err := s.listSnapshots()
	if err != nil {
		return err
	}
	if len(files) <= s.maxSnapshots {
		return nil
	}

	for _, f := range files[:len(files)-s.maxSnapshots] {
		if err := os.Remove(filepath.Join(s.cacheDir, f.name)); err != nil {
			return fmt.Errorf("pruning TLE snapshot %s: %w", f.name, err)
		}
	}
	return nil
}
