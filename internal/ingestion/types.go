package ingestion

import "time"

// TLEEntry is one satellite's raw two-line element set as parsed from
// upstream text, before orbital elements are derived from it.
type TLEEntry struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// SyncResult reports the outcome of one catalog sync. The same shape is
// reported to callers whether sync succeeds or fails.
type SyncResult struct {
	StartedAt        time.Time
	CompletedAt      time.Time
	ObjectsProcessed int
	ObjectsInserted  int
	ObjectsUpdated   int
	ObjectsSkipped   int
	ObjectsDeleted   int
	Successful       bool
	ErrorMessage     string
}

// Log is a persisted record of one sync attempt, written independently of
// the sync transaction itself so a failed sync is still observable.
type Log struct {
	ID               int64
	StartedAt        time.Time
	CompletedAt      time.Time
	ObjectsProcessed int
	ObjectsInserted  int
	ObjectsUpdated   int
	ObjectsSkipped   int
	ObjectsDeleted   int
	Successful       bool
	ErrorMessage     string
}
