package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"optihome/models"
)

// maxStatusLogs caps the in-memory log ring per run.
const maxStatusLogs = 1000

// ErrRunInProgress is returned when a scrape run is requested while
// another one is still running.
var ErrRunInProgress = fmt.Errorf("a scrape run is already in progress")

// StatusTracker holds the in-memory state of the current (or most recent)
// scrape run. It is safe for concurrent use; the dashboard polls its
// snapshot while a run mutates it.
type StatusTracker struct {
	mu             sync.Mutex
	runID          string
	status         models.RunStatus
	kind           string
	currentPage    int
	totalPages     int
	itemsProcessed int
	startedAt      *time.Time
	finishedAt     *time.Time
	errMsg         string
	logs           []models.ScrapeLogEntry
}

// NewStatusTracker creates an idle tracker.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{status: models.RunIdle}
}

// Begin starts a new run and returns its id. Fails with ErrRunInProgress
// if a run is already active; all previous run state is replaced wholesale.
func (t *StatusTracker) Begin(kind string, totalPages int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == models.RunRunning {
		return "", ErrRunInProgress
	}

	now := time.Now()
	t.runID = uuid.NewString()
	t.status = models.RunRunning
	t.kind = kind
	t.currentPage = 0
	t.totalPages = totalPages
	t.itemsProcessed = 0
	t.startedAt = &now
	t.finishedAt = nil
	t.errMsg = ""
	t.logs = nil

	return t.runID, nil
}

// Page records progress onto a new page of the given kind.
func (t *StatusTracker) Page(kind string, page int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kind = kind
	t.currentPage = page
}

// ItemsAdded bumps the processed-item counter.
func (t *StatusTracker) ItemsAdded(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.itemsProcessed += n
}

// Log appends an entry to the capped log ring.
func (t *StatusTracker) Log(level, format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.logs = append(t.logs, models.ScrapeLogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
	})
	if len(t.logs) > maxStatusLogs {
		t.logs = t.logs[len(t.logs)-maxStatusLogs:]
	}
}

// Finish marks the run completed, or errored when err is non-nil.
func (t *StatusTracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.finishedAt = &now
	if err != nil {
		t.status = models.RunError
		t.errMsg = err.Error()
		return
	}
	t.status = models.RunCompleted
}

// Running reports whether a run is currently active.
func (t *StatusTracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status == models.RunRunning
}

// Snapshot returns a copy of the current state for the status endpoint.
func (t *StatusTracker) Snapshot() models.ScrapeStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	logs := make([]models.ScrapeLogEntry, len(t.logs))
	copy(logs, t.logs)

	return models.ScrapeStatus{
		RunID:          t.runID,
		Status:         t.status,
		Kind:           t.kind,
		CurrentPage:    t.currentPage,
		TotalPages:     t.totalPages,
		ItemsProcessed: t.itemsProcessed,
		Progress:       t.progressLocked(),
		StartedAt:      t.startedAt,
		FinishedAt:     t.finishedAt,
		Error:          t.errMsg,
		Logs:           logs,
	}
}

func (t *StatusTracker) progressLocked() float64 {
	if t.totalPages == 0 {
		return 0
	}
	return float64(t.currentPage) / float64(t.totalPages) * 100
}
