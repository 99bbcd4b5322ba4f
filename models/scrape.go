package models

import "time"

// RunStatus is the lifecycle state of a scrape run.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// ScrapeLogEntry is one line of a scrape run's capped log ring.
type ScrapeLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// ScrapeStatus is a point-in-time snapshot of the status tracker, served
// to the dashboard's scraper-status poller.
type ScrapeStatus struct {
	RunID          string           `json:"runId,omitempty"`
	Status         RunStatus        `json:"status"`
	Kind           string           `json:"kind,omitempty"`
	CurrentPage    int              `json:"currentPage"`
	TotalPages     int              `json:"totalPages"`
	ItemsProcessed int              `json:"itemsProcessed"`
	Progress       float64          `json:"progress"`
	StartedAt      *time.Time       `json:"startedAt,omitempty"`
	FinishedAt     *time.Time       `json:"finishedAt,omitempty"`
	Error          string           `json:"error,omitempty"`
	Logs           []ScrapeLogEntry `json:"logs"`
}
