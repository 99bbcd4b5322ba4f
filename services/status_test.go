package services

import (
	"errors"
	"testing"

	"optihome/models"
)

func TestStatusTrackerLifecycle(t *testing.T) {
	tr := NewStatusTracker()

	if got := tr.Snapshot().Status; got != models.RunIdle {
		t.Errorf("initial status: got %s, want %s", got, models.RunIdle)
	}

	runID, err := tr.Begin("flat", 4)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if runID == "" {
		t.Error("Begin should return a run id")
	}

	tr.Page("flat", 2)
	tr.ItemsAdded(10)
	tr.ItemsAdded(5)

	snap := tr.Snapshot()
	if snap.Status != models.RunRunning {
		t.Errorf("status: got %s, want %s", snap.Status, models.RunRunning)
	}
	if snap.Progress != 50 {
		t.Errorf("progress: got %v, want 50", snap.Progress)
	}
	if snap.ItemsProcessed != 15 {
		t.Errorf("items: got %d, want 15", snap.ItemsProcessed)
	}

	tr.Finish(nil)
	snap = tr.Snapshot()
	if snap.Status != models.RunCompleted {
		t.Errorf("final status: got %s, want %s", snap.Status, models.RunCompleted)
	}
	if snap.FinishedAt == nil {
		t.Error("FinishedAt should be set after Finish")
	}
}

func TestStatusTrackerRejectsConcurrentRuns(t *testing.T) {
	tr := NewStatusTracker()
	if _, err := tr.Begin("flat", 1); err != nil {
		t.Fatalf("first Begin: %v", err)
	}
	if _, err := tr.Begin("house", 1); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second Begin: got %v, want ErrRunInProgress", err)
	}

	tr.Finish(errors.New("boom"))
	snap := tr.Snapshot()
	if snap.Status != models.RunError || snap.Error != "boom" {
		t.Errorf("errored run: got %s/%q", snap.Status, snap.Error)
	}

	// A finished run, even a failed one, releases the slot.
	if _, err := tr.Begin("house", 1); err != nil {
		t.Errorf("Begin after finish: %v", err)
	}
}

func TestStatusTrackerBeginReplacesPreviousState(t *testing.T) {
	tr := NewStatusTracker()
	_, _ = tr.Begin("flat", 2)
	tr.ItemsAdded(7)
	tr.Log("info", "old run")
	tr.Finish(nil)

	_, _ = tr.Begin("house", 3)
	snap := tr.Snapshot()
	if snap.ItemsProcessed != 0 || len(snap.Logs) != 0 || snap.Kind != "house" {
		t.Errorf("stale state survived Begin: %+v", snap)
	}
}

func TestStatusTrackerCapsLogRing(t *testing.T) {
	tr := NewStatusTracker()
	_, _ = tr.Begin("flat", 1)

	for i := 0; i < maxStatusLogs+100; i++ {
		tr.Log("info", "entry %d", i)
	}

	logs := tr.Snapshot().Logs
	if len(logs) != maxStatusLogs {
		t.Fatalf("log ring size: got %d, want %d", len(logs), maxStatusLogs)
	}
	if logs[len(logs)-1].Message != "entry 1099" {
		t.Errorf("last entry: got %q, want %q", logs[len(logs)-1].Message, "entry 1099")
	}
}

func TestStatusTrackerProgressWithoutPages(t *testing.T) {
	tr := NewStatusTracker()
	if got := tr.Snapshot().Progress; got != 0 {
		t.Errorf("progress with zero pages: got %v, want 0", got)
	}
}
