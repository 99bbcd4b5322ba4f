package services

import (
	"testing"
	"time"
)

func TestUntilNextSameDay(t *testing.T) {
	now := time.Date(2025, 3, 10, 1, 30, 0, 0, time.UTC)
	got := untilNext(now, 2, 0)
	if got != 30*time.Minute {
		t.Errorf("untilNext: got %v, want 30m", got)
	}
}

func TestUntilNextRollsToTomorrow(t *testing.T) {
	now := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	got := untilNext(now, 2, 0)
	if got != 24*time.Hour {
		t.Errorf("untilNext at the slot: got %v, want 24h", got)
	}

	now = time.Date(2025, 3, 10, 14, 15, 0, 0, time.UTC)
	got = untilNext(now, 2, 0)
	if got != 11*time.Hour+45*time.Minute {
		t.Errorf("untilNext past the slot: got %v, want 11h45m", got)
	}
}
