package scheduler

import (
	"testing"
	"time"

	"stride/internal/models"
	"stride/internal/notify"
)

func TestSweepPrunesStaleFireRecords(t *testing.T) {
	s := New(notify.LogSink{}, nil)
	day1 := time.Date(2025, time.January, 11, 10, 0, 0, 0, time.Local)
	s.SetClock(func() time.Time { return day1 })

	task := models.Task{ID: "t1", Title: "Pay rent", DueDate: "2025-01-10"}
	s.SweepOverdueTasks([]models.Task{task})
	if n := s.FireDue(); n != 1 {
		t.Fatalf("Expected the overdue notification to fire, got %d", n)
	}

	s.mu.Lock()
	n := len(s.fired)
	s.mu.Unlock()
	if n != 1 {
		t.Fatalf("Expected one fire record, got %d", n)
	}

	// Two days later the record is useless; the next sweep drops it.
	s.SetClock(func() time.Time { return day1.AddDate(0, 0, 2) })
	s.SweepOverdueTasks(nil)

	s.mu.Lock()
	n = len(s.fired)
	s.mu.Unlock()
	if n != 0 {
		t.Fatalf("Expected stale fire records to be pruned, got %d", n)
	}
}
