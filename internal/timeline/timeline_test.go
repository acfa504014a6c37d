package timeline_test

import (
	"errors"
	"testing"
	"time"

	"stride/internal/models"
	"stride/internal/timeline"
)

type fakePoster struct {
	events chan models.TimelineEvent
	err    error
}

func (f *fakePoster) PostTimeline(event models.TimelineEvent) error {
	f.events <- event
	return f.err
}

func TestRecordPostsEvent(t *testing.T) {
	poster := &fakePoster{events: make(chan models.TimelineEvent, 1)}
	sink := timeline.New(poster)

	sink.Record("task-1", models.EventCompleted, "Pay rent")

	select {
	case event := <-poster.events:
		if event.EntityID != "task-1" || event.EventType != models.EventCompleted {
			t.Fatalf("Unexpected event: %+v", event)
		}
		if event.ID == "" {
			t.Fatal("Expected a generated event id")
		}
		if _, err := time.Parse(time.RFC3339, event.Timestamp); err != nil {
			t.Fatalf("Expected RFC3339 timestamp, got %q", event.Timestamp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for timeline post")
	}
}

func TestRecordSwallowsFailures(t *testing.T) {
	poster := &fakePoster{events: make(chan models.TimelineEvent, 1), err: errors.New("backend down")}
	sink := timeline.New(poster)

	// Must not panic or block the caller.
	sink.Record("task-1", models.EventDeleted, "Pay rent")

	select {
	case <-poster.events:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for timeline post")
	}
}
