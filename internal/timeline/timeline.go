package timeline

import (
	"log"
	"time"

	"github.com/google/uuid"

	"stride/internal/models"
)

// Poster is the slice of the gateway the sink needs.
type Poster interface {
	PostTimeline(event models.TimelineEvent) error
}

// Sink records entity lifecycle events on the backend timeline. Recording is
// fire-and-forget: failures are logged and swallowed, and a record never
// blocks or rolls back the mutation that produced it.
type Sink struct {
	poster Poster
}

func New(poster Poster) *Sink {
	return &Sink{poster: poster}
}

// Record posts one lifecycle event asynchronously.
func (s *Sink) Record(entityID, eventType, description string) {
	event := models.TimelineEvent{
		ID:          uuid.NewString(),
		EntityID:    entityID,
		EventType:   eventType,
		Description: description,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		if err := s.poster.PostTimeline(event); err != nil {
			log.Printf("Timeline event %s for %s dropped: %v", eventType, entityID, err)
		}
	}()
}
