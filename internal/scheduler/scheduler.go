package scheduler

import (
	"log"
	"sync"
	"time"

	"stride/internal/notify"
)

// Kind distinguishes the reminder families. The deterministic tag for a
// registration is entityID + ":" + kind, which is the sole cancellation key
// and guarantees at most one live reminder per (entity, kind) pair.
type Kind string

const (
	KindDueDate       Kind = "due-date"
	KindPreDue        Kind = "pre-due"
	KindOverdue       Kind = "overdue"
	KindStreak        Kind = "streak"
	KindMilestone     Kind = "milestone"
	KindWeeklySummary Kind = "weekly-summary"
	KindInactivity    Kind = "inactivity"
)

var allKinds = []Kind{
	KindDueDate, KindPreDue, KindOverdue,
	KindStreak, KindMilestone, KindWeeklySummary, KindInactivity,
}

// Tag builds the deterministic registration key for an (entity, kind) pair.
func Tag(entityID string, kind Kind) string {
	return entityID + ":" + string(kind)
}

type entry struct {
	entityID string
	kind     Kind
	fireAt   time.Time
	payload  notify.Payload
}

// Scheduler is a timer-keyed registry: tag -> (fire-time, payload), with a
// single dispatcher goroutine that pops due entries and hands them to the
// delivery sink. Registrations do not survive a process restart.
type Scheduler struct {
	sink notify.Sink
	gate func(Kind) bool // nil allows every kind

	mu      sync.Mutex
	entries map[string]entry
	fired   map[string]time.Time
	now     func() time.Time
	wake    chan struct{}
	quit    chan struct{}
	started bool
}

// New builds a scheduler delivering through sink. gate is consulted at fire
// time; a nil gate allows every kind.
func New(sink notify.Sink, gate func(Kind) bool) *Scheduler {
	return &Scheduler{
		sink:    sink,
		gate:    gate,
		entries: map[string]entry{},
		fired:   map[string]time.Time{},
		now:     time.Now,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
}

// SetClock overrides the scheduler's clock. Test hook; call before Start.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Schedule registers a reminder under the deterministic tag for the pair,
// silently replacing any live registration with the same tag.
func (s *Scheduler) Schedule(entityID string, kind Kind, fireAt time.Time, payload notify.Payload) {
	tag := Tag(entityID, kind)
	s.mu.Lock()
	s.entries[tag] = entry{entityID: entityID, kind: kind, fireAt: fireAt, payload: payload}
	s.mu.Unlock()
	s.poke()
}

// Cancel removes the registration for the pair. Cancelling a tag with no
// live registration is a no-op.
func (s *Scheduler) Cancel(entityID string, kind Kind) {
	s.mu.Lock()
	delete(s.entries, Tag(entityID, kind))
	s.mu.Unlock()
	s.poke()
}

// CancelEntity cancels every reminder kind derived from the entity's id,
// including kinds that were never scheduled.
func (s *Scheduler) CancelEntity(entityID string) {
	s.mu.Lock()
	for _, kind := range allKinds {
		delete(s.entries, Tag(entityID, kind))
	}
	s.mu.Unlock()
	s.poke()
}

// IsScheduled reports whether a live registration exists for the pair.
func (s *Scheduler) IsScheduled(entityID string, kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[Tag(entityID, kind)]
	return ok
}

// FireTime returns the fire time of the live registration, if any.
func (s *Scheduler) FireTime(entityID string, kind Kind) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[Tag(entityID, kind)]
	return e.fireAt, ok
}

// Live returns the number of live registrations.
func (s *Scheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start launches the dispatcher goroutine.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()
	go s.run()
}

// Stop terminates the dispatcher.
func (s *Scheduler) Stop() {
	close(s.quit)
}

func (s *Scheduler) run() {
	for {
		s.mu.Lock()
		var nextTag string
		var nextAt time.Time
		for tag, e := range s.entries {
			if nextTag == "" || e.fireAt.Before(nextAt) {
				nextTag = tag
				nextAt = e.fireAt
			}
		}
		now := s.now()
		s.mu.Unlock()

		if nextTag == "" {
			select {
			case <-s.wake:
				continue
			case <-s.quit:
				return
			}
		}

		if delay := nextAt.Sub(now); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-s.wake:
				timer.Stop()
				continue
			case <-s.quit:
				timer.Stop()
				return
			}
		}

		s.fire(nextTag)
	}
}

// FireDue delivers every registration whose fire time has passed and returns
// how many fired. The dispatcher does this continuously; tests and the
// manual sweep endpoint call it directly.
func (s *Scheduler) FireDue() int {
	s.mu.Lock()
	now := s.now()
	var due []string
	for tag, e := range s.entries {
		if !e.fireAt.After(now) {
			due = append(due, tag)
		}
	}
	s.mu.Unlock()

	for _, tag := range due {
		s.fire(tag)
	}
	return len(due)
}

func (s *Scheduler) fire(tag string) {
	s.mu.Lock()
	e, ok := s.entries[tag]
	if !ok || e.fireAt.After(s.now()) {
		s.mu.Unlock()
		return
	}
	delete(s.entries, tag)
	s.fired[tag] = s.now()
	s.mu.Unlock()

	if s.gate != nil && !s.gate(e.kind) {
		log.Printf("Notification kind %s disabled - dropping %s", e.kind, tag)
		return
	}
	if err := s.sink.Deliver(e.payload); err != nil {
		log.Printf("Failed to deliver %s: %v", tag, err)
	}
}

// pruneFired drops fire records older than a day. firedOn only ever asks
// about the current day, so older records just accumulate.
func (s *Scheduler) pruneFired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tag, at := range s.fired {
		if now.Sub(at) > 24*time.Hour {
			delete(s.fired, tag)
		}
	}
}

// firedOn reports whether the tag already fired on the given calendar day.
func (s *Scheduler) firedOn(tag string, day time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.fired[tag]
	if !ok {
		return false
	}
	y1, m1, d1 := at.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
