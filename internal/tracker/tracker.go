package tracker

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"stride/internal/database"
	"stride/internal/models"
	"stride/internal/notify"
	"stride/internal/scheduler"
)

const countersKey = "counters"

// PointsPoster is the slice of the gateway the tracker uses to relay points.
type PointsPoster interface {
	AddPoints(points int, userID string) error
}

var (
	streakThresholds    = []int{3, 7, 14, 30, 100}
	milestoneThresholds = []int{10, 50, 100, 500}
)

const (
	pointsPerCompletion = 10
	inactivityDays      = 3
)

// Tracker is the sole owner of the rolling counter set. Every other
// component requests counter updates through it; nothing else touches the
// persisted counters.
type Tracker struct {
	mu     sync.Mutex
	db     *sql.DB
	sched  *scheduler.Scheduler
	points PointsPoster

	counters models.CounterSet
	now      func() time.Time
}

func New(db *sql.DB, sched *scheduler.Scheduler, points PointsPoster) *Tracker {
	t := &Tracker{db: db, sched: sched, points: points, now: time.Now}
	t.counters = t.loadPersisted()
	return t
}

// SetClock overrides the tracker's clock. Test hook.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

func (t *Tracker) loadPersisted() models.CounterSet {
	raw, err := database.GetValue(t.db, countersKey)
	if err != nil {
		if !errors.Is(err, database.ErrNoValue) {
			log.Printf("Failed to read counters: %v", err)
		}
		return models.CounterSet{}
	}
	var counters models.CounterSet
	if err := json.Unmarshal([]byte(raw), &counters); err != nil {
		log.Printf("Malformed counters, resetting: %v", err)
		return models.CounterSet{}
	}
	return counters
}

func (t *Tracker) persistLocked() {
	raw, err := json.Marshal(t.counters)
	if err != nil {
		log.Printf("Failed to marshal counters: %v", err)
		return
	}
	if err := database.SetValue(t.db, countersKey, string(raw)); err != nil {
		log.Printf("Failed to persist counters: %v", err)
	}
}

// Counters returns a snapshot of the counter set.
func (t *Tracker) Counters() models.CounterSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters
}

func contains(thresholds []int, n int) bool {
	for _, v := range thresholds {
		if v == n {
			return true
		}
	}
	return false
}

// RecordCompletion advances the counters for one completed entity: streak
// continuity against the last completion date, lifetime and weekly totals,
// weekly points. Crossing a streak or milestone threshold triggers a
// celebratory notification, and the earned points are relayed to the backend
// best-effort.
func (t *Tracker) RecordCompletion(userID, what string) {
	t.mu.Lock()
	now := t.now()
	today := now.Format(models.DueDateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(models.DueDateLayout)

	prevStreak := t.counters.CurrentStreak
	switch t.counters.LastCompletionDate {
	case today:
		// Streak already counted for today.
	case yesterday:
		t.counters.CurrentStreak++
	default:
		t.counters.CurrentStreak = 1
	}
	t.counters.LastCompletionDate = today
	t.counters.TotalCompletions++
	t.counters.WeeklyCompletions++
	t.counters.WeeklyPoints += pointsPerCompletion

	streak := t.counters.CurrentStreak
	total := t.counters.TotalCompletions
	t.persistLocked()
	t.mu.Unlock()

	if streak > prevStreak && contains(streakThresholds, streak) {
		t.sched.Schedule(userID, scheduler.KindStreak, now, notify.Payload{
			Title: fmt.Sprintf("%d-day streak!", streak),
			Body:  fmt.Sprintf("You completed something %d days in a row. Keep it going!", streak),
			Tag:   scheduler.Tag(userID, scheduler.KindStreak),
		})
	}
	if contains(milestoneThresholds, total) {
		t.sched.Schedule(userID, scheduler.KindMilestone, now, notify.Payload{
			Title: fmt.Sprintf("Milestone: %d completions", total),
			Body:  fmt.Sprintf("%q was your %dth completion overall.", what, total),
			Tag:   scheduler.Tag(userID, scheduler.KindMilestone),
		})
	}

	if t.points != nil {
		go func() {
			if err := t.points.AddPoints(pointsPerCompletion, userID); err != nil {
				log.Printf("Failed to add points for %s: %v", userID, err)
			}
		}()
	}
}

// DailySweep re-evaluates the counters against the current date: a streak
// with no completion since the day before yesterday is broken, and a user
// idle for three days or more gets an inactivity nudge. Runs anchored at the
// morning sweep hour.
func (t *Tracker) DailySweep(userID string) {
	t.mu.Lock()
	now := t.now()
	last := t.counters.LastCompletionDate
	streak := t.counters.CurrentStreak
	t.mu.Unlock()

	if last == "" {
		return
	}
	lastDay, err := time.ParseInLocation(models.DueDateLayout, last, now.Location())
	if err != nil {
		log.Printf("Malformed last completion date %q: %v", last, err)
		return
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	// Round absorbs a DST-shortened or -lengthened day; both instants are
	// local midnights.
	const dayLength = 24 * time.Hour
	idleDays := int(today.Sub(lastDay).Round(dayLength) / dayLength)

	if idleDays >= 2 && streak > 0 {
		t.mu.Lock()
		t.counters.CurrentStreak = 0
		t.persistLocked()
		t.mu.Unlock()
		log.Printf("Streak broken after %d idle days", idleDays)
	}

	if idleDays >= inactivityDays {
		t.sched.Schedule(userID, scheduler.KindInactivity, now, notify.Payload{
			Title: "We miss you",
			Body:  fmt.Sprintf("Nothing completed for %d days. Pick one small task today.", idleDays),
			Tag:   scheduler.Tag(userID, scheduler.KindInactivity),
		})
	}
}

// WeeklySummary emits the weekly recap and resets the weekly counters.
// Anchored to Sunday mornings.
func (t *Tracker) WeeklySummary(userID string) {
	t.mu.Lock()
	now := t.now()
	completions := t.counters.WeeklyCompletions
	points := t.counters.WeeklyPoints
	t.counters.WeeklyCompletions = 0
	t.counters.WeeklyPoints = 0
	t.persistLocked()
	t.mu.Unlock()

	t.sched.Schedule(userID, scheduler.KindWeeklySummary, now, notify.Payload{
		Title: "Your week in review",
		Body:  fmt.Sprintf("%d completions, %d points earned this week.", completions, points),
		Tag:   scheduler.Tag(userID, scheduler.KindWeeklySummary),
	})
}
