package models

import (
	"errors"
	"strings"
	"time"
)

// DueDateLayout is the wire format for task due dates (calendar date, no time).
const DueDateLayout = "2006-01-02"

type Task struct {
	ID                         string `json:"id"`
	UserID                     string `json:"userId"`
	Title                      string `json:"title"`
	Description                string `json:"description,omitempty"`
	Completed                  bool   `json:"completed"`
	DueDate                    string `json:"dueDate,omitempty"`
	EnableDueDateNotifications bool   `json:"enableDueDateNotifications"`
	EnablePreDueNotifications  bool   `json:"enablePreDueNotifications"`
}

func (t Task) Key() string         { return t.ID }
func (t Task) DisplayName() string { return t.Title }
func (t Task) IsCompleted() bool   { return t.Completed }

// Toggled returns a copy with the completion flag flipped.
func (t Task) Toggled() Task {
	t.Completed = !t.Completed
	return t
}

// DueDateTime parses the due date in the given location. Returns false when
// the due date is unset or malformed.
func (t Task) DueDateTime(loc *time.Location) (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DueDateLayout, t.DueDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Validate rejects tasks that should never reach the backend: an empty
// title, or a due date already in the past.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("task title is required")
	}
	if t.DueDate != "" {
		due, ok := t.DueDateTime(time.Local)
		if !ok {
			return errors.New("due date must be in YYYY-MM-DD format")
		}
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		if due.Before(today) {
			return errors.New("due date cannot be in the past")
		}
	}
	return nil
}

type Habit struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Streak         int    `json:"streak"`
	CompletedToday bool   `json:"completedToday"`
}

func (h Habit) Key() string         { return h.ID }
func (h Habit) DisplayName() string { return h.Name }
func (h Habit) IsCompleted() bool   { return h.CompletedToday }

// Toggled flips completedToday and adjusts the streak with it: +1 on
// completion, -1 floored at zero on un-completion. Both fields move together
// so a rollback restores both.
func (h Habit) Toggled() Habit {
	h.CompletedToday = !h.CompletedToday
	if h.CompletedToday {
		h.Streak++
	} else if h.Streak > 0 {
		h.Streak--
	}
	return h
}

func (h Habit) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return errors.New("habit name is required")
	}
	return nil
}

// Session is the credential triple attached to every remote call. All three
// fields must be present; partial state is treated as absent.
type Session struct {
	UserID     string    `json:"userId"`
	Token      string    `json:"token"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

func (s Session) IsValid() bool {
	return s.UserID != "" && s.Token != "" && !s.AcquiredAt.IsZero()
}

// CounterSet holds the per-user rolling numbers owned by the tracker.
type CounterSet struct {
	CurrentStreak      int    `json:"currentStreak"`
	LastCompletionDate string `json:"lastCompletionDate,omitempty"` // YYYY-MM-DD
	TotalCompletions   int    `json:"totalCompletions"`
	WeeklyCompletions  int    `json:"weeklyCompletions"`
	WeeklyPoints       int    `json:"weeklyPoints"`
}

// NotificationSettings are the user-facing toggles read before emitting the
// corresponding notification kind.
type NotificationSettings struct {
	EnableStreakNotifications     bool `json:"enableStreakNotifications"`
	EnableMilestoneNotifications  bool `json:"enableMilestoneNotifications"`
	EnableWeeklySummary           bool `json:"enableWeeklySummary"`
	EnableInactivityNotifications bool `json:"enableInactivityNotifications"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		EnableStreakNotifications:     true,
		EnableMilestoneNotifications:  true,
		EnableWeeklySummary:           true,
		EnableInactivityNotifications: true,
	}
}

// Timeline event types.
const (
	EventCreated   = "CREATED"
	EventCompleted = "COMPLETED"
	EventDeleted   = "DELETED"
)

type TimelineEvent struct {
	ID          string `json:"id,omitempty"`
	EntityID    string `json:"entityId"`
	EventType   string `json:"eventType"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp"` // ISO-8601 UTC
}

type DashboardStats struct {
	Points          int `json:"points"`
	Streak          int `json:"streak"`
	CompletedTasks  int `json:"completedTasks"`
	TotalTasks      int `json:"totalTasks"`
	CompletedHabits int `json:"completedHabits"`
	TotalHabits     int `json:"totalHabits"`
}

type PushSubscription struct {
	ID       int    `json:"id"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the opaque session token. An empty SessionToken is a
// login failure regardless of HTTP status.
type LoginResponse struct {
	Message      string `json:"message"`
	SessionToken string `json:"sessionToken"`
	UserID       string `json:"userId"`
}

type AddPointsRequest struct {
	Points int    `json:"points"`
	UserID string `json:"userId"`
}
