package api

import (
	"github.com/gofiber/fiber/v2"

	"stride/internal/models"
	"stride/internal/notify"
)

func (s *Server) StatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"loggedIn":      s.Sessions.IsValid(),
			"userId":        s.Sessions.UserID(),
			"counters":      s.Tracker.Counters(),
			"liveReminders": s.Sched.Live(),
			"tasks":         len(s.Tasks.List().Get()),
			"habits":        len(s.Habits.List().Get()),
		})
	}
}

// DashboardHandler assembles the dashboard numbers from the local stores and
// the tracker's counters.
func (s *Server) DashboardHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tasks := s.Tasks.List().Get()
		habits := s.Habits.List().Get()

		stats := models.DashboardStats{
			Points:      s.Tracker.Counters().WeeklyPoints,
			Streak:      s.Tracker.Counters().CurrentStreak,
			TotalTasks:  len(tasks),
			TotalHabits: len(habits),
		}
		for _, t := range tasks {
			if t.Completed {
				stats.CompletedTasks++
			}
		}
		for _, h := range habits {
			if h.CompletedToday {
				stats.CompletedHabits++
			}
		}
		return c.JSON(stats)
	}
}

// SweepHandler runs the overdue sweep against the current task list and
// flushes anything already due. Manual trigger for the periodic worker.
func (s *Server) SweepHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheduled := s.Sched.SweepOverdueTasks(s.Tasks.List().Get())
		fired := s.Sched.FireDue()
		return c.JSON(fiber.Map{"scheduled": scheduled, "fired": fired})
	}
}

func (s *Server) GetSettingsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(notify.LoadSettings(s.DB))
	}
}

func (s *Server) UpdateSettingsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var settings models.NotificationSettings
		if err := c.BodyParser(&settings); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := notify.SaveSettings(s.DB, settings); err != nil {
			return err
		}
		return c.JSON(settings)
	}
}

func (s *Server) SubscribePushHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sub models.PushSubscription
		if err := c.BodyParser(&sub); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Missing subscription fields")
		}
		if err := notify.SaveSubscription(s.DB, sub.Endpoint, sub.P256dh, sub.Auth); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func (s *Server) UnsubscribePushHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Endpoint string `json:"endpoint"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := notify.RemoveSubscription(s.DB, body.Endpoint); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
