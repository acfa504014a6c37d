package api

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"stride/internal/models"
	"stride/internal/scheduler"
	"stride/internal/session"
	"stride/internal/store"
	"stride/internal/tracker"
)

// Server is the local control surface: health, status, settings, manual
// sweeps and web-push subscription management. It never exposes the remote
// backend's data model beyond what the engine already holds.
type Server struct {
	DB       *sql.DB
	Sessions *session.Store
	Tasks    *store.Store[models.Task]
	Habits   *store.Store[models.Habit]
	Sched    *scheduler.Scheduler
	Tracker  *tracker.Tracker
}

func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	api.Get("/status", s.StatusHandler())
	api.Get("/dashboard", s.DashboardHandler())
	api.Post("/sweep", s.SweepHandler())

	settings := api.Group("/settings")
	settings.Get("/", s.GetSettingsHandler())
	settings.Put("/", s.UpdateSettingsHandler())

	push := api.Group("/push")
	push.Post("/subscribe", s.SubscribePushHandler())
	push.Delete("/unsubscribe", s.UnsubscribePushHandler())
}
