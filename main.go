package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"stride/internal/api"
	"stride/internal/database"
	"stride/internal/gateway"
	"stride/internal/models"
	"stride/internal/notify"
	"stride/internal/scheduler"
	"stride/internal/session"
	"stride/internal/store"
	"stride/internal/timeline"
	"stride/internal/tracker"
	"stride/internal/transport"
)

func main() {
	dataDir := os.Getenv("STRIDE_DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}

	db, err := database.Initialize(filepath.Join(dataDir, "stride.db"))
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	apiURL := os.Getenv("STRIDE_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:3000/api"
		log.Println("WARNING: Using default STRIDE_API_URL. Set STRIDE_API_URL to point at your backend.")
	}

	sessions := session.NewStore(db)
	gw := gateway.New(apiURL, transport.NewFastHTTP(), sessions)

	// Bootstrap login from env when no persisted session survived. The app
	// stays usable without one; authenticated calls just fail until login.
	if !sessions.IsValid() {
		email := os.Getenv("STRIDE_EMAIL")
		password := os.Getenv("STRIDE_PASSWORD")
		if email != "" && password != "" {
			if err := gw.Login(email, password); err != nil {
				log.Printf("Bootstrap login failed: %v", err)
			} else {
				log.Printf("Logged in as %s", sessions.UserID())
			}
		} else {
			log.Println("No session and no STRIDE_EMAIL/STRIDE_PASSWORD set - starting logged out")
		}
	}

	// Notification delivery: always log, add web push and email when
	// configured.
	sinks := notify.Multi{notify.LogSink{}}
	if notify.IsWebPushConfigured() {
		log.Println("Web push delivery enabled")
		sinks = append(sinks, notify.NewWebPushSink(db))
	}
	if smtpCfg, err := notify.SMTPConfigFromEnv(); err != nil {
		log.Printf("Email delivery disabled: %v", err)
	} else {
		log.Println("Email delivery enabled")
		sinks = append(sinks, notify.NewEmailSink(smtpCfg))
	}

	// Settings gate the tracker-driven kinds; task reminder kinds carry
	// their own per-task toggles and pass through.
	sched := scheduler.New(sinks, func(kind scheduler.Kind) bool {
		settings := notify.LoadSettings(db)
		switch kind {
		case scheduler.KindStreak:
			return settings.EnableStreakNotifications
		case scheduler.KindMilestone:
			return settings.EnableMilestoneNotifications
		case scheduler.KindWeeklySummary:
			return settings.EnableWeeklySummary
		case scheduler.KindInactivity:
			return settings.EnableInactivityNotifications
		default:
			return true
		}
	})
	sched.Start()
	defer sched.Stop()

	track := tracker.New(db, sched, gw)
	events := timeline.New(gw)

	// Reminder tags are destroyed as soon as a toggle or delete is issued,
	// not only when it sticks. Cleanup outside the rollback contract.
	tasks := store.NewTaskStore(gw, store.Hooks[models.Task]{
		OnMutating: func(t models.Task) {
			sched.CancelEntity(t.ID)
		},
		OnCreated: func(t models.Task) {
			sched.ScheduleTaskReminders(t)
			events.Record(t.ID, models.EventCreated, "Created task: "+t.Title)
		},
		OnCompleted: func(t models.Task) {
			events.Record(t.ID, models.EventCompleted, "Completed task: "+t.Title)
			track.RecordCompletion(sessions.UserID(), t.Title)
		},
		OnDeleted: func(t models.Task) {
			events.Record(t.ID, models.EventDeleted, "Deleted task: "+t.Title)
		},
	})
	habits := store.NewHabitStore(gw, store.Hooks[models.Habit]{
		OnMutating: func(h models.Habit) {
			sched.CancelEntity(h.ID)
		},
		OnCompleted: func(h models.Habit) {
			events.Record(h.ID, models.EventCompleted, "Completed habit: "+h.Name)
			track.RecordCompletion(sessions.UserID(), h.Name)
		},
		OnDeleted: func(h models.Habit) {
			events.Record(h.ID, models.EventDeleted, "Deleted habit: "+h.Name)
		},
	})

	if sessions.IsValid() {
		userID := sessions.UserID()
		tasks.Load(userID, func(err error) {
			if err != nil {
				log.Printf("Initial task load failed: %v", err)
				return
			}
			for _, t := range tasks.List().Get() {
				sched.ScheduleTaskReminders(t)
			}
		})
		habits.Load(userID, nil)
	}

	enableWorkers := os.Getenv("ENABLE_WORKERS")
	if enableWorkers == "" {
		enableWorkers = "true"
	}

	if enableWorkers == "true" {
		log.Println("Starting background workers...")
		go func() {
			ticker := time.NewTicker(1 * time.Minute)
			defer ticker.Stop()
			lastDaily := time.Time{}
			lastWeekly := time.Time{}
			for range ticker.C {
				if !sessions.IsValid() {
					continue
				}
				userID := sessions.UserID()
				if n := sched.SweepOverdueTasks(tasks.List().Get()); n > 0 {
					log.Printf("Overdue sweep scheduled %d reminder(s)", n)
				}
				now := time.Now()
				if now.Hour() >= scheduler.StreakSweepHour && !sameDay(lastDaily, now) {
					lastDaily = now
					track.DailySweep(userID)
				}
				if now.Weekday() == time.Sunday && now.Hour() >= scheduler.ReminderHour && !sameDay(lastWeekly, now) {
					lastWeekly = now
					track.WeeklySummary(userID)
				}
			}
		}()
	} else {
		log.Println("Background workers disabled (set ENABLE_WORKERS=true to enable)")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})
	app.Use(logger.New())

	server := &api.Server{
		DB:       db,
		Sessions: sessions,
		Tasks:    tasks,
		Habits:   habits,
		Sched:    sched,
		Tracker:  track,
	}
	server.SetupRoutes(app)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	log.Printf("Server starting on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
