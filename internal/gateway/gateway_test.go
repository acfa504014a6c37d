package gateway_test

import (
	"errors"
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"stride/internal/database"
	"stride/internal/gateway"
	"stride/internal/models"
	"stride/internal/session"
	"stride/internal/transport"
)

// fakeBackend is a minimal stand-in for the remote API, listening on a real
// port so the fasthttp transport exercises its actual request path.
type fakeBackend struct {
	secret       []byte
	passwordHash []byte

	tasks       []models.Task
	nextID      int64
	calls       int64
	lastAuth    atomic.Value
	renewToken  string
	emptyLogin  bool
	forceStatus int
	forceBody   string
}

func (b *fakeBackend) mintToken(userID string) string {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (b *fakeBackend) validToken(header string) bool {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	token, err := jwt.Parse(header[len(prefix):], func(t *jwt.Token) (any, error) {
		return b.secret, nil
	})
	return err == nil && token.Valid
}

func (b *fakeBackend) app() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Post("/auth/login", func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}
		if bcrypt.CompareHashAndPassword(b.passwordHash, []byte(req.Password)) != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
		}
		if b.emptyLogin {
			return c.JSON(fiber.Map{})
		}
		return c.JSON(models.LoginResponse{UserID: "u1", SessionToken: b.mintToken("u1")})
	})

	authed := app.Use(func(c *fiber.Ctx) error {
		atomic.AddInt64(&b.calls, 1)
		b.lastAuth.Store(c.Get("Authorization"))
		if b.forceStatus != 0 {
			return c.Status(b.forceStatus).SendString(b.forceBody)
		}
		if !b.validToken(c.Get("Authorization")) {
			return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
		}
		if b.renewToken != "" {
			c.Set(gateway.SessionTokenHeader, b.renewToken)
		}
		return c.Next()
	})

	authed.Get("/tasks", func(c *fiber.Ctx) error {
		return c.JSON(b.tasks)
	})
	authed.Post("/tasks", func(c *fiber.Ctx) error {
		var t models.Task
		if err := c.BodyParser(&t); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}
		t.ID = "task-" + strconv.FormatInt(atomic.AddInt64(&b.nextID, 1), 10)
		b.tasks = append(b.tasks, t)
		return c.Status(201).JSON(t)
	})
	authed.Put("/tasks/:id/toggle", func(c *fiber.Ctx) error {
		for i := range b.tasks {
			if b.tasks[i].ID == c.Params("id") {
				b.tasks[i].Completed = !b.tasks[i].Completed
				return c.JSON(b.tasks[i])
			}
		}
		return c.Status(404).JSON(fiber.Map{"error": "Task not found"})
	})

	return app
}

func (b *fakeBackend) authHeader() string {
	v, _ := b.lastAuth.Load().(string)
	return v
}

func startBackend(t *testing.T, b *fakeBackend) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	app := b.app()
	go app.Listener(ln)
	t.Cleanup(func() { app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func setup(t *testing.T, b *fakeBackend) (*gateway.Gateway, *session.Store) {
	t.Helper()
	db, err := database.Initialize(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := session.NewStore(db)
	gw := gateway.New(startBackend(t, b), transport.NewFastHTTP(), sessions)
	return gw, sessions
}

func newBackend(t *testing.T) *fakeBackend {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return &fakeBackend{secret: []byte("test-secret"), passwordHash: hash}
}

func TestLoginSavesSession(t *testing.T) {
	gw, sessions := setup(t, newBackend(t))

	if err := gw.Login("amy@example.com", "hunter2"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !sessions.IsValid() {
		t.Fatal("Expected a valid session after login")
	}
	if sessions.UserID() != "u1" {
		t.Fatalf("Expected userId u1, got %q", sessions.UserID())
	}
}

func TestLoginWrongPasswordFails(t *testing.T) {
	gw, sessions := setup(t, newBackend(t))

	if err := gw.Login("amy@example.com", "wrong"); err == nil {
		t.Fatal("Expected login failure for a wrong password")
	}
	if sessions.IsValid() {
		t.Fatal("Session must stay empty after a failed login")
	}
}

func TestLoginMissingTokenFails(t *testing.T) {
	b := newBackend(t)
	b.emptyLogin = true
	gw, sessions := setup(t, b)

	// A 200 without a session token is still a failed login.
	if err := gw.Login("amy@example.com", "hunter2"); err == nil {
		t.Fatal("Expected login failure when the response carries no token")
	}
	if sessions.IsValid() {
		t.Fatal("Session must stay empty when no token was issued")
	}
}

func TestCallsCarryBearerToken(t *testing.T) {
	b := newBackend(t)
	gw, _ := setup(t, b)

	if err := gw.Login("amy@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}
	if _, err := gw.ListTasks("u1"); err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	header := b.authHeader()
	if len(header) < 8 || header[:7] != "Bearer " {
		t.Fatalf("Expected a bearer Authorization header, got %q", header)
	}
}

func TestTokenRenewalFromResponseHeader(t *testing.T) {
	b := newBackend(t)
	gw, sessions := setup(t, b)

	if err := gw.Login("amy@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}
	b.renewToken = b.mintToken("u1")

	if _, err := gw.ListTasks("u1"); err != nil {
		t.Fatal(err)
	}
	if sessions.Token() != b.renewToken {
		t.Fatal("Expected the renewed token to be saved before the call returned")
	}
	if sessions.UserID() != "u1" {
		t.Fatal("Renewal must keep the user id")
	}
}

func TestUnauthorizedClearsSession(t *testing.T) {
	b := newBackend(t)
	gw, sessions := setup(t, b)

	if err := sessions.Save("u1", "stale-token"); err != nil {
		t.Fatal(err)
	}
	_, err := gw.ListTasks("u1")
	if !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
	if sessions.IsValid() {
		t.Fatal("Session must be cleared after a 401")
	}
}

func TestUserNotFoundBodyClearsSession(t *testing.T) {
	b := newBackend(t)
	b.forceStatus = 404
	b.forceBody = "User not found"
	gw, sessions := setup(t, b)

	if err := sessions.Save("u1", b.mintToken("u1")); err != nil {
		t.Fatal(err)
	}
	_, err := gw.ListTasks("u1")
	if !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized for a user-not-found body, got %v", err)
	}
	if sessions.IsValid() {
		t.Fatal("Session must be cleared when the backend no longer knows the user")
	}
}

func TestNoSessionRejectedLocally(t *testing.T) {
	b := newBackend(t)
	gw, _ := setup(t, b)

	_, err := gw.ListTasks("u1")
	if !errors.Is(err, gateway.ErrNoSession) {
		t.Fatalf("Expected ErrNoSession, got %v", err)
	}
	if atomic.LoadInt64(&b.calls) != 0 {
		t.Fatal("Call without a session must never reach the backend")
	}
}

func TestCreateTaskReturnsServerID(t *testing.T) {
	b := newBackend(t)
	gw, _ := setup(t, b)

	if err := gw.Login("amy@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}

	created, err := gw.CreateTask(models.Task{Title: "Pay rent", DueDate: "2031-01-10"})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("Expected a server-assigned id")
	}

	tasks, err := gw.ListTasks("u1")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, task := range tasks {
		if task.ID == created.ID && task.Title == "Pay rent" {
			found = true
		}
	}
	if !found {
		t.Fatal("Created task missing from the listing")
	}
}

func TestLogoutClearsSessionEvenWhenCallFails(t *testing.T) {
	b := newBackend(t)
	b.forceStatus = 500
	b.forceBody = "boom"
	gw, sessions := setup(t, b)

	if err := sessions.Save("u1", b.mintToken("u1")); err != nil {
		t.Fatal(err)
	}
	if err := gw.Logout(); err != nil {
		t.Fatalf("Logout must not propagate backend failures: %v", err)
	}
	if sessions.IsValid() {
		t.Fatal("Session must be cleared after logout")
	}
}
