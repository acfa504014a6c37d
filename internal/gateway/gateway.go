package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"stride/internal/models"
	"stride/internal/session"
	"stride/internal/transport"
)

// SessionTokenHeader carries an opportunistically renewed session token on
// responses. The renewed token is saved before the caller sees the result so
// retried calls use the fresh credential.
const SessionTokenHeader = "X-Session-Token"

var (
	// ErrUnauthorized means the backend rejected the credential. The session
	// has already been cleared; callers should force a logout.
	ErrUnauthorized = errors.New("session expired - please log in again")

	// ErrNoSession means no valid session exists; the call was rejected
	// before reaching the backend.
	ErrNoSession = errors.New("not logged in")
)

// Gateway issues authenticated CRUD calls against the remote backend.
type Gateway struct {
	baseURL  string
	tr       transport.Transport
	sessions *session.Store
}

func New(baseURL string, tr transport.Transport, sessions *session.Store) *Gateway {
	return &Gateway{baseURL: strings.TrimRight(baseURL, "/"), tr: tr, sessions: sessions}
}

// call performs one authenticated request and applies the shared response
// handling: token renewal, unauthorized classification, status checks.
func (g *Gateway) call(method, path string, body []byte) ([]byte, error) {
	token := g.sessions.Token()
	if token == "" {
		return nil, ErrNoSession
	}

	resp, err := g.tr.Do(method, g.baseURL+path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return nil, err
	}

	if renewed := resp.Header(SessionTokenHeader); renewed != "" {
		g.sessions.Renew(renewed)
	}

	if isUnauthorized(resp) {
		log.Printf("%s %s unauthorized (status %d) - clearing session", method, path, resp.Status)
		g.sessions.Clear()
		return nil, ErrUnauthorized
	}

	if resp.Status >= 400 {
		return nil, fmt.Errorf("%s %s failed (status %d): %s", method, path, resp.Status, strings.TrimSpace(string(resp.Body)))
	}

	return resp.Body, nil
}

func isUnauthorized(resp *transport.Response) bool {
	if resp.Status == 401 || resp.Status == 403 {
		return true
	}
	body := string(resp.Body)
	return resp.Status >= 400 &&
		(strings.Contains(body, "User not found") || strings.Contains(body, "Unauthorized"))
}

func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		log.Printf("Malformed response payload: %v - raw: %s", err, string(payload))
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}

// --- tasks ---

func (g *Gateway) ListTasks(userID string) ([]models.Task, error) {
	body, err := g.call("GET", "/tasks?userId="+url.QueryEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	tasks := []models.Task{}
	if err := decode(body, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask submits the task's fields, never its sentinel id, and returns
// the server-confirmed copy carrying the real id.
func (g *Gateway) CreateTask(t models.Task) (models.Task, error) {
	payload, err := json.Marshal(struct {
		Title                      string `json:"title"`
		Description                string `json:"description"`
		Completed                  bool   `json:"completed"`
		DueDate                    string `json:"dueDate,omitempty"`
		EnableDueDateNotifications bool   `json:"enableDueDateNotifications"`
		EnablePreDueNotifications  bool   `json:"enablePreDueNotifications"`
	}{t.Title, t.Description, t.Completed, t.DueDate, t.EnableDueDateNotifications, t.EnablePreDueNotifications})
	if err != nil {
		return models.Task{}, err
	}

	body, err := g.call("POST", "/tasks", payload)
	if err != nil {
		return models.Task{}, err
	}

	var created models.Task
	if err := decode(body, &created); err != nil {
		return models.Task{}, err
	}
	if created.ID == "" {
		return models.Task{}, errors.New("server returned task without id")
	}
	return created, nil
}

func (g *Gateway) ToggleTask(id string) error {
	_, err := g.call("PUT", "/tasks/"+url.PathEscape(id)+"/toggle", nil)
	return err
}

func (g *Gateway) DeleteTask(id string) error {
	_, err := g.call("DELETE", "/tasks/"+url.PathEscape(id), nil)
	return err
}

// --- habits ---

func (g *Gateway) ListHabits(userID string) ([]models.Habit, error) {
	body, err := g.call("GET", "/habits?userId="+url.QueryEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	habits := []models.Habit{}
	if err := decode(body, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

func (g *Gateway) CreateHabit(h models.Habit) (models.Habit, error) {
	payload, err := json.Marshal(struct {
		Name           string `json:"name"`
		Description    string `json:"description"`
		Streak         int    `json:"streak"`
		CompletedToday bool   `json:"completedToday"`
	}{h.Name, h.Description, h.Streak, h.CompletedToday})
	if err != nil {
		return models.Habit{}, err
	}

	body, err := g.call("POST", "/habits", payload)
	if err != nil {
		return models.Habit{}, err
	}

	var created models.Habit
	if err := decode(body, &created); err != nil {
		return models.Habit{}, err
	}
	if created.ID == "" {
		return models.Habit{}, errors.New("server returned habit without id")
	}
	return created, nil
}

func (g *Gateway) ToggleHabit(id string) error {
	_, err := g.call("PUT", "/habits/"+url.PathEscape(id)+"/toggle", nil)
	return err
}

func (g *Gateway) DeleteHabit(id string) error {
	_, err := g.call("DELETE", "/habits/"+url.PathEscape(id), nil)
	return err
}

// --- side channels ---

func (g *Gateway) AddPoints(points int, userID string) error {
	payload, err := json.Marshal(models.AddPointsRequest{Points: points, UserID: userID})
	if err != nil {
		return err
	}
	_, err = g.call("PUT", "/users/addPoints", payload)
	return err
}

func (g *Gateway) PostTimeline(event models.TimelineEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = g.call("POST", "/timeline", payload)
	return err
}

// --- auth ---

// Login authenticates and saves the session triple. A response without a
// session token is a failure regardless of HTTP status.
func (g *Gateway) Login(email, password string) error {
	payload, err := json.Marshal(models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	resp, err := g.tr.Do("POST", g.baseURL+"/auth/login", payload, nil)
	if err != nil {
		return err
	}
	if resp.Status >= 400 {
		return fmt.Errorf("login failed (status %d): %s", resp.Status, strings.TrimSpace(string(resp.Body)))
	}

	var login models.LoginResponse
	if err := decode(resp.Body, &login); err != nil {
		return err
	}
	if login.SessionToken == "" {
		return errors.New("login response missing session token")
	}

	userID := login.UserID
	if userID == "" {
		userID = email
	}
	return g.sessions.Save(userID, login.SessionToken)
}

// Logout tells the backend to end the session, then clears it locally
// regardless of the outcome.
func (g *Gateway) Logout() error {
	_, err := g.call("POST", "/auth/logout", nil)
	if err != nil && !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrNoSession) {
		log.Printf("Logout call failed: %v", err)
	}
	g.sessions.Clear()
	return nil
}
