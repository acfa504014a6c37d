package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"stride/internal/database"
	"stride/internal/models"
)

const sessionKey = "session"

// Store persists the (userId, token, acquired-at) triple. Writes always
// replace the whole triple; a triple with any field missing is treated as
// absent and cleared on the next validation.
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	current models.Session
}

func NewStore(db *sql.DB) *Store {
	s := &Store{db: db}
	s.current = s.loadPersisted()
	return s
}

func (s *Store) loadPersisted() models.Session {
	raw, err := database.GetValue(s.db, sessionKey)
	if err != nil {
		if !errors.Is(err, database.ErrNoValue) {
			log.Printf("Failed to read persisted session: %v", err)
		}
		return models.Session{}
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		log.Printf("Malformed persisted session, discarding: %v", err)
		_ = database.DeleteValue(s.db, sessionKey)
		return models.Session{}
	}
	return sess
}

// IsValid reports whether all three session fields are present. A partial
// triple is cleared as a side effect, forcing a clean logout.
func (s *Store) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.IsValid() {
		return true
	}
	if s.current != (models.Session{}) {
		log.Println("Partial session state detected - clearing")
		s.clearLocked()
	}
	return false
}

// Save stores a new session triple. Empty userID or token is rejected;
// partial state is never persisted.
func (s *Store) Save(userID, token string) error {
	if userID == "" || token == "" {
		log.Println("Refusing to save session: userId or token is empty")
		return errors.New("session requires both userId and token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := models.Session{UserID: userID, Token: token, AcquiredAt: time.Now()}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := database.SetValue(s.db, sessionKey, string(raw)); err != nil {
		return err
	}
	s.current = sess
	return nil
}

// Renew replaces the token while keeping the current user, used when a
// response carries a fresh session token.
func (s *Store) Renew(token string) {
	if token == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.UserID == "" {
		return
	}
	sess := models.Session{UserID: s.current.UserID, Token: token, AcquiredAt: time.Now()}
	raw, err := json.Marshal(sess)
	if err != nil {
		return
	}
	if err := database.SetValue(s.db, sessionKey, string(raw)); err != nil {
		log.Printf("Failed to persist renewed session token: %v", err)
		return
	}
	s.current = sess
}

// Clear removes the session (logout or authentication failure).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	if err := database.DeleteValue(s.db, sessionKey); err != nil {
		log.Printf("Failed to clear persisted session: %v", err)
	}
	s.current = models.Session{}
}

// Token returns the current session token, or "" when absent.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current.IsValid() {
		return ""
	}
	return s.current.Token
}

// UserID returns the current user id, or "" when absent.
func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current.IsValid() {
		return ""
	}
	return s.current.UserID
}

// AcquiredAt returns when the current session was obtained.
func (s *Store) AcquiredAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.AcquiredAt
}
