package session_test

import (
	"database/sql"
	"testing"

	"stride/internal/database"
	"stride/internal/session"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := database.Initialize(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndValidate(t *testing.T) {
	db := setupTestDB(t)
	store := session.NewStore(db)

	if store.IsValid() {
		t.Fatal("Expected fresh store to be invalid")
	}

	if err := store.Save("user-1", "tok-abc"); err != nil {
		t.Fatal(err)
	}
	if !store.IsValid() {
		t.Fatal("Expected session to be valid after save")
	}
	if store.Token() != "tok-abc" {
		t.Fatalf("Expected token tok-abc, got %q", store.Token())
	}
	if store.UserID() != "user-1" {
		t.Fatalf("Expected userId user-1, got %q", store.UserID())
	}
	if store.AcquiredAt().IsZero() {
		t.Fatal("Expected acquired-at to be set")
	}
}

func TestSaveRejectsPartialState(t *testing.T) {
	db := setupTestDB(t)
	store := session.NewStore(db)

	if err := store.Save("", "tok"); err == nil {
		t.Fatal("Expected error saving session with empty userId")
	}
	if err := store.Save("user-1", ""); err == nil {
		t.Fatal("Expected error saving session with empty token")
	}
	if store.IsValid() {
		t.Fatal("Expected store to remain invalid after rejected saves")
	}
	if store.Token() != "" {
		t.Fatal("Expected no token after rejected saves")
	}
}

func TestClear(t *testing.T) {
	db := setupTestDB(t)
	store := session.NewStore(db)

	if err := store.Save("user-1", "tok"); err != nil {
		t.Fatal(err)
	}
	store.Clear()

	if store.IsValid() {
		t.Fatal("Expected session to be invalid after clear")
	}
	if store.Token() != "" || store.UserID() != "" {
		t.Fatal("Expected empty credentials after clear")
	}
}

func TestPersistsAcrossStores(t *testing.T) {
	db := setupTestDB(t)

	first := session.NewStore(db)
	if err := first.Save("user-2", "tok-xyz"); err != nil {
		t.Fatal(err)
	}

	second := session.NewStore(db)
	if !second.IsValid() {
		t.Fatal("Expected session to survive store re-creation")
	}
	if second.Token() != "tok-xyz" {
		t.Fatalf("Expected token tok-xyz, got %q", second.Token())
	}
}

func TestRenewKeepsUser(t *testing.T) {
	db := setupTestDB(t)
	store := session.NewStore(db)

	if err := store.Save("user-3", "old"); err != nil {
		t.Fatal(err)
	}
	store.Renew("new")

	if store.Token() != "new" {
		t.Fatalf("Expected renewed token, got %q", store.Token())
	}
	if store.UserID() != "user-3" {
		t.Fatalf("Expected user to survive renewal, got %q", store.UserID())
	}

	// Renewing with no session in place is ignored.
	store.Clear()
	store.Renew("orphan")
	if store.IsValid() {
		t.Fatal("Expected renewal without a user to be ignored")
	}
}
