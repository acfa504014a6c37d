package database_test

import (
	"errors"
	"testing"

	"stride/internal/database"
)

func TestKVRoundTrip(t *testing.T) {
	db, err := database.Initialize(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := database.GetValue(db, "missing"); !errors.Is(err, database.ErrNoValue) {
		t.Fatalf("Expected ErrNoValue for an unwritten key, got %v", err)
	}

	if err := database.SetValue(db, "session", "a"); err != nil {
		t.Fatal(err)
	}
	if err := database.SetValue(db, "session", "b"); err != nil {
		t.Fatal(err)
	}
	value, err := database.GetValue(db, "session")
	if err != nil {
		t.Fatal(err)
	}
	if value != "b" {
		t.Fatalf("Expected upsert to keep the latest value, got %q", value)
	}

	if err := database.DeleteValue(db, "session"); err != nil {
		t.Fatal(err)
	}
	if _, err := database.GetValue(db, "session"); !errors.Is(err, database.ErrNoValue) {
		t.Fatal("Expected the key to be gone after delete")
	}
	if err := database.DeleteValue(db, "session"); err != nil {
		t.Fatal("Deleting a missing key must not fail")
	}
}
