package store

import (
	"testing"

	"github.com/dicilo-app/dicilo/internal/database"
)

func setupSettingsTestDB(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettingsStore(db)
}

func TestSettingsLookupAndSet(t *testing.T) {
	ss := setupSettingsTestDB(t)

	_, ok, err := ss.Lookup("missing")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ok {
		t.Error("expected missing key")
	}

	if err := ss.Set("greeting", "hola"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := ss.Lookup("greeting")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok || v != "hola" {
		t.Errorf("lookup = %q/%v, want hola/true", v, ok)
	}

	// Upsert overwrites.
	if err := ss.Set("greeting", "hallo"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	v, _, _ = ss.Lookup("greeting")
	if v != "hallo" {
		t.Errorf("after upsert = %q, want hallo", v)
	}
}

func TestPointValueFallback(t *testing.T) {
	ss := setupSettingsTestDB(t)

	if v := ss.PointValue(); v != DefaultPointValue {
		t.Errorf("unset point value = %v, want default %v", v, DefaultPointValue)
	}

	// Garbage in the row also falls back.
	if err := ss.Set(KeyPointValue, "not-a-number"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v := ss.PointValue(); v != DefaultPointValue {
		t.Errorf("unparsable point value = %v, want default", v)
	}

	if err := ss.SetPointValue(0.2); err != nil {
		t.Fatalf("set point value: %v", err)
	}
	if v := ss.PointValue(); v != 0.2 {
		t.Errorf("point value = %v, want 0.2", v)
	}
}
