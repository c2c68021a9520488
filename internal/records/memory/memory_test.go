package memory

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dentaldash/internal/core"
)

func TestStoreReplaceAndFetch(t *testing.T) {
	s := New()
	rows := []core.RawRecord{{"id": "1"}, {"id": "2"}}
	if n, err := s.Replace(context.Background(), "medical_data", rows); err != nil || n != 2 {
		t.Fatalf("unexpected replace: n=%d err=%v", n, err)
	}
	rows[0]["id"] = "changed"

	got, err := s.FetchAll(context.Background(), "medical_data")
	if err != nil || len(got) != 2 {
		t.Fatalf("unexpected fetch: %v %v", got, err)
	}
	if got[0]["id"] != "1" {
		t.Fatalf("store must keep its own copy, got %v", got[0]["id"])
	}
	got[1]["id"] = "mutated"
	again, _ := s.FetchAll(context.Background(), "medical_data")
	if again[1]["id"] != "2" {
		t.Fatalf("fetch must return copies")
	}
	if s.Fetches() != 2 {
		t.Fatalf("expected 2 fetches, got %d", s.Fetches())
	}

	if other, _ := s.FetchAll(context.Background(), "other"); len(other) != 0 {
		t.Fatalf("expected empty unknown table")
	}
}

func TestStoreFetchErr(t *testing.T) {
	s := New()
	s.FetchErr = errors.New("boom")
	if _, err := s.FetchAll(context.Background(), "medical_data"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	// No file -> empty table
	s, err := NewFromFile(filepath.Join(dir, "missing.json"), "medical_data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows, _ := s.FetchAll(context.Background(), "medical_data"); len(rows) != 0 {
		t.Fatalf("expected no rows")
	}

	path := filepath.Join(dir, "seed.json")
	seed := `[{"id": 12345678901234567, "importo_scontato": 80.10, "operatore": "Dr. Rossi"}]`
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path, "medical_data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, _ := s.FetchAll(context.Background(), "medical_data")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	id, ok := rows[0]["id"].(json.Number)
	if !ok || id.String() != "12345678901234567" {
		t.Fatalf("expected exact numeric id, got %#v", rows[0]["id"])
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := NewFromFile(path, "medical_data"); err == nil {
		t.Fatalf("expected decode error")
	}
}
