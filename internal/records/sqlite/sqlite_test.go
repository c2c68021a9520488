package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"dentaldash/internal/analytics"
	"dentaldash/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "nested", "snapshot.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReplaceAndFetchRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	performed := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	rows := []core.RawRecord{
		{
			"id": json.Number("101"), "patient_id": "p1", "operatore": "Dr. Rossi",
			"operazione": "Cleaning", "data_operazione": performed,
			"status_operazione": "ESEGUITA", "importo_scontato": 80.1,
		},
		{
			"id": "102", "patient_id": "p2", "operatore": "Dr. Bianchi",
			"operazione": "Filling", "data_operazione": "2024-02-01 10:00:00",
			"status_operazione": "NON ESEGUITA", "importo_scontato": "50,00",
			"uploaded_at": "2024-02-02 08:00:00",
		},
	}
	n, err := repo.Replace(ctx, "medical_data", rows)
	if err != nil || n != 2 {
		t.Fatalf("replace: n=%d err=%v", n, err)
	}

	got, err := repo.FetchAll(ctx, "medical_data")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}

	res, err := analytics.Normalize(got, analytics.PolicyStrict)
	if err != nil {
		t.Fatalf("snapshot rows must normalize: %v", err)
	}
	byID := map[string]core.OperationRecord{}
	for _, r := range res.Records {
		byID[r.ID] = r
	}
	first, ok := byID["101"]
	if !ok {
		t.Fatalf("missing record 101: %v", res.Records)
	}
	if !first.PerformedAt.Equal(performed) || first.Amount.String() != "80.1" {
		t.Fatalf("unexpected record: %+v", first)
	}
	if got[0]["uploaded_at"] != nil && got[1]["uploaded_at"] != nil {
		t.Fatalf("expected one NULL uploaded_at")
	}
}

func TestReplaceOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	row := func(id string) core.RawRecord {
		return core.RawRecord{"id": id, "patient_id": "p", "operatore": "A", "operazione": "X",
			"data_operazione": "2024-01-01", "status_operazione": "ESEGUITA", "importo_scontato": "1"}
	}
	if _, err := repo.Replace(ctx, "medical_data", []core.RawRecord{row("1"), row("2")}); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if _, err := repo.Replace(ctx, "medical_data", []core.RawRecord{row("3")}); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	got, _ := repo.FetchAll(ctx, "medical_data")
	if len(got) != 1 || got[0]["id"] != "3" {
		t.Fatalf("expected only row 3, got %v", got)
	}

	run, err := repo.LastRun(ctx, "medical_data")
	if err != nil || run == nil {
		t.Fatalf("expected a snapshot run, got %v %v", run, err)
	}
	if run.RowCount != 1 {
		t.Fatalf("expected last run to have 1 row, got %d", run.RowCount)
	}
}

func TestReplaceDuplicateIDRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	row := core.RawRecord{"id": "1", "operatore": "A"}
	if _, err := repo.Replace(ctx, "medical_data", []core.RawRecord{row}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.Replace(ctx, "medical_data", []core.RawRecord{row, row}); err == nil {
		t.Fatalf("expected primary key violation")
	}
	got, _ := repo.FetchAll(ctx, "medical_data")
	if len(got) != 1 {
		t.Fatalf("failed replace must keep the previous snapshot, got %d rows", len(got))
	}
}

func TestLastRunEmpty(t *testing.T) {
	repo := newTestRepo(t)
	run, err := repo.LastRun(context.Background(), "medical_data")
	if err != nil || run != nil {
		t.Fatalf("expected no run, got %v %v", run, err)
	}
}

func TestStoredValue(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{"a", "a"},
		{80.1, "80.1"},
		{int64(7), "7"},
		{json.Number("12"), "12"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02T03:04:05Z"},
	}
	for _, tc := range cases {
		if got := storedValue(tc.in); got != tc.want {
			t.Fatalf("%v: expected %v, got %v", tc.in, tc.want, got)
		}
	}
}
