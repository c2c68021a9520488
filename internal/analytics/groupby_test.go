package analytics

import (
	"errors"
	"fmt"
	"testing"

	"dentaldash/internal/core"
)

func TestTimelineIsChronological(t *testing.T) {
	rows := Timeline(sampleRecords())
	var got []string
	for _, r := range rows {
		got = append(got, r.Group)
	}
	if !equalStrings(got, []string{"2023-12", "2024-01", "2024-03"}) {
		t.Fatalf("unexpected month order %v", got)
	}
	if rows[1].Count != 2 {
		t.Fatalf("expected 2 operations in 2024-01, got %d", rows[1].Count)
	}
	assertDecimal(t, "2024-01 total", rows[1].TotalAmount, "130.50")
}

func TestOperatorPerformance(t *testing.T) {
	rows := OperatorPerformance(sampleRecords())
	if len(rows) != 3 {
		t.Fatalf("expected 3 operators, got %d", len(rows))
	}
	// Rossi 180.50, Bianchi 170, Verdi 0
	if rows[0].Group != "Dr. Rossi" || rows[1].Group != "Dr. Bianchi" || rows[2].Group != "Dr. Verdi" {
		t.Fatalf("unexpected order %+v", rows)
	}
	if rows[1].CompletionRate != 50 || rows[0].CompletionRate != 100 {
		t.Fatalf("unexpected completion rates %+v", rows)
	}
}

func TestCompletionRateRounding(t *testing.T) {
	records := []core.OperationRecord{
		rec("1", "p1", "A", "X", "2024-01-01", core.StatusExecuted, "1"),
		rec("2", "p1", "A", "X", "2024-01-01", core.StatusNotExecuted, "1"),
		rec("3", "p1", "A", "X", "2024-01-01", core.StatusNotExecuted, "1"),
	}
	rows := OperatorPerformance(records)
	if rows[0].CompletionRate != 33.3 {
		t.Fatalf("expected 33.3, got %v", rows[0].CompletionRate)
	}
}

func TestAggregateUnknownKey(t *testing.T) {
	_, err := Aggregate(sampleRecords(), GroupKey("patient"))
	var cfg *ConfigError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestTopOperations(t *testing.T) {
	got := TopOperations(sampleRecords(), DefaultTopN)
	if len(got) != 2 || got[0].Value != "Cleaning" || got[0].Count != 3 || got[1].Value != "Filling" {
		t.Fatalf("unexpected ranking %+v", got)
	}

	var many []core.OperationRecord
	for i := 0; i < 20; i++ {
		many = append(many, rec(fmt.Sprint(i), "p", "A", fmt.Sprintf("op%02d", i), "2024-01-01", core.StatusExecuted, "1"))
	}
	top := TopOperations(many, DefaultTopN)
	if len(top) != DefaultTopN {
		t.Fatalf("expected %d rows, got %d", DefaultTopN, len(top))
	}
	if top[0].Value != "op00" {
		t.Fatalf("expected ties broken by name, got %s first", top[0].Value)
	}
	if all := TopOperations(many, 0); len(all) != 20 {
		t.Fatalf("expected every operation, got %d", len(all))
	}
}
