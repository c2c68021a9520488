package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dentaldash/internal/core"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rec(id, patient, operator, operation, date string, status core.Status, amount string) core.OperationRecord {
	return core.OperationRecord{
		ID:          id,
		PatientID:   patient,
		Operator:    operator,
		Operation:   operation,
		PerformedAt: day(date).Add(10 * time.Hour),
		Status:      status,
		Amount:      core.NewMoney(decimal.RequireFromString(amount)),
	}
}

func sampleRecords() []core.OperationRecord {
	return []core.OperationRecord{
		rec("1", "p1", "Dr. Rossi", "Cleaning", "2023-12-15", core.StatusExecuted, "100"),
		rec("2", "p2", "Dr. Bianchi", "Filling", "2024-01-10", core.StatusNotExecuted, "50"),
		rec("3", "p1", "Dr. Rossi", "Filling", "2024-01-20", core.StatusExecuted, "80.50"),
		rec("4", "p3", "Dr. Verdi", "Cleaning", "2024-03-05", core.StatusExecuted, "0"),
		rec("5", "p2", "Dr. Bianchi", "Cleaning", "2024-03-28", core.StatusExecuted, "120"),
	}
}

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s: expected %s, got %s", what, want, got)
	}
}
