package google

import (
	"testing"

	"dentaldash/internal/analytics"
)

// Build a small matrix emulating an export of the operations tab
func TestParseRows_OperationsTab(t *testing.T) {
	values := [][]interface{}{
		{"id", "patient_id", "Operatore", "operazione", "data_operazione", "status_operazione", "importo_scontato", "uploaded_at"},
		{1.0, "p1", "Dr. Rossi", "Cleaning", "2024-01-15 09:30:00", "ESEGUITA", 80.5, "2024-01-16 08:00:00"},
		{2.0, "p2", "Dr. Bianchi", "Filling", "2024-02-01", "NON ESEGUITA", 0.0},
		{},
		{"", "", ""},
		{3.0, "p1", "Dr. Rossi", "Crown", "2024-03-10", "ESEGUITA", "1.200,00"},
	}
	rows, err := parseRows(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0]["operatore"] != "Dr. Rossi" {
		t.Fatalf("headers must be lower-cased, got %v", rows[0])
	}
	if rows[1]["uploaded_at"] != nil {
		t.Fatalf("short rows must pad with nil, got %v", rows[1]["uploaded_at"])
	}

	res, err := analytics.Normalize(rows[:2], analytics.PolicyStrict)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if res.Records[0].ID != "1" || res.Records[0].Amount.String() != "80.5" {
		t.Fatalf("unexpected first record: %+v", res.Records[0])
	}
}

func TestParseRows_MissingID(t *testing.T) {
	_, err := parseRows([][]interface{}{{"patient_id", "operatore"}, {"p1", "A"}})
	if err == nil {
		t.Fatalf("expected header error")
	}
}

func TestParseRows_Empty(t *testing.T) {
	rows, err := parseRows(nil)
	if err != nil || rows != nil {
		t.Fatalf("expected no rows, got %v %v", rows, err)
	}
}
