package analytics

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dentaldash/internal/core"
)

func rawRow(id any, status string, amount any) core.RawRecord {
	return core.RawRecord{
		ColID:         id,
		ColPatientID:  "p1",
		ColOperator:   "Dr. Rossi",
		ColOperation:  "Cleaning",
		ColPerformed:  "2024-01-15T09:30:00",
		ColStatus:     status,
		ColAmount:     amount,
		ColUploadedAt: "2024-01-16 08:00:00",
	}
}

func TestNormalizeTypesRows(t *testing.T) {
	res, err := Normalize([]core.RawRecord{
		rawRow(float64(7), "ESEGUITA", 120.5),
		rawRow("8", "NON ESEGUITA", "80,25"),
		rawRow(json.Number("9"), "EXECUTED", json.Number("10")),
	}, PolicyStrict)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 3 || len(res.Quarantined) != 0 {
		t.Fatalf("expected 3 records, got %d (quarantined %d)", len(res.Records), len(res.Quarantined))
	}
	first := res.Records[0]
	if first.ID != "7" || first.Status != core.StatusExecuted {
		t.Fatalf("unexpected first record: %+v", first)
	}
	assertDecimal(t, "amount", first.Amount.Decimal, "120.5")
	if first.MonthKey() != "2024-01" || first.Year() != 2024 || first.Quarter() != 1 {
		t.Fatalf("unexpected derived fields: %s %d %d", first.MonthKey(), first.Year(), first.Quarter())
	}
	if first.UploadedAt.IsZero() {
		t.Fatalf("expected uploaded_at to be parsed")
	}
	if res.Records[1].Status != core.StatusNotExecuted {
		t.Fatalf("expected NOT EXECUTED, got %s", res.Records[1].Status)
	}
	assertDecimal(t, "comma amount", res.Records[1].Amount.Decimal, "80.25")
}

func TestNormalizeEmptyIsNoData(t *testing.T) {
	if _, err := Normalize(nil, PolicyStrict); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestNormalizeStrictFailsOnBadRow(t *testing.T) {
	_, err := Normalize([]core.RawRecord{
		rawRow("1", "ESEGUITA", 10),
		rawRow("2", "MAYBE", 10),
	}, PolicyStrict)
	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected RowError, got %v", err)
	}
	if rowErr.Row != 1 || rowErr.Field != ColStatus || !errors.Is(err, core.ErrInvalidStatus) {
		t.Fatalf("unexpected row error: %v", rowErr)
	}
}

func TestNormalizeLenientQuarantines(t *testing.T) {
	missingDate := rawRow("3", "ESEGUITA", 10)
	delete(missingDate, ColPerformed)
	res, err := Normalize([]core.RawRecord{
		rawRow("1", "ESEGUITA", 10),
		rawRow("2", "ESEGUITA", -5),
		missingDate,
		rawRow("1", "ESEGUITA", 10),
		rawRow("4", "ESEGUITA", nil),
		rawRow("5", "ESEGUITA", "0"),
	}, PolicyLenient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	if len(res.Quarantined) != 4 {
		t.Fatalf("expected 4 quarantined rows, got %d", len(res.Quarantined))
	}
	wants := []error{core.ErrNegativeAmount, ErrMissingField, ErrDuplicateID, core.ErrInvalidAmount}
	for i, want := range wants {
		if !errors.Is(res.Quarantined[i], want) {
			t.Fatalf("quarantined[%d]: expected %v, got %v", i, want, res.Quarantined[i])
		}
	}
	if res.Records[1].ID != "5" || res.Quarantined[3].Row != 4 {
		t.Fatalf("unexpected split: kept %s, quarantined row %d", res.Records[1].ID, res.Quarantined[3].Row)
	}
}

func TestNormalizeLenientAllBad(t *testing.T) {
	res, err := Normalize([]core.RawRecord{rawRow("", "ESEGUITA", 10)}, PolicyLenient)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if len(res.Quarantined) != 1 {
		t.Fatalf("expected the bad row to be reported")
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   any
		want time.Time
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-01-15 09:30:00", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)},
		{"2024-01-15T09:30:00Z", time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)},
		{"2024-01-15T09:30:00.123456", time.Date(2024, 1, 15, 9, 30, 0, 123456000, time.UTC)},
		{time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%v: expected %v, got %v", tc.in, tc.want, got)
		}
	}

	for _, bad := range []any{nil, "", "yesterday", 42} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Fatalf("%v: expected error", bad)
		}
	}
}

func TestParseParsePolicy(t *testing.T) {
	if p, err := ParseParsePolicy(""); err != nil || p != PolicyStrict {
		t.Fatalf("expected strict default, got %q %v", p, err)
	}
	if p, err := ParseParsePolicy(" Lenient "); err != nil || p != PolicyLenient {
		t.Fatalf("expected lenient, got %q %v", p, err)
	}
	if _, err := ParseParsePolicy("loose"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNormalizeReportsRecordInvariants(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(core.RawRecord)
		field string
		want  error
	}{
		{"blank id", func(r core.RawRecord) { r[ColID] = "  " }, ColID, core.ErrEmptyID},
		{"missing patient", func(r core.RawRecord) { delete(r, ColPatientID) }, ColPatientID, core.ErrEmptyPatient},
		{"blank operator", func(r core.RawRecord) { r[ColOperator] = "" }, ColOperator, core.ErrEmptyOperator},
		{"missing operation", func(r core.RawRecord) { r[ColOperation] = nil }, ColOperation, core.ErrEmptyOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := rawRow("1", "ESEGUITA", 10)
			tt.edit(row)
			_, err := Normalize([]core.RawRecord{row}, PolicyStrict)
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				t.Fatalf("expected RowError, got %v", err)
			}
			if rowErr.Field != tt.field || !errors.Is(err, tt.want) || !errors.Is(err, ErrMissingField) {
				t.Fatalf("unexpected row error: %v", rowErr)
			}
		})
	}
}

func TestNormalizeBlankUploadedAt(t *testing.T) {
	for _, v := range []any{nil, "", "   "} {
		row := rawRow("1", "ESEGUITA", 10)
		row[ColUploadedAt] = v
		res, err := Normalize([]core.RawRecord{row}, PolicyStrict)
		if err != nil {
			t.Fatalf("uploaded_at %q: unexpected error: %v", v, err)
		}
		if !res.Records[0].UploadedAt.IsZero() {
			t.Fatalf("uploaded_at %q: expected zero time, got %v", v, res.Records[0].UploadedAt)
		}
	}

	row := rawRow("1", "ESEGUITA", 10)
	row[ColUploadedAt] = "ieri"
	if _, err := Normalize([]core.RawRecord{row}, PolicyStrict); !errors.Is(err, ErrBadTimestamp) {
		t.Fatalf("expected ErrBadTimestamp, got %v", err)
	}
}
