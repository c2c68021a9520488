package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"dentaldash/internal/analytics"
	"dentaldash/internal/core"
)

func sampleTable() analytics.Table {
	return analytics.Table{
		Header: []string{"operatore", "2023", "2024"},
		Rows: [][]string{
			{"Rossi", "150.5", "0"},
			{"Bianchi, A.", "80.00", "12"},
			{"007", "1", "2"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{" xlsx ", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if FormatXLSX.ContentType() != ContentTypeXLSX || FormatCSV.ContentType() != ContentTypeCSV {
		t.Fatalf("unexpected content types")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleTable()); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	want := "operatore,2023,2024\nRossi,150.5,0\n\"Bianchi, A.\",80.00,12\n007,1,2\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf,
		Sheet{Name: "Pivot", Table: sampleTable()},
		Sheet{Name: "Pivot", Table: analytics.Table{Header: []string{"a"}}},
		Sheet{Name: "bad/name:with*chars and a very long tail", Table: analytics.Table{Header: []string{"b"}}},
	)
	if err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) != 3 || names[0] != "Pivot" || names[1] != "Pivot (2)" {
		t.Fatalf("unexpected sheets %v", names)
	}
	if strings.ContainsAny(names[2], `/:*`) || len([]rune(names[2])) > 31 {
		t.Fatalf("sheet name not sanitized: %q", names[2])
	}

	rows, err := f.GetRows("Pivot")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "operatore" || rows[1][0] != "Rossi" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[3][0] != "007" {
		t.Fatalf("text with leading zeros must stay text, got %q", rows[3][0])
	}
	typ, err := f.GetCellType("Pivot", "B2")
	if err != nil {
		t.Fatalf("GetCellType() error = %v", err)
	}
	if typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset {
		t.Fatalf("amount cell should be numeric, got %v", typ)
	}
}

func TestWrite_Empty(t *testing.T) {
	if err := Write(&bytes.Buffer{}, FormatCSV); err == nil {
		t.Fatalf("expected error without sheets")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(FormatCSV, "pivot", "operatore", "anno"); got != "pivot_operatore_anno.csv" {
		t.Fatalf("FileName() = %q", got)
	}
	if got := FileName(FormatXLSX, "report", "../etc", ""); got != "report____etc.xlsx" {
		t.Fatalf("FileName() = %q", got)
	}
	if got := FileName(FormatCSV); got != "export.csv" {
		t.Fatalf("FileName() = %q", got)
	}
}

func TestReport(t *testing.T) {
	day := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	records := []core.OperationRecord{{
		ID: "1", PatientID: "P1", Operator: "Rossi", Operation: "Pulizia",
		PerformedAt: day, Status: core.StatusExecuted, Amount: core.NewMoney(decimal.NewFromInt(80)),
	}}
	filter := analytics.DefaultFilter(records)
	v := analytics.RenderView(records, filter, core.DefaultPivotSpec())

	sheets := Report(v)
	names := make([]string, len(sheets))
	for i, s := range sheets {
		names[i] = s.Name
	}
	want := "KPI,Status,Timeline,Operators,Top operations,Pivot,Monthly revenue,Running revenue,Records"
	if strings.Join(names, ",") != want {
		t.Fatalf("unexpected sheets %v", names)
	}
	if got := sheets[len(sheets)-1].Table.Rows; len(got) != 1 || got[0][0] != "1" {
		t.Fatalf("unexpected record rows %v", got)
	}

	var buf bytes.Buffer
	if err := Write(&buf, FormatXLSX, sheets...); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}
