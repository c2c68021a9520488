package analytics

import (
	"strconv"

	"github.com/shopspring/decimal"

	"dentaldash/internal/core"
)

// Grid is a dense two-dimensional table: every (row, column) pair has a
// cell, zero-filled where no record contributed.
type Grid struct {
	RowField    core.Field          `json:"row_field"`
	ColumnField core.Field          `json:"column_field"`
	ValueField  core.Field          `json:"value_field"`
	Agg         core.AggFunc        `json:"agg"`
	Rows        []string            `json:"rows"`
	Columns     []string            `json:"columns"`
	Cells       [][]decimal.Decimal `json:"cells"` // Cells[row][column]
}

func newGrid(rowField, colField core.Field, rows, cols []string) *Grid {
	cells := make([][]decimal.Decimal, len(rows))
	for i := range cells {
		cells[i] = make([]decimal.Decimal, len(cols))
		for j := range cells[i] {
			cells[i][j] = decimal.Zero
		}
	}
	return &Grid{RowField: rowField, ColumnField: colField, Rows: rows, Columns: cols, Cells: cells}
}

// At returns the cell at (row, col).
func (g *Grid) At(row, col string) (decimal.Decimal, bool) {
	i, j := indexOf(g.Rows, row), indexOf(g.Columns, col)
	if i < 0 || j < 0 {
		return decimal.Zero, false
	}
	return g.Cells[i][j], true
}

// Column returns the cells of col in row order, or nil.
func (g *Grid) Column(col string) []decimal.Decimal {
	j := indexOf(g.Columns, col)
	if j < 0 {
		return nil
	}
	out := make([]decimal.Decimal, len(g.Rows))
	for i := range g.Rows {
		out[i] = g.Cells[i][j]
	}
	return out
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	out := *g
	out.Rows = append([]string(nil), g.Rows...)
	out.Columns = append([]string(nil), g.Columns...)
	out.Cells = make([][]decimal.Decimal, len(g.Cells))
	for i, row := range g.Cells {
		out.Cells[i] = append([]decimal.Decimal(nil), row...)
	}
	return &out
}

// Table renders the grid in header-labeled tabular form; the first
// column holds the row labels.
func (g *Grid) Table() Table {
	header := make([]string, 0, len(g.Columns)+1)
	header = append(header, string(g.RowField))
	header = append(header, g.Columns...)
	t := Table{Header: header, Rows: make([][]string, len(g.Rows))}
	for i, label := range g.Rows {
		row := make([]string, 0, len(g.Columns)+1)
		row = append(row, label)
		for _, c := range g.Cells[i] {
			row = append(row, c.String())
		}
		t.Rows[i] = row
	}
	return t
}

// Table is a header-labeled string table, the shape consumed by exporters.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// GroupTable renders grouped rows with the given label for the group column.
func GroupTable(label string, rows []GroupRow) Table {
	t := Table{Header: []string{label, "count", "total_amount", "executed", "completion_rate"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Group,
			strconv.Itoa(r.Count),
			r.TotalAmount.StringFixed(2),
			strconv.Itoa(r.Executed),
			strconv.FormatFloat(r.CompletionRate, 'f', 1, 64),
		})
	}
	return t
}

// RecordTable renders records with the backend column names plus the
// derived calendar fields.
func RecordTable(records []core.OperationRecord) Table {
	header := append(Columns(), string(core.FieldMonthKey), string(core.FieldYear), string(core.FieldQuarter), string(core.FieldWeekday))
	t := Table{Header: header, Rows: make([][]string, len(records))}
	for i, r := range records {
		uploaded := ""
		if !r.UploadedAt.IsZero() {
			uploaded = r.UploadedAt.Format("2006-01-02 15:04:05")
		}
		t.Rows[i] = []string{
			r.ID,
			r.PatientID,
			r.Operator,
			r.Operation,
			r.PerformedAt.Format("2006-01-02 15:04:05"),
			r.Status.String(),
			r.Amount.StringFixed(2),
			uploaded,
			r.MonthKey(),
			strconv.Itoa(r.Year()),
			strconv.Itoa(r.Quarter()),
			r.Weekday(),
		}
	}
	return t
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
