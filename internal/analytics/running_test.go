package analytics

import (
	"testing"

	"github.com/shopspring/decimal"

	"dentaldash/internal/core"
)

func TestRunningTotals(t *testing.T) {
	g := newGrid(core.FieldMonthName, core.FieldYear, []string{"Jan", "Feb", "Mar"}, []string{"2023", "2024"})
	g.Cells[0][0] = decimal.NewFromInt(100)
	g.Cells[2][0] = decimal.NewFromInt(50)
	g.Cells[1][1] = decimal.NewFromInt(7)

	out := RunningTotals(g)
	want := map[string][]string{
		"2023": {"100", "100", "150"},
		"2024": {"0", "7", "7"},
	}
	for col, values := range want {
		got := out.Column(col)
		for i, v := range values {
			assertDecimal(t, col, got[i], v)
		}
	}

	// the input grid is untouched
	assertDecimal(t, "input", g.Cells[2][0], "50")
}

func TestRunningTotalsLastRowIsColumnSum(t *testing.T) {
	g := MonthlyRevenue(sampleRecords())
	out := RunningTotals(g)
	last := len(out.Rows) - 1
	for j, col := range out.Columns {
		sum := decimal.Zero
		for _, v := range g.Column(col) {
			sum = sum.Add(v)
		}
		if !out.Cells[last][j].Equal(sum) {
			t.Fatalf("%s: expected %s, got %s", col, sum, out.Cells[last][j])
		}
	}
}

func TestRunningTotalsNil(t *testing.T) {
	if RunningTotals(nil) != nil {
		t.Fatalf("expected nil")
	}
}
