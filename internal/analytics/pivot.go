package analytics

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"dentaldash/internal/core"
)

// cellAcc accumulates the values falling into one pivot cell.
type cellAcc struct {
	count int
	sum   decimal.Decimal
	max   decimal.Decimal
	min   decimal.Decimal
}

func (a *cellAcc) add(v decimal.Decimal) {
	if a.count == 0 {
		a.sum, a.max, a.min = v, v, v
	} else {
		a.sum = a.sum.Add(v)
		if v.GreaterThan(a.max) {
			a.max = v
		}
		if v.LessThan(a.min) {
			a.min = v
		}
	}
	a.count++
}

func (a *cellAcc) result(agg core.AggFunc) decimal.Decimal {
	switch agg {
	case core.AggSum:
		return a.sum
	case core.AggCount:
		return decimal.NewFromInt(int64(a.count))
	case core.AggMean:
		return a.sum.DivRound(decimal.NewFromInt(int64(a.count)), 2)
	case core.AggMax:
		return a.max
	case core.AggMin:
		return a.min
	}
	return decimal.Zero
}

// ValidatePivotSpec checks a pivot configuration against the enumerated
// fields and aggregation functions.
func ValidatePivotSpec(spec core.PivotSpec) error {
	if !spec.Rows.IsDimension() {
		return &ConfigError{Field: "rows", Reason: "unsupported field " + strconv.Quote(string(spec.Rows))}
	}
	if !spec.Columns.IsDimension() {
		return &ConfigError{Field: "columns", Reason: "unsupported field " + strconv.Quote(string(spec.Columns))}
	}
	if spec.Rows == spec.Columns {
		return &ConfigError{Field: "columns", Reason: "rows and columns must be different fields"}
	}
	if !spec.Values.IsValue() {
		return &ConfigError{Field: "values", Reason: "unsupported field " + strconv.Quote(string(spec.Values))}
	}
	switch spec.Agg {
	case core.AggSum, core.AggCount, core.AggMean, core.AggMax, core.AggMin:
	default:
		return &ConfigError{Field: "agg", Reason: "unsupported aggregation " + strconv.Quote(string(spec.Agg))}
	}
	if !spec.Values.IsNumeric() && spec.Agg != core.AggCount {
		return &ConfigError{Field: "agg", Reason: string(spec.Agg) + " is not applicable to non-numeric field " + string(spec.Values)}
	}
	return nil
}

// Pivot cross-tabulates records: one row per distinct Rows value, one
// column per distinct Columns value, each cell the aggregate of Values over
// the matching records. Absent combinations are zero. Month-of-year axes
// always carry the twelve calendar months.
func Pivot(records []core.OperationRecord, spec core.PivotSpec) (*Grid, error) {
	if err := ValidatePivotSpec(spec); err != nil {
		return nil, err
	}

	type cellKey struct{ row, col string }
	cells := make(map[cellKey]*cellAcc)
	rowSet := make(map[string]struct{})
	colSet := make(map[string]struct{})

	for _, r := range records {
		rk, ck := dimensionValue(r, spec.Rows), dimensionValue(r, spec.Columns)
		rowSet[rk] = struct{}{}
		colSet[ck] = struct{}{}
		acc, ok := cells[cellKey{rk, ck}]
		if !ok {
			acc = &cellAcc{}
			cells[cellKey{rk, ck}] = acc
		}
		acc.add(numericValue(r, spec.Values))
	}

	g := newGrid(spec.Rows, spec.Columns, axisLabels(spec.Rows, rowSet), axisLabels(spec.Columns, colSet))
	g.ValueField, g.Agg = spec.Values, spec.Agg
	for i, rk := range g.Rows {
		for j, ck := range g.Columns {
			if acc, ok := cells[cellKey{rk, ck}]; ok {
				g.Cells[i][j] = acc.result(spec.Agg)
			}
		}
	}
	return g, nil
}

// MonthlyRevenue is the month-of-year by year revenue pivot feeding the
// year-over-year trend chart.
func MonthlyRevenue(records []core.OperationRecord) *Grid {
	g, _ := Pivot(records, core.PivotSpec{
		Rows:    core.FieldMonthName,
		Columns: core.FieldYear,
		Values:  core.FieldAmount,
		Agg:     core.AggSum,
	})
	return g
}

func dimensionValue(r core.OperationRecord, f core.Field) string {
	switch f {
	case core.FieldOperator:
		return r.Operator
	case core.FieldOperation:
		return r.Operation
	case core.FieldStatus:
		return r.Status.String()
	case core.FieldMonthKey:
		return r.MonthKey()
	case core.FieldMonthName:
		return r.MonthName()
	case core.FieldYear:
		return strconv.Itoa(r.Year())
	case core.FieldQuarter:
		return strconv.Itoa(r.Quarter())
	case core.FieldWeekday:
		return r.Weekday()
	}
	return ""
}

// numericValue is the value a record contributes to a cell. Identifiers
// only support counting, so they contribute zero.
func numericValue(r core.OperationRecord, f core.Field) decimal.Decimal {
	if f == core.FieldAmount {
		return r.Amount.Decimal
	}
	return decimal.Zero
}

// axisLabels orders the labels of an axis by the natural order of its field.
func axisLabels(f core.Field, set map[string]struct{}) []string {
	switch f {
	case core.FieldMonthName:
		return core.MonthLabels()
	case core.FieldWeekday:
		out := make([]string, 0, len(set))
		for _, w := range core.WeekdayLabels() {
			if _, ok := set[w]; ok {
				out = append(out, w)
			}
		}
		return out
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	switch f {
	case core.FieldYear, core.FieldQuarter:
		sort.Slice(out, func(i, j int) bool {
			a, _ := strconv.Atoi(out[i])
			b, _ := strconv.Atoi(out[j])
			return a < b
		})
	case core.FieldMonthKey:
		sort.Slice(out, func(i, j int) bool {
			return core.MonthKeyOrdinal(out[i]) < core.MonthKeyOrdinal(out[j])
		})
	default:
		sort.Strings(out)
	}
	return out
}
