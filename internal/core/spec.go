package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Field names follow the column names of the clinic backend; derived
// calendar fields use the names the dashboard has always shown.
const (
	FieldID        Field = "id"
	FieldOperator  Field = "operatore"
	FieldOperation Field = "operazione"
	FieldStatus    Field = "status_operazione"
	FieldAmount    Field = "importo_scontato"
	FieldMonthKey  Field = "mese"
	FieldMonthName Field = "mese_nome"
	FieldYear      Field = "anno"
	FieldQuarter   Field = "trimestre"
	FieldWeekday   Field = "giorno_settimana"
)

const (
	AggSum   AggFunc = "sum"
	AggCount AggFunc = "count"
	AggMean  AggFunc = "mean"
	AggMax   AggFunc = "max"
	AggMin   AggFunc = "min"
)

type (
	// Field names a record attribute usable in a pivot.
	Field string

	// AggFunc is a pivot aggregation function.
	AggFunc string

	// FilterSpec is a conjunction of record predicates. Every predicate is
	// applied literally: an empty Operators set accepts no record.
	FilterSpec struct {
		DateFrom  time.Time  `json:"date_from"` // inclusive calendar day
		DateTo    time.Time  `json:"date_to"`   // inclusive calendar day
		Operators []string   `json:"operators"`
		Status    StatusMode `json:"status"`
		AmountMin Money      `json:"amount_min"`
		AmountMax Money      `json:"amount_max"`
		Years     []int      `json:"years,omitempty"` // nil: every year
	}

	// PivotSpec configures a two-dimensional pivot table.
	PivotSpec struct {
		Rows    Field   `json:"rows"`
		Columns Field   `json:"cols"`
		Values  Field   `json:"values"`
		Agg     AggFunc `json:"agg"`
	}
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrUnknownAggFunc = errors.New("unknown aggregation function")
)

// DimensionFields returns the fields usable as pivot rows or columns.
func DimensionFields() []Field {
	return []Field{FieldOperator, FieldOperation, FieldStatus, FieldMonthKey, FieldMonthName, FieldYear, FieldQuarter, FieldWeekday}
}

// ValueFields returns the fields usable as pivot values.
func ValueFields() []Field {
	return []Field{FieldAmount, FieldID}
}

// AggFuncs returns every supported aggregation function.
func AggFuncs() []AggFunc {
	return []AggFunc{AggSum, AggCount, AggMean, AggMax, AggMin}
}

// IsDimension reports whether f can be a pivot axis.
func (f Field) IsDimension() bool {
	for _, d := range DimensionFields() {
		if d == f {
			return true
		}
	}
	return false
}

// IsValue reports whether f can be a pivot value.
func (f Field) IsValue() bool {
	return f == FieldAmount || f == FieldID
}

// IsNumeric reports whether values of f support arithmetic aggregation.
func (f Field) IsNumeric() bool {
	return f == FieldAmount
}

func (f Field) String() string {
	return string(f)
}

// ParseField parses a field name.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if f.IsDimension() || f.IsValue() {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// ParseAggFunc parses an aggregation function name. "avg" and "average"
// are accepted for mean.
func ParseAggFunc(s string) (AggFunc, error) {
	switch a := AggFunc(strings.ToLower(strings.TrimSpace(s))); a {
	case AggSum, AggCount, AggMean, AggMax, AggMin:
		return a, nil
	case "avg", "average":
		return AggMean, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAggFunc, s)
}

// DefaultPivotSpec is the operator-by-status revenue pivot.
func DefaultPivotSpec() PivotSpec {
	return PivotSpec{Rows: FieldOperator, Columns: FieldStatus, Values: FieldAmount, Agg: AggSum}
}

// AcceptsOperator reports whether op is in the operator set.
func (f FilterSpec) AcceptsOperator(op string) bool {
	for _, o := range f.Operators {
		if o == op {
			return true
		}
	}
	return false
}

// AcceptsYear reports whether y passes the optional year restriction.
func (f FilterSpec) AcceptsYear(y int) bool {
	if f.Years == nil {
		return true
	}
	for _, v := range f.Years {
		if v == y {
			return true
		}
	}
	return false
}
