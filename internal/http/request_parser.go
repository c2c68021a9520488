// Package http provides the dashboard HTTP server and its handlers.
//
// This file turns query strings into filter and pivot selections.
package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"dentaldash/internal/analytics"
	"dentaldash/internal/core"
)

// Query parameter names shared by the HTML form, the JSON API and the
// download links.
const (
	paramFrom     = "from"
	paramTo       = "to"
	paramOperator = "op"
	paramStatus   = "status"
	paramMin      = "min"
	paramMax      = "max"
	paramYear     = "year"
	paramRows     = "rows"
	paramCols     = "cols"
	paramValues   = "values"
	paramAgg      = "agg"
	paramFormat   = "format"
)

// ParamError reports a malformed query parameter.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// ParseFilter builds a filter from query, starting from the filter that
// accepts every record. Absent parameters keep the default. Present but
// empty "op" parameters select no operator.
func ParseFilter(query url.Values, records []core.OperationRecord) (core.FilterSpec, error) {
	spec := analytics.DefaultFilter(records)

	if v := strings.TrimSpace(query.Get(paramFrom)); v != "" {
		d, err := core.ParseDay(v)
		if err != nil {
			return spec, &ParamError{Param: paramFrom, Value: v, Err: err}
		}
		spec.DateFrom = d
	}
	if v := strings.TrimSpace(query.Get(paramTo)); v != "" {
		d, err := core.ParseDay(v)
		if err != nil {
			return spec, &ParamError{Param: paramTo, Value: v, Err: err}
		}
		spec.DateTo = d
	}

	if ops, ok := query[paramOperator]; ok {
		spec.Operators = make([]string, 0, len(ops))
		for _, op := range ops {
			if op = sanitizeInput(op); op != "" {
				spec.Operators = append(spec.Operators, op)
			}
		}
	}

	if v := query.Get(paramStatus); v != "" {
		mode, err := core.ParseStatusMode(v)
		if err != nil {
			return spec, &ParamError{Param: paramStatus, Value: v, Err: err}
		}
		spec.Status = mode
	}

	if v := strings.TrimSpace(query.Get(paramMin)); v != "" {
		m, err := core.ParseMoney(v)
		if err != nil {
			return spec, &ParamError{Param: paramMin, Value: v, Err: err}
		}
		spec.AmountMin = m
	}
	if v := strings.TrimSpace(query.Get(paramMax)); v != "" {
		m, err := core.ParseMoney(v)
		if err != nil {
			return spec, &ParamError{Param: paramMax, Value: v, Err: err}
		}
		spec.AmountMax = m
	}

	if years, ok := query[paramYear]; ok {
		spec.Years = make([]int, 0, len(years))
		for _, v := range years {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			y, err := core.ParseYear(v)
			if err != nil {
				return spec, &ParamError{Param: paramYear, Value: v, Err: err}
			}
			spec.Years = append(spec.Years, y)
		}
		// "year=" alone means no restriction
		if len(spec.Years) == 0 {
			spec.Years = nil
		}
	}

	return spec, nil
}

// ParsePivot reads the pivot selection. Field names are not checked here:
// an unusable combination is reported by the pivot engine so that only
// the pivot section fails.
func ParsePivot(query url.Values) core.PivotSpec {
	spec := core.DefaultPivotSpec()
	if v := query.Get(paramRows); v != "" {
		spec.Rows = fieldParam(v)
	}
	if v := query.Get(paramCols); v != "" {
		spec.Columns = fieldParam(v)
	}
	if v := query.Get(paramValues); v != "" {
		spec.Values = fieldParam(v)
	}
	if v := query.Get(paramAgg); v != "" {
		if agg, err := core.ParseAggFunc(v); err == nil {
			spec.Agg = agg
		} else {
			spec.Agg = core.AggFunc(strings.ToLower(strings.TrimSpace(v)))
		}
	}
	return spec
}

func fieldParam(v string) core.Field {
	return core.Field(strings.ToLower(strings.TrimSpace(v)))
}

// FilterQuery encodes a filter and pivot selection back into query
// parameters, used for download links that reproduce the current view.
func FilterQuery(f core.FilterSpec, p core.PivotSpec) url.Values {
	q := url.Values{}
	if !f.DateFrom.IsZero() {
		q.Set(paramFrom, f.DateFrom.Format("2006-01-02"))
	}
	if !f.DateTo.IsZero() {
		q.Set(paramTo, f.DateTo.Format("2006-01-02"))
	}
	if len(f.Operators) == 0 {
		q.Set(paramOperator, "")
	}
	for _, op := range f.Operators {
		q.Add(paramOperator, op)
	}
	if f.Status != "" {
		q.Set(paramStatus, string(f.Status))
	}
	q.Set(paramMin, f.AmountMin.StringFixed(2))
	q.Set(paramMax, f.AmountMax.StringFixed(2))
	for _, y := range f.Years {
		q.Add(paramYear, strconv.Itoa(y))
	}
	q.Set(paramRows, string(p.Rows))
	q.Set(paramCols, string(p.Columns))
	q.Set(paramValues, string(p.Values))
	q.Set(paramAgg, string(p.Agg))
	return q
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s))
}
