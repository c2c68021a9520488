package analytics

import (
	"time"

	"dentaldash/internal/core"
)

// ViewModel is everything the dashboard renders for one filter and pivot
// selection.
type ViewModel struct {
	Records       int                    `json:"records"`
	Filtered      int                    `json:"filtered"`
	Filter        core.FilterSpec        `json:"filter"`
	PeriodFrom    *time.Time             `json:"period_from,omitempty"` // nil on an empty selection
	PeriodTo      *time.Time             `json:"period_to,omitempty"`
	KPI           KPI                    `json:"kpi"`
	Status        []StatusCount          `json:"status"`
	Timeline      []GroupRow             `json:"timeline"`
	Operators     []GroupRow             `json:"operators"`
	TopOperations []FrequencyRow         `json:"top_operations"`
	PivotSpec     core.PivotSpec         `json:"pivot_spec"`
	Pivot         *Grid                  `json:"pivot,omitempty"`
	PivotError    string                 `json:"pivot_error,omitempty"`
	Monthly       *Grid                  `json:"monthly_revenue"`
	Running       *Grid                  `json:"running_revenue"`
	Rows          []core.OperationRecord `json:"-"`
}

// Empty reports whether the filter matched no record.
func (v *ViewModel) Empty() bool { return v.Filtered == 0 }

// RenderView filters the record set and computes every dashboard
// section over the filtered rows. A bad pivot configuration does not fail
// the view; it is reported in PivotError and the other sections render.
func RenderView(records []core.OperationRecord, filter core.FilterSpec, pivot core.PivotSpec) *ViewModel {
	rows := Apply(records, filter)
	v := &ViewModel{
		Records:       len(records),
		Filtered:      len(rows),
		Filter:        filter,
		KPI:           Summarize(rows),
		Status:        StatusBreakdown(rows),
		Timeline:      Timeline(rows),
		Operators:     OperatorPerformance(rows),
		TopOperations: TopOperations(rows, DefaultTopN),
		PivotSpec:     pivot,
		Monthly:       MonthlyRevenue(rows),
		Rows:          rows,
	}
	v.Running = RunningTotals(v.Monthly)
	if len(rows) > 0 {
		from, to := rows[0].Day(), rows[0].Day()
		for _, r := range rows[1:] {
			d := r.Day()
			if d.Before(from) {
				from = d
			}
			if d.After(to) {
				to = d
			}
		}
		v.PeriodFrom, v.PeriodTo = &from, &to
	}

	g, err := Pivot(rows, pivot)
	if err != nil {
		v.PivotError = err.Error()
	} else {
		v.Pivot = g
	}
	return v
}
