package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"dentaldash/internal/core"
)

// KPI is the headline figure bundle of a record set.
type KPI struct {
	TotalOperations   int             `json:"total_operations"`
	Executed          int             `json:"executed"`
	CompletionRate    float64         `json:"completion_rate"` // percent
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	MeanRevenue       decimal.Decimal `json:"mean_revenue"`
	UniquePatients    int             `json:"unique_patients"`
	MeanOpsPerPatient float64         `json:"mean_ops_per_patient"`
}

// StatusCount is one slice of the status distribution.
type StatusCount struct {
	Status core.Status `json:"status"`
	Count  int         `json:"count"`
	Share  float64     `json:"share"` // percent of the set
}

// Summarize computes the KPI bundle. Every ratio is zero when its
// denominator is zero.
func Summarize(records []core.OperationRecord) KPI {
	k := KPI{
		TotalOperations: len(records),
		TotalRevenue:    decimal.Zero,
		MeanRevenue:     decimal.Zero,
	}
	patients := make(map[string]struct{})
	for _, r := range records {
		if r.IsExecuted() {
			k.Executed++
		}
		k.TotalRevenue = k.TotalRevenue.Add(r.Amount.Decimal)
		patients[r.PatientID] = struct{}{}
	}
	k.UniquePatients = len(patients)

	if k.TotalOperations > 0 {
		k.CompletionRate = float64(k.Executed) / float64(k.TotalOperations) * 100
		k.MeanRevenue = k.TotalRevenue.DivRound(decimal.NewFromInt(int64(k.TotalOperations)), 2)
	}
	if k.UniquePatients > 0 {
		k.MeanOpsPerPatient = float64(k.TotalOperations) / float64(k.UniquePatients)
	}
	return k
}

// StatusBreakdown counts records per status. Both statuses are always
// present; rows are ordered by count descending, then canonical order.
func StatusBreakdown(records []core.OperationRecord) []StatusCount {
	statuses := core.Statuses()
	out := make([]StatusCount, len(statuses))
	for i, s := range statuses {
		out[i].Status = s
	}
	for _, r := range records {
		for i := range out {
			if out[i].Status == r.Status {
				out[i].Count++
			}
		}
	}
	if n := len(records); n > 0 {
		for i := range out {
			out[i].Share = float64(out[i].Count) / float64(n) * 100
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
