package analytics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"dentaldash/internal/core"
)

const (
	GroupByOperator  GroupKey = "operator"
	GroupByOperation GroupKey = "operation"
	GroupByMonthKey  GroupKey = "month_key"
)

// DefaultTopN is the size of the most-frequent-operations ranking.
const DefaultTopN = 15

// GroupKey selects the grouping attribute of Aggregate.
type GroupKey string

// GroupRow is one group of an aggregation.
type GroupRow struct {
	Group          string          `json:"group"`
	Count          int             `json:"count"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Executed       int             `json:"executed"`
	CompletionRate float64         `json:"completion_rate"` // percent, one decimal
}

// FrequencyRow is one entry of a frequency ranking.
type FrequencyRow struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Aggregate groups records by key. Operator and operation groups are
// ordered by total amount descending, ties by group name; month groups
// follow the calendar.
func Aggregate(records []core.OperationRecord, key GroupKey) ([]GroupRow, error) {
	var groupOf func(core.OperationRecord) string
	switch key {
	case GroupByOperator:
		groupOf = func(r core.OperationRecord) string { return r.Operator }
	case GroupByOperation:
		groupOf = func(r core.OperationRecord) string { return r.Operation }
	case GroupByMonthKey:
		groupOf = core.OperationRecord.MonthKey
	default:
		return nil, &ConfigError{Field: "group", Reason: "unsupported group key " + string(key)}
	}

	groups := make(map[string]*GroupRow)
	for _, r := range records {
		g := groupOf(r)
		row, ok := groups[g]
		if !ok {
			row = &GroupRow{Group: g, TotalAmount: decimal.Zero}
			groups[g] = row
		}
		row.Count++
		row.TotalAmount = row.TotalAmount.Add(r.Amount.Decimal)
		if r.IsExecuted() {
			row.Executed++
		}
	}

	out := make([]GroupRow, 0, len(groups))
	for _, row := range groups {
		row.CompletionRate = math.Round(float64(row.Executed)/float64(row.Count)*1000) / 10
		out = append(out, *row)
	}

	if key == GroupByMonthKey {
		sort.Slice(out, func(i, j int) bool {
			return core.MonthKeyOrdinal(out[i].Group) < core.MonthKeyOrdinal(out[j].Group)
		})
		return out, nil
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalAmount.Cmp(out[j].TotalAmount); c != 0 {
			return c > 0
		}
		return out[i].Group < out[j].Group
	})
	return out, nil
}

// Timeline is the month-by-month operation count and revenue trend.
func Timeline(records []core.OperationRecord) []GroupRow {
	rows, _ := Aggregate(records, GroupByMonthKey)
	return rows
}

// OperatorPerformance is the per-operator revenue table.
func OperatorPerformance(records []core.OperationRecord) []GroupRow {
	rows, _ := Aggregate(records, GroupByOperator)
	return rows
}

// TopOperations returns the n most frequent operation types, ties broken
// by name. n <= 0 returns every operation.
func TopOperations(records []core.OperationRecord, n int) []FrequencyRow {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Operation]++
	}
	out := make([]FrequencyRow, 0, len(counts))
	for op, c := range counts {
		out = append(out, FrequencyRow{Value: op, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
