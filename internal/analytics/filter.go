package analytics

import (
	"sort"

	"dentaldash/internal/core"
)

// Apply returns the records accepted by every predicate of spec, in their
// original order. The input is never modified. Inverted date or amount
// bounds select nothing.
func Apply(records []core.OperationRecord, spec core.FilterSpec) []core.OperationRecord {
	out := make([]core.OperationRecord, 0, len(records))

	if spec.AmountMin.GreaterThan(spec.AmountMax.Decimal) {
		return out
	}
	from, to := core.DayOf(spec.DateFrom), core.DayOf(spec.DateTo)
	if to.Before(from) {
		return out
	}

	operators := make(map[string]struct{}, len(spec.Operators))
	for _, op := range spec.Operators {
		operators[op] = struct{}{}
	}

	for _, r := range records {
		day := r.Day()
		if day.Before(from) || day.After(to) {
			continue
		}
		if _, ok := operators[r.Operator]; !ok {
			continue
		}
		if !spec.Status.Accepts(r.Status) {
			continue
		}
		if r.Amount.LessThan(spec.AmountMin.Decimal) || r.Amount.GreaterThan(spec.AmountMax.Decimal) {
			continue
		}
		if !spec.AcceptsYear(r.Year()) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// DefaultFilter returns the filter that accepts every record of the set:
// its full date span, every operator, both statuses and amounts from zero
// to the largest amount.
func DefaultFilter(records []core.OperationRecord) core.FilterSpec {
	spec := core.FilterSpec{
		Status:    core.StatusModeAll,
		AmountMin: core.Zero,
		AmountMax: core.Zero,
		Operators: Operators(records),
	}
	for i, r := range records {
		day := r.Day()
		if i == 0 || day.Before(spec.DateFrom) {
			spec.DateFrom = day
		}
		if i == 0 || day.After(spec.DateTo) {
			spec.DateTo = day
		}
		if r.Amount.GreaterThan(spec.AmountMax.Decimal) {
			spec.AmountMax = r.Amount
		}
	}
	return spec
}

// Operators returns the distinct operators in first-seen order.
func Operators(records []core.OperationRecord) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Operator]; ok {
			continue
		}
		seen[r.Operator] = struct{}{}
		out = append(out, r.Operator)
	}
	return out
}

// Years returns the distinct operation years, ascending.
func Years(records []core.OperationRecord) []int {
	seen := make(map[int]struct{})
	out := make([]int, 0)
	for _, r := range records {
		if _, ok := seen[r.Year()]; ok {
			continue
		}
		seen[r.Year()] = struct{}{}
		out = append(out, r.Year())
	}
	sort.Ints(out)
	return out
}
