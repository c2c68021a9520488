package analytics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"dentaldash/internal/core"
)

// Backend column names.
const (
	ColID         = "id"
	ColPatientID  = "patient_id"
	ColOperator   = "operatore"
	ColOperation  = "operazione"
	ColPerformed  = "data_operazione"
	ColStatus     = "status_operazione"
	ColAmount     = "importo_scontato"
	ColUploadedAt = "uploaded_at"
)

// Columns lists the backend columns in their canonical order.
func Columns() []string {
	return []string{ColID, ColPatientID, ColOperator, ColOperation, ColPerformed, ColStatus, ColAmount, ColUploadedAt}
}

const (
	// PolicyStrict aborts the whole load on the first bad row.
	PolicyStrict ParsePolicy = "strict"
	// PolicyLenient drops bad rows and reports them.
	PolicyLenient ParsePolicy = "lenient"
)

// ParsePolicy decides what a bad source row does to a load.
type ParsePolicy string

// ParseParsePolicy parses a policy name; empty means strict.
func ParseParsePolicy(s string) (ParsePolicy, error) {
	switch p := ParsePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyStrict, nil
	case PolicyStrict, PolicyLenient:
		return p, nil
	}
	return "", fmt.Errorf("invalid parse policy %q: must be strict or lenient", s)
}

// NormalizeResult is a typed record table plus the rows that were dropped
// under the lenient policy.
type NormalizeResult struct {
	Records     []core.OperationRecord
	Quarantined []*RowError
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts raw backend rows into operation records, preserving
// their order. An empty input is ErrNoData.
func Normalize(raw []core.RawRecord, policy ParsePolicy) (NormalizeResult, error) {
	if len(raw) == 0 {
		return NormalizeResult{}, ErrNoData
	}
	if policy == "" {
		policy = PolicyStrict
	}

	res := NormalizeResult{Records: make([]core.OperationRecord, 0, len(raw))}
	seen := make(map[string]struct{}, len(raw))
	for i, row := range raw {
		rec, err := normalizeRow(i, row)
		if err == nil {
			if _, dup := seen[rec.ID]; dup {
				err = &RowError{Row: i, ID: rec.ID, Field: ColID, Err: ErrDuplicateID}
			}
		}
		if err != nil {
			rowErr := err.(*RowError)
			if policy == PolicyStrict {
				return NormalizeResult{}, rowErr
			}
			res.Quarantined = append(res.Quarantined, rowErr)
			continue
		}
		seen[rec.ID] = struct{}{}
		res.Records = append(res.Records, rec)
	}
	if len(res.Records) == 0 {
		return res, ErrNoData
	}
	return res, nil
}

func normalizeRow(i int, row core.RawRecord) (core.OperationRecord, error) {
	var rec core.OperationRecord
	fail := func(field string, err error) (core.OperationRecord, error) {
		return core.OperationRecord{}, &RowError{Row: i, ID: rec.ID, Field: field, Err: err}
	}

	rec.ID, _ = text(row[ColID])
	rec.PatientID, _ = text(row[ColPatientID])
	rec.Operator, _ = text(row[ColOperator])
	rec.Operation, _ = text(row[ColOperation])

	performed, err := ParseTimestamp(row[ColPerformed])
	if err != nil {
		return fail(ColPerformed, err)
	}
	rec.PerformedAt = performed

	statusText, ok := text(row[ColStatus])
	if !ok {
		return fail(ColStatus, ErrMissingField)
	}
	if rec.Status, err = core.ParseStatus(statusText); err != nil {
		return fail(ColStatus, fmt.Errorf("%w: %q", err, statusText))
	}

	if rec.Amount, err = core.ParseMoney(row[ColAmount]); err != nil {
		return fail(ColAmount, err)
	}

	// uploaded_at is optional; blank cells count as absent
	if v := row[ColUploadedAt]; !isBlank(v) {
		if rec.UploadedAt, err = ParseTimestamp(v); err != nil {
			return fail(ColUploadedAt, err)
		}
	}

	if err := rec.Validate(); err != nil {
		return fail(invalidColumn(err), err)
	}
	return rec, nil
}

// invalidColumn maps a record invariant violation onto its source column.
func invalidColumn(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyID):
		return ColID
	case errors.Is(err, core.ErrEmptyPatient):
		return ColPatientID
	case errors.Is(err, core.ErrEmptyOperator):
		return ColOperator
	case errors.Is(err, core.ErrEmptyOperation):
		return ColOperation
	case errors.Is(err, core.ErrMissingDate):
		return ColPerformed
	case errors.Is(err, core.ErrInvalidStatus):
		return ColStatus
	}
	return ColAmount
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

// ParseTimestamp accepts the timestamp shapes produced by the supported
// backends: time values, RFC 3339 strings, SQL-style datetimes and plain dates.
func ParseTimestamp(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, ErrMissingField
	case time.Time:
		if x.IsZero() {
			return time.Time{}, ErrMissingField
		}
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, ErrMissingField
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrBadTimestamp, v)
}

// text renders identifier-like values (strings or numbers) as trimmed strings.
func text(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s = x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			s = strconv.FormatInt(int64(x), 10)
		} else {
			s = strconv.FormatFloat(x, 'f', -1, 64)
		}
	case int:
		s = strconv.Itoa(x)
	case int32:
		s = strconv.FormatInt(int64(x), 10)
	case int64:
		s = strconv.FormatInt(x, 10)
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
