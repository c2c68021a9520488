package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusExecuted    Status = "EXECUTED"
	StatusNotExecuted Status = "NOT EXECUTED"
)

const (
	StatusModeAll         StatusMode = "ALL"
	StatusModeExecuted    StatusMode = "EXECUTED"
	StatusModeNotExecuted StatusMode = "NOT_EXECUTED"
)

type (
	// RawRecord is a backend row before normalization.
	RawRecord map[string]any

	// Status is the outcome of a clinical operation.
	Status string

	// StatusMode selects which statuses a filter accepts.
	StatusMode string

	// OperationRecord is one clinical operation event.
	OperationRecord struct {
		ID          string
		PatientID   string
		Operator    string
		Operation   string
		PerformedAt time.Time
		Status      Status
		Amount      Money // discounted amount
		UploadedAt  time.Time
	}
)

// ErrMissingField is wrapped by every required-field error.
var ErrMissingField = errors.New("missing field")

var (
	ErrInvalidStatus   = errors.New("invalid status")
	ErrEmptyID         = fmt.Errorf("%w: id", ErrMissingField)
	ErrEmptyPatient    = fmt.Errorf("%w: patient id", ErrMissingField)
	ErrEmptyOperator   = fmt.Errorf("%w: operator", ErrMissingField)
	ErrEmptyOperation  = fmt.Errorf("%w: operation", ErrMissingField)
	ErrMissingDate     = fmt.Errorf("%w: operation date", ErrMissingField)
	ErrNegativeAmount  = errors.New("negative amount")
	ErrInvalidStatusMd = errors.New("invalid status mode")
)

// ParseStatus maps backend status strings onto the canonical statuses.
// The Italian values used by the clinic backend are accepted alongside
// the canonical English labels.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.Join(strings.Fields(s), " ")) {
	case "EXECUTED", "ESEGUITA":
		return StatusExecuted, nil
	case "NOT EXECUTED", "NON ESEGUITA":
		return StatusNotExecuted, nil
	}
	return "", ErrInvalidStatus
}

func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is one of the canonical statuses.
func (s Status) IsValid() bool {
	return s == StatusExecuted || s == StatusNotExecuted
}

// Statuses returns the closed status set in display order.
func Statuses() []Status {
	return []Status{StatusExecuted, StatusNotExecuted}
}

// ParseStatusMode parses a filter status mode. Empty input means ALL.
func ParseStatusMode(s string) (StatusMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL":
		return StatusModeAll, nil
	case "EXECUTED":
		return StatusModeExecuted, nil
	case "NOT_EXECUTED", "NOT EXECUTED":
		return StatusModeNotExecuted, nil
	}
	return "", ErrInvalidStatusMd
}

// Accepts reports whether a record with status s passes the mode.
func (m StatusMode) Accepts(s Status) bool {
	switch m {
	case StatusModeAll:
		return true
	case StatusModeExecuted:
		return s == StatusExecuted
	case StatusModeNotExecuted:
		return s == StatusNotExecuted
	}
	return false
}

// Validate checks the invariants every record must hold once typed.
func (r OperationRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(r.PatientID) == "" {
		return ErrEmptyPatient
	}
	if strings.TrimSpace(r.Operator) == "" {
		return ErrEmptyOperator
	}
	if strings.TrimSpace(r.Operation) == "" {
		return ErrEmptyOperation
	}
	if r.PerformedAt.IsZero() {
		return ErrMissingDate
	}
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// IsExecuted reports whether the operation was carried out.
func (r OperationRecord) IsExecuted() bool {
	return r.Status == StatusExecuted
}

// Year returns the calendar year of the operation.
func (r OperationRecord) Year() int {
	return r.PerformedAt.Year()
}

// MonthNumber returns the month of the operation, 1-12.
func (r OperationRecord) MonthNumber() int {
	return int(r.PerformedAt.Month())
}

// Quarter returns the calendar quarter of the operation, 1-4.
func (r OperationRecord) Quarter() int {
	return QuarterOf(r.PerformedAt.Month())
}

// Weekday returns the English weekday name of the operation.
func (r OperationRecord) Weekday() string {
	return r.PerformedAt.Weekday().String()
}

// MonthKey returns the "YYYY-MM" bucket of the operation.
func (r OperationRecord) MonthKey() string {
	return FormatMonthKey(r.PerformedAt.Year(), r.PerformedAt.Month())
}

// MonthName returns the abbreviated month-of-year label ("Jan".."Dec").
func (r OperationRecord) MonthName() string {
	return MonthLabel(r.PerformedAt.Month())
}

// Day returns the calendar day of the operation at midnight UTC, used for
// inclusive date-range comparisons.
func (r OperationRecord) Day() time.Time {
	return DayOf(r.PerformedAt)
}
