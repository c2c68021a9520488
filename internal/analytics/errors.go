// Package analytics turns a flat set of operation records into the
// figures the dashboard shows: KPIs, grouped tables, pivot grids and
// running totals. Every function is pure and recomputes from its inputs.
package analytics

import (
	"errors"
	"fmt"

	"dentaldash/internal/core"
)

var (
	// ErrNoData reports that the backend returned no rows.
	ErrNoData = errors.New("no data available")

	ErrDuplicateID  = errors.New("duplicate id")
	ErrMissingField = core.ErrMissingField
	ErrBadTimestamp = errors.New("unparseable timestamp")
)

// RowError locates a normalization failure in the source rows.
type RowError struct {
	Row   int    // zero-based position in the fetched rows
	ID    string // record id when it could be read
	Field string
	Err   error
}

func (e *RowError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("row %d (id=%s): field %s: %v", e.Row, e.ID, e.Field, e.Err)
	}
	return fmt.Sprintf("row %d: field %s: %v", e.Row, e.Field, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ConfigError reports an unsupported view configuration. It aborts only
// the view being computed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Reason)
}
