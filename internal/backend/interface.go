package backend

import (
	"context"

	"dentaldash/internal/records"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Pinger is implemented by backends that can report their readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult contains the fetcher and an optional cleanup function.
type BackendResult struct {
	Fetcher records.Fetcher
	Cleanup CleanupFunc
}

// Ping checks the backend when it supports it.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Fetcher.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close runs the cleanup function if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type  BackendType
	Table string

	// Postgres
	DatabaseURL string

	// SQLite snapshot
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Memory
	SeedFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	PostgresBackend BackendType = "postgres"
	SQLiteBackend   BackendType = "sqlite"
	SheetsBackend   BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, PostgresBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
