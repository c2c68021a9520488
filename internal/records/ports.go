package records

import (
	"context"

	"dentaldash/internal/core"
)

// DefaultTable is the backend table holding the clinic operations.
const DefaultTable = "medical_data"

// Ports for inbound data adapters.
type (
	// Fetcher returns every row of a table as loosely typed field maps.
	Fetcher interface {
		FetchAll(ctx context.Context, table string) ([]core.RawRecord, error)
	}

	// Replacer atomically replaces the contents of a table.
	// Implemented by local snapshot stores.
	Replacer interface {
		Replace(ctx context.Context, table string, rows []core.RawRecord) (int, error)
	}
)
