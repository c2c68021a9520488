package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dentaldash/internal/core"
	"dentaldash/internal/records"
)

var _ records.Fetcher = (*Client)(nil)

// Client reads clinic tables from a Postgres database (the hosted
// Supabase instance in production).
type Client struct {
	pool *pgxpool.Pool
}

// New connects a pool to dsn and verifies it with a ping.
func New(ctx context.Context, dsn string) (*Client, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Client{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool}
}

func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// FetchAll selects every row of table.
func (c *Client) FetchAll(ctx context.Context, table string) ([]core.RawRecord, error) {
	q := "SELECT * FROM " + pgx.Identifier{table}.Sanitize()
	rows, err := c.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := make([]core.RawRecord, 0, 1024)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read %s row: %w", table, err)
		}
		rec := make(core.RawRecord, len(fields))
		for i, f := range fields {
			rec[f.Name] = plainValue(vals[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}
	return out, nil
}

// plainValue reduces pgx values to the plain Go types the normalizer
// understands. Numerics become their exact decimal text; uuids their
// canonical string.
func plainValue(v any) any {
	switch x := v.(type) {
	case nil, string, time.Time, int64, int32, int, float64, float32, bool:
		return x
	case [16]byte:
		return uuid.UUID(x).String()
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return nil
		}
		return dv
	}
	return v
}
