package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dentaldash/internal/analytics"
	"dentaldash/internal/core"
	"dentaldash/internal/records"

	_ "modernc.org/sqlite"
)

var (
	_ records.Fetcher  = (*Repository)(nil)
	_ records.Replacer = (*Repository)(nil)
)

// Repository is a local SQLite snapshot of the clinic tables.
type Repository struct {
	db *sql.DB
}

// SnapshotRun describes the last Replace of a table.
type SnapshotRun struct {
	Table    string
	RowCount int
	TakenAt  time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FetchAll returns every row of table as text-valued field maps.
func (r *Repository) FetchAll(ctx context.Context, table string) ([]core.RawRecord, error) {
	cols := analytics.Columns()
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(table))
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []core.RawRecord
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		rec := make(core.RawRecord, len(cols))
		for i, c := range cols {
			if vals[i].Valid {
				rec[c] = vals[i].String
			} else {
				rec[c] = nil
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// Replace swaps the contents of table with rows in one transaction and
// records the run.
func (r *Repository) Replace(ctx context.Context, table string, rows []core.RawRecord) (int, error) {
	cols := analytics.Columns()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+quoteIdent(table)); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(cols, ", "), placeholders))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		args := make([]any, len(cols))
		for j, c := range cols {
			args[j] = storedValue(row[c])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	takenAt := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshot_runs (table_name, row_count, taken_at) VALUES (?, ?, ?)",
		table, len(rows), takenAt.Format(time.RFC3339Nano)); err != nil {
		return 0, fmt.Errorf("record snapshot run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot replaced", "table", table, "rows", len(rows))
	return len(rows), nil
}

// LastRun returns the most recent snapshot run of table, or nil.
func (r *Repository) LastRun(ctx context.Context, table string) (*SnapshotRun, error) {
	var (
		run     SnapshotRun
		takenAt string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT table_name, row_count, taken_at FROM snapshot_runs WHERE table_name = ? ORDER BY id DESC LIMIT 1",
		table).Scan(&run.Table, &run.RowCount, &takenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read last snapshot run: %w", err)
	}
	if run.TakenAt, err = time.Parse(time.RFC3339Nano, takenAt); err != nil {
		return nil, fmt.Errorf("parse snapshot time: %w", err)
	}
	return &run, nil
}

// storedValue renders a field as the text the snapshot keeps; amounts
// and ids keep their exact decimal form.
func storedValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case float64:
		return decimal.NewFromFloat(x).String()
	case float32:
		return decimal.NewFromFloat32(x).String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
