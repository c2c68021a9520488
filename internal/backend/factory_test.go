package backend

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dentaldash/internal/config"
	"dentaldash/internal/log"
)

func quietLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	return log.New(cfg)
}

func TestFromAppConfig(t *testing.T) {
	app := config.Defaults()
	app.DataBackend = config.BackendSQLite
	app.SQLiteDBPath = "/tmp/x.db"
	app.RecordsTable = "operations"

	cfg, err := FromAppConfig(&app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" || cfg.Table != "operations" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	app.DataBackend = "mysql"
	if _, err := FromAppConfig(&app); err == nil {
		t.Fatalf("expected invalid backend error")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestSnapshotSourceConfig(t *testing.T) {
	app := config.Defaults()
	app.SnapshotSource = config.BackendSheets
	app.GoogleSpreadsheetID = "abc"
	cfg, err := SnapshotSourceConfig(&app)
	if err != nil || cfg.Type != SheetsBackend {
		t.Fatalf("SnapshotSourceConfig() = %+v, %v", cfg, err)
	}

	app.SnapshotSource = config.BackendSQLite
	if _, err := SnapshotSourceConfig(&app); err == nil {
		t.Fatalf("sqlite cannot be its own snapshot source")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory without seed", Config{Type: MemoryBackend}, ""},
		{"postgres without url", Config{Type: PostgresBackend}, "database URL is required"},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"sheets without id", Config{Type: SheetsBackend}, "Google Spreadsheet ID is required"},
		{"unknown type", Config{Type: "oracle"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.json")
	data := `[{"id": 1, "patient_id": "P1", "operatore": "Rossi", "operazione": "Pulizia",
"data_operazione": "2024-03-01 10:00:00", "status_operazione": "ESEGUITA", "importo_scontato": 80}]`
	if err := os.WriteFile(seed, []byte(data), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	f := NewFactory(quietLogger())
	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedFile: seed})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	rows, err := res.Fetcher.FetchAll(context.Background(), "medical_data")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(rows) != 1 || rows[0]["operatore"] != "Rossi" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if err := res.Ping(context.Background()); err != nil {
		t.Fatalf("memory backend ping must succeed: %v", err)
	}
}

func TestCreateBackend_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dentaldash.db")
	f := NewFactory(quietLogger())
	res, err := f.CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: dbPath})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	if err := res.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	rows, err := res.Fetcher.FetchAll(context.Background(), "medical_data")
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("fresh snapshot must be empty, got %d rows", len(rows))
	}
}

func TestCreateBackend_Invalid(t *testing.T) {
	f := NewFactory(nil)
	if _, err := f.CreateBackend(context.Background(), Config{Type: "nope"}); err == nil {
		t.Fatalf("expected error for invalid backend type")
	}
}
