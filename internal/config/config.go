package config

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendSheets   = "sheets"
)

type Config struct {
	// HTTP Server
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Backend selection
	DataBackend  string `yaml:"data_backend"`
	RecordsTable string `yaml:"records_table"`

	// Snapshot
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	ParsePolicy string        `yaml:"parse_policy"`

	// Postgres (Supabase)
	DatabaseURL string `yaml:"database_url"`

	// SQLite snapshot
	SQLiteDBPath   string `yaml:"sqlite_db_path"`
	SnapshotSource string `yaml:"snapshot_source"`

	// Memory
	MemorySeedFile string `yaml:"memory_seed_file"`

	// Google Sheets
	GoogleSpreadsheetID string `yaml:"google_spreadsheet_id"`
	GoogleSheetName     string `yaml:"google_sheet_name"`

	// AMQP refresh queue (optional)
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Scheduled invalidation (optional, cron syntax)
	RefreshSchedule string `yaml:"refresh_schedule"`

	LogLevel string `yaml:"log_level"`

	// ConfigFile is the YAML file the values were layered on, if any.
	ConfigFile string `yaml:"-"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:            "8081",
		ShutdownTimeout: 10 * time.Second,
		DataBackend:     BackendMemory,
		RecordsTable:    "medical_data",
		CacheTTL:        5 * time.Minute,
		ParsePolicy:     "strict",
		SQLiteDBPath:    "./data/dentaldash.db",
		SnapshotSource:  BackendPostgres,
		MemorySeedFile:  "./data/medical_data.json",
		AMQPExchange:    "dentaldash",
		AMQPQueue:       "dentaldash_refresh",
		LogLevel:        "info",
	}
}

// Load builds the configuration from defaults, then the optional YAML
// file named by CONFIG_FILE, then environment variables. Later layers
// win.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.DataBackend = strings.ToLower(getEnv("DATA_BACKEND", cfg.DataBackend))
	cfg.RecordsTable = getEnv("RECORDS_TABLE", cfg.RecordsTable)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.ParsePolicy = strings.ToLower(getEnv("PARSE_POLICY", cfg.ParsePolicy))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.SnapshotSource = strings.ToLower(getEnv("SNAPSHOT_SOURCE", cfg.SnapshotSource))
	cfg.MemorySeedFile = getEnv("MEMORY_SEED_FILE", cfg.MemorySeedFile)
	cfg.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.GoogleSpreadsheetID)
	cfg.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", cfg.GoogleSheetName)
	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)
	cfg.RefreshSchedule = getEnv("REFRESH_SCHEDULE", cfg.RefreshSchedule)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return &cfg, nil
}

// overlayFile decodes the YAML file at path over c. Keys absent from the
// file keep their current value.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendPostgres, BackendSQLite, BackendSheets}
	if !contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if strings.TrimSpace(c.RecordsTable) == "" {
		errors = append(errors, "records table cannot be empty")
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	} else if c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
	}

	if c.ParsePolicy != "strict" && c.ParsePolicy != "lenient" {
		errors = append(errors, fmt.Sprintf("invalid parse policy '%s': must be strict or lenient", c.ParsePolicy))
	}

	if c.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout))
	}

	switch c.DataBackend {
	case BackendPostgres:
		errors = append(errors, validateDatabaseURL(c.DatabaseURL)...)
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.RefreshSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid refresh schedule '%s': %v", c.RefreshSchedule, err))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateSnapshot checks the settings needed to copy SnapshotSource into
// the local SQLite snapshot.
func (c *Config) ValidateSnapshot() error {
	var errors []string
	switch c.SnapshotSource {
	case BackendPostgres:
		errors = append(errors, validateDatabaseURL(c.DatabaseURL)...)
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when the snapshot source is sheets")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid snapshot source '%s': must be postgres or sheets", c.SnapshotSource))
	}
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}
	if len(errors) > 0 {
		return fmt.Errorf("snapshot configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ServerAddr is the listen address of the HTTP server.
func (c *Config) ServerAddr() string {
	return ":" + c.Port
}

func validateDatabaseURL(raw string) []string {
	if raw == "" {
		return []string{"database URL is required when using postgres backend"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return []string{fmt.Sprintf("invalid database URL: %v", err)}
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return []string{fmt.Sprintf("invalid database URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme)}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
