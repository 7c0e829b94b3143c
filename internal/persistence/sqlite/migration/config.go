package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteConfig holds connection settings for a SQLite database file.
type SQLiteConfig struct {
	// DSN is the database file path, or ":memory:".
	DSN string

	BusyTimeout       time.Duration
	EnableForeignKeys bool
	// JournalMode is one of DELETE, TRUNCATE, PERSIST, MEMORY, WAL, OFF.
	JournalMode string
	// Synchronous is one of OFF, NORMAL, FULL, EXTRA.
	Synchronous string
	// CacheSize in KiB when negative, pages when positive.
	CacheSize int

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

var (
	validJournalModes = map[string]bool{"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true}
	validSyncModes    = map[string]bool{"OFF": true, "NORMAL": true, "FULL": true, "EXTRA": true}
)

// Validate reports the first invalid setting.
func (c SQLiteConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.DSN) == "":
		return errors.New("DSN cannot be empty")
	case c.BusyTimeout < 0:
		return errors.New("BusyTimeout cannot be negative")
	case c.JournalMode != "" && !validJournalModes[c.JournalMode]:
		return fmt.Errorf("invalid journal mode: %s", c.JournalMode)
	case c.Synchronous != "" && !validSyncModes[c.Synchronous]:
		return fmt.Errorf("invalid synchronous mode: %s", c.Synchronous)
	case c.MaxOpenConns < 0, c.MaxIdleConns < 0:
		return errors.New("connection limits cannot be negative")
	case c.ConnMaxLifetime < 0:
		return errors.New("ConnMaxLifetime cannot be negative")
	}
	return nil
}

// DataSourceName renders the driver DSN. PRAGMAs are passed as _pragma
// parameters so every pooled connection receives them, not only the first.
func (c SQLiteConfig) DataSourceName() string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.JournalMode != "" {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", c.JournalMode))
	}
	if c.Synchronous != "" {
		params.Add("_pragma", fmt.Sprintf("synchronous(%s)", c.Synchronous))
	}
	if c.EnableForeignKeys {
		params.Add("_pragma", "foreign_keys(1)")
	}
	if c.CacheSize != 0 {
		params.Add("_pragma", fmt.Sprintf("cache_size(%d)", c.CacheSize))
	}

	separator := "?"
	if strings.Contains(c.DSN, "?") {
		separator = "&"
	}
	return c.DSN + separator + params.Encode()
}

// Open validates the configuration, creates the parent directory of a file
// database and returns a pinged *sql.DB.
func Open(config SQLiteConfig) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite configuration: %w", err)
	}
	if err := ensureDirectory(config.DSN); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", config.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}
	return db, nil
}

func ensureDirectory(dsn string) error {
	path := dsn
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimPrefix(path, "file:")
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}

// DefaultSQLiteConfig returns production settings for a database file.
func DefaultSQLiteConfig(databasePath string) SQLiteConfig {
	return SQLiteConfig{
		DSN:               databasePath,
		BusyTimeout:       30 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "WAL",
		Synchronous:       "NORMAL",
		CacheSize:         -2000,
		MaxOpenConns:      4,
		MaxIdleConns:      2,
		ConnMaxLifetime:   5 * time.Minute,
	}
}

// TempFileTestSQLiteConfig returns fast, non-durable settings for test databases.
func TempFileTestSQLiteConfig(tempFilePath string) SQLiteConfig {
	return SQLiteConfig{
		DSN:               tempFilePath,
		BusyTimeout:       5 * time.Second,
		EnableForeignKeys: true,
		JournalMode:       "MEMORY",
		Synchronous:       "OFF",
		CacheSize:         -1000,
		MaxOpenConns:      1,
		MaxIdleConns:      1,
		ConnMaxLifetime:   time.Minute,
	}
}
