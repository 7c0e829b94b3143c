package migration

import (
	"context"
	"time"
)

// Migration is one versioned schema file.
type Migration struct {
	Version     string // numeric version taken from the file name, e.g. "001"
	Description string
	SQL         string
	FilePath    string
	Checksum    string // sha256 of SQL, hex encoded
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the schema state of a database.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// Scanner discovers migration files.
type Scanner interface {
	Scan(dir string) ([]Migration, error)
}

// Executor applies migrations and tracks which versions ran.
type Executor interface {
	InitializeVersionTable(ctx context.Context) error
	ExecuteMigration(ctx context.Context, migration Migration) (time.Duration, error)
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}
