package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteExecutor applies migrations to a SQLite database.
type SQLiteExecutor struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteExecutor returns an executor bound to db.
func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db, now: time.Now}
}

// InitializeVersionTable creates schema_migrations when missing.
func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_ms INTEGER NOT NULL DEFAULT 0
		)
	`
	if _, err := e.db.ExecContext(ctx, query); err != nil {
		return &DatabaseError{Operation: "create schema_migrations table", Err: err}
	}
	return nil
}

// ExecuteMigration runs every statement of migration and records it, all in
// one transaction.
func (e *SQLiteExecutor) ExecuteMigration(ctx context.Context, migration Migration) (time.Duration, error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return 0, &MigrationError{
			Version:   migration.Version,
			FilePath:  migration.FilePath,
			Operation: "parse SQL",
			Err:       fmt.Errorf("%w: no SQL statements", ErrInvalidMigrationFile),
		}
	}

	started := e.now()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &DatabaseError{Version: migration.Version, Operation: "begin transaction", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	for i, statement := range statements {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return 0, &DatabaseError{
				Version:   migration.Version,
				Operation: fmt.Sprintf("execute statement %d", i+1),
				Err:       err,
			}
		}
	}

	elapsed := e.now().Sub(started)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		migration.Version,
		e.now().UTC().Format(time.RFC3339),
		migration.Checksum,
		elapsed.Milliseconds(),
	)
	if err != nil {
		return 0, &DatabaseError{Version: migration.Version, Operation: "record migration", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &DatabaseError{Version: migration.Version, Operation: "commit transaction", Err: err}
	}
	return elapsed, nil
}

// AppliedMigrations lists recorded migrations by ascending version.
func (e *SQLiteExecutor) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT version, applied_at, checksum, execution_time_ms
		FROM schema_migrations
		ORDER BY CAST(version AS INTEGER) ASC
	`)
	if err != nil {
		return nil, &DatabaseError{Operation: "list applied migrations", Err: err}
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			record      AppliedMigration
			appliedAt   string
			executionMs int64
		)
		if err := rows.Scan(&record.Version, &appliedAt, &record.Checksum, &executionMs); err != nil {
			return nil, &DatabaseError{Operation: "scan applied migration", Err: err}
		}
		if record.AppliedAt, err = time.Parse(time.RFC3339, appliedAt); err != nil {
			return nil, &DatabaseError{Version: record.Version, Operation: "parse applied_at", Err: err}
		}
		record.ExecutionTime = time.Duration(executionMs) * time.Millisecond
		applied = append(applied, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Operation: "iterate applied migrations", Err: err}
	}
	return applied, nil
}
