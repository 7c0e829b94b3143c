package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/meeting-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationDir = "migrations"

// Storage bundles the SQLite repositories over one connection pool.
type Storage struct {
	*RuleRepository
	*EventRepository
	*MeetingConfigRepository
	*AgendaRepository

	pool *ConnectionPool
}

// Open connects to the database described by config. Call Migrate before use.
func Open(config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		RuleRepository:          NewRuleRepository(pool),
		EventRepository:         NewEventRepository(pool),
		MeetingConfigRepository: NewMeetingConfigRepository(pool),
		AgendaRepository:        NewAgendaRepository(pool),
		pool:                    pool,
	}, nil
}

// Pool exposes the shared connection pool.
func (s *Storage) Pool() *ConnectionPool {
	return s.pool
}

// Close releases the underlying connections.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles),
		migration.NewSQLiteExecutor(s.pool.DB()),
		migrationDir,
		logger,
	)
	if _, err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}
