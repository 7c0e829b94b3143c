package migration

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager brings a database up to the newest migration.
type Manager struct {
	scanner  Scanner
	executor Executor
	dir      string
	logger   *slog.Logger
}

// NewManager wires a scanner reading dir with an executor.
func NewManager(scanner Scanner, executor Executor, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		dir:      dir,
		logger:   logger.With(slog.String("component", "migration")),
	}
}

// Run applies every pending migration in version order and returns how many
// ran. It stops at the first failure; earlier migrations stay applied.
func (m *Manager) Run(ctx context.Context) (int, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}

	if len(status.Pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date", slog.String("version", status.CurrentVersion))
		return 0, nil
	}

	m.logger.InfoContext(ctx, "applying migrations",
		slog.String("current_version", status.CurrentVersion),
		slog.Int("pending", len(status.Pending)),
	)

	for i, migration := range status.Pending {
		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				slog.String("version", migration.Version),
				slog.String("file", migration.FilePath),
				slog.Any("error", err),
			)
			return i, &MigrationError{
				Version:   migration.Version,
				FilePath:  migration.FilePath,
				Operation: "execute migration",
				Err:       err,
			}
		}
		m.logger.InfoContext(ctx, "migration applied",
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
			slog.Duration("elapsed", elapsed),
		)
	}

	return len(status.Pending), nil
}

// Status compares the files in the migration directory with the recorded
// versions. It fails on version gaps, applied versions without a file and
// edited files.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, err
	}

	available, err := m.scanner.Scan(m.dir)
	if err != nil {
		return nil, err
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	if err := validateSequence(available, applied); err != nil {
		return nil, err
	}

	done := make(map[int]bool, len(applied))
	status := &Status{Applied: applied}
	for _, record := range applied {
		done[versionNumber(record.Version)] = true
		status.CurrentVersion = record.Version
	}
	for _, migration := range available {
		if !done[versionNumber(migration.Version)] {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}

func validateSequence(available []Migration, applied []AppliedMigration) error {
	files := make(map[int]Migration, len(available))
	for i, migration := range available {
		version := versionNumber(migration.Version)
		if i > 0 && version != versionNumber(available[i-1].Version)+1 {
			return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, versionNumber(available[i-1].Version)+1)
		}
		files[version] = migration
	}

	for _, record := range applied {
		migration, ok := files[versionNumber(record.Version)]
		if !ok {
			return fmt.Errorf("%w: applied migration %s has no file", ErrVersionConflict, record.Version)
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return &MigrationError{
				Version:   record.Version,
				FilePath:  migration.FilePath,
				Operation: "verify checksum",
				Err:       ErrChecksumMismatch,
			}
		}
	}
	return nil
}
