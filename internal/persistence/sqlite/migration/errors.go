package migration

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMigrationFile indicates a file that does not follow the naming or content rules.
	ErrInvalidMigrationFile = errors.New("migration: invalid migration file")
	// ErrDuplicateVersion indicates two files share a version number.
	ErrDuplicateVersion = errors.New("migration: duplicate migration version")
	// ErrVersionConflict indicates a gap in the version sequence or an applied version without a file.
	ErrVersionConflict = errors.New("migration: version conflict")
	// ErrChecksumMismatch indicates an applied file was edited afterwards.
	ErrChecksumMismatch = errors.New("migration: checksum mismatch")
)

// MigrationError adds the version and file to a failure.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s (%s): %s: %v", e.Version, e.FilePath, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration (%s): %s: %v", e.FilePath, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// DatabaseError wraps a failed statement against the schema database.
type DatabaseError struct {
	Version   string
	Operation string
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s: database error during %s: %v", e.Version, e.Operation, e.Err)
	}
	return fmt.Sprintf("migration: database error during %s: %v", e.Operation, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
