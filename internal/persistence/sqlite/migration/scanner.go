package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// FSScanner reads migration files from an fs.FS.
type FSScanner struct {
	fsys fs.FS
}

// NewScanner returns a Scanner over fsys.
func NewScanner(fsys fs.FS) *FSScanner {
	return &FSScanner{fsys: fsys}
}

// Scan returns the .sql files of dir ordered by numeric version.
func (s *FSScanner) Scan(dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(s.fsys, dir)
	if err != nil {
		return nil, &MigrationError{FilePath: dir, Operation: "read directory", Err: err}
	}

	var migrations []Migration
	versions := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		filePath := path.Join(dir, entry.Name())
		migration, err := s.parse(filePath)
		if err != nil {
			return nil, err
		}

		version, _ := strconv.Atoi(migration.Version)
		if existing, ok := versions[version]; ok {
			return nil, &MigrationError{
				Version:   migration.Version,
				FilePath:  filePath,
				Operation: "check duplicates",
				Err:       fmt.Errorf("%w: also defined by %s", ErrDuplicateVersion, existing),
			}
		}
		versions[version] = filePath
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return versionNumber(migrations[i].Version) < versionNumber(migrations[j].Version)
	})
	return migrations, nil
}

func (s *FSScanner) parse(filePath string) (Migration, error) {
	matches := migrationFilePattern.FindStringSubmatch(path.Base(filePath))
	if matches == nil {
		return Migration{}, &MigrationError{
			FilePath:  filePath,
			Operation: "validate filename",
			Err:       fmt.Errorf("%w: expected {version}_{description}.sql", ErrInvalidMigrationFile),
		}
	}

	content, err := fs.ReadFile(s.fsys, filePath)
	if err != nil {
		return Migration{}, &MigrationError{Version: matches[1], FilePath: filePath, Operation: "read file", Err: err}
	}
	sql := string(content)
	if len(splitStatements(sql)) == 0 {
		return Migration{}, &MigrationError{
			Version:   matches[1],
			FilePath:  filePath,
			Operation: "validate content",
			Err:       fmt.Errorf("%w: no SQL statements", ErrInvalidMigrationFile),
		}
	}

	description := descriptionFromComments(sql)
	if description == "" {
		description = strings.ReplaceAll(matches[2], "_", " ")
	}
	sum := sha256.Sum256(content)

	return Migration{
		Version:     matches[1],
		Description: description,
		SQL:         sql,
		FilePath:    filePath,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

// descriptionFromComments returns the "-- Description:" value from the
// leading comment block.
func descriptionFromComments(sql string) string {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			return ""
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// splitStatements splits on semicolons and drops comment-only fragments.
// Statements containing semicolons inside bodies (triggers) are not supported.
func splitStatements(sql string) []string {
	var statements []string
	for _, fragment := range strings.Split(sql, ";") {
		var lines []string
		for _, line := range strings.Split(fragment, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}

func versionNumber(version string) int {
	n, _ := strconv.Atoi(version)
	return n
}
