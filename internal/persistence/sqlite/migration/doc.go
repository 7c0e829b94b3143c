// Package migration applies versioned SQL schema files to a SQLite database.
//
// Files are named {version}_{description}.sql (for example
// "001_initial_schema.sql") and are read from any fs.FS, usually an embedded
// directory. Applied versions are tracked in the schema_migrations table and
// each file runs inside its own transaction together with its bookkeeping row.
//
//	manager := migration.NewManager(migration.NewScanner(files), migration.NewSQLiteExecutor(db), "migrations", logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
