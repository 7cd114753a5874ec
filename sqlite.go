package mite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	// SQLite database drivers: mattn/go-sqlite3 registers "sqlite3" (cgo),
	// modernc.org/sqlite registers "sqlite" (pure Go)
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLite is the dialect for SQLite databases
var SQLite = sqliteDialect{}

func init() {
	Register("github.com/adlio/mite.SQLite", NewSQLite)
	Register("github.com/adlio/mite.ModernSQLite", NewModernSQLite)
}

// NewSQLite builds a Backend on github.com/mattn/go-sqlite3. A relative
// database path is resolved against the working directory.
func NewSQLite(connectionString, workingDirectory string) (Backend, error) {
	return &SQLBackend{
		Dialect:          SQLite,
		DriverName:       "sqlite3",
		ConnectionString: sqlitePath(connectionString, workingDirectory),
		WorkingDirectory: workingDirectory,
	}, nil
}

// NewModernSQLite builds a Backend on the pure Go modernc.org/sqlite driver.
// A relative database path is resolved against the working directory.
func NewModernSQLite(connectionString, workingDirectory string) (Backend, error) {
	return &SQLBackend{
		Dialect:          SQLite,
		DriverName:       "sqlite",
		ConnectionString: sqlitePath(connectionString, workingDirectory),
		WorkingDirectory: workingDirectory,
	}, nil
}

// sqlitePath joins plain relative file paths onto dir. URIs, absolute paths
// and in-memory databases are left alone.
func sqlitePath(dsn, dir string) string {
	switch {
	case dir == "",
		strings.HasPrefix(dsn, ":memory:"),
		strings.HasPrefix(dsn, "file:"),
		filepath.IsAbs(dsn):
		return dsn
	}
	return filepath.Join(dir, dsn)
}

type sqliteDialect struct{}

// CreateMigrationsTable implements the Dialect interface to create the
// table which tracks applied migrations. It only creates the table if it
// does not already exist
func (s sqliteDialect) CreateMigrationsTable(ctx context.Context, tx Queryer, tableName string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_in_millis INTEGER NOT NULL DEFAULT 0,
			applied_at DATETIME
		)`, tableName)
	_, err := tx.ExecContext(ctx, query)
	return err
}

// InsertAppliedMigration implements the Dialect interface to insert a record
// into the migrations tracking table.
func (s sqliteDialect) InsertAppliedMigration(ctx context.Context, tx Queryer, tableName string, am *AppliedMigration) error {
	query := fmt.Sprintf(`
		INSERT INTO %s
		( id, checksum, execution_time_in_millis, applied_at )
		VALUES
		( ?, ?, ?, ? )
		`, tableName)
	_, err := tx.ExecContext(ctx, query, am.ID, am.Checksum, am.ExecutionTimeInMillis, am.AppliedAt)
	return err
}

// GetAppliedMigrations retrieves all data from the migrations tracking table
func (s sqliteDialect) GetAppliedMigrations(ctx context.Context, tx Queryer, tableName string) (migrations []*AppliedMigration, err error) {
	migrations = make([]*AppliedMigration, 0)

	query := fmt.Sprintf(`
		SELECT id, checksum, execution_time_in_millis, applied_at
		FROM %s
		ORDER BY id ASC
	`, tableName)
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return migrations, err
	}
	defer rows.Close()

	for rows.Next() {
		migration := AppliedMigration{}
		err = rows.Scan(&migration.ID, &migration.Checksum, &migration.ExecutionTimeInMillis, &migration.AppliedAt)
		if err != nil {
			err = fmt.Errorf("failed to GetAppliedMigrations. Did somebody change the structure of the %s table?: %w", tableName, err)
			return migrations, err
		}
		migration.AppliedAt = migration.AppliedAt.In(time.Local)
		migrations = append(migrations, &migration)
	}

	return migrations, rows.Err()
}

// QuotedTableName returns the string value of the name of the migration
// tracking table after it has been quoted for SQLite. SQLite has no schemas
// so schemaName is ignored.
func (s sqliteDialect) QuotedTableName(_, tableName string) string {
	return `"` + strings.ReplaceAll(tableName, `"`, `""`) + `"`
}
