package mite

import (
	"context"
	"database/sql"
	"time"
)

// DefaultTableName defines the name of the database table which will
// hold the status of applied migrations
const DefaultTableName = "schema_migrations"

// TrackingStore is a backend's record of which migrations have been
// applied. Its schema is up to the backend.
type TrackingStore interface {
	AppliedMigrations(ctx context.Context) ([]*AppliedMigration, error)
	InsertAppliedMigration(ctx context.Context, am *AppliedMigration) error
	Close() error
}

// AppliedMigration is one record of the tracking store.
type AppliedMigration struct {
	ID string

	// Checksum is the MD5 hash of the migration's script
	Checksum string

	// ExecutionTimeInMillis is how long the script took to run.
	ExecutionTimeInMillis int

	// AppliedAt is the time at which the script began executing (not when it
	// completed executing).
	AppliedAt time.Time
}

// Queryer is something which can execute a Query (either a sql.DB
// or a sql.Tx)
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Transactor defines the interface for the BeginTx method from the *sql.DB
type Transactor interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// SQLBackend is a Backend for any database/sql driver. The Dialect supplies
// the engine-specific tracking table SQL.
type SQLBackend struct {
	Dialect          Dialect
	DriverName       string
	ConnectionString string
	WorkingDirectory string
	SchemaName       string
	TableName        string
}

// QuotedTableName returns the dialect-quoted fully-qualified name for the
// migrations tracking table
func (b *SQLBackend) QuotedTableName() string {
	tableName := b.TableName
	if tableName == "" {
		tableName = DefaultTableName
	}
	return b.Dialect.QuotedTableName(b.SchemaName, tableName)
}

// Create connects to the database and creates the tracking table if it does
// not already exist.
func (b *SQLBackend) Create(ctx context.Context) (TrackingStore, error) {
	if b.Dialect == nil {
		return nil, ErrNilDialect
	}
	db, err := sql.Open(b.DriverName, b.ConnectionString)
	if err != nil {
		return nil, err
	}

	store := &SQLTrackingStore{DB: db, Dialect: b.Dialect, TableName: b.QuotedTableName()}
	err = transaction(ctx, db, func(tx Queryer) error {
		return b.Dialect.CreateMigrationsTable(ctx, tx, store.TableName)
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// SQLTrackingStore is the TrackingStore created by SQLBackend. TableName is
// already quoted for the Dialect.
type SQLTrackingStore struct {
	DB        *sql.DB
	Dialect   Dialect
	TableName string
}

// AppliedMigrations retrieves all rows of the tracking table ordered by ID.
func (s *SQLTrackingStore) AppliedMigrations(ctx context.Context) ([]*AppliedMigration, error) {
	if s.DB == nil {
		return nil, ErrNilDB
	}
	return s.Dialect.GetAppliedMigrations(ctx, s.DB, s.TableName)
}

// InsertAppliedMigration records a migration in the tracking table.
func (s *SQLTrackingStore) InsertAppliedMigration(ctx context.Context, am *AppliedMigration) error {
	if s.DB == nil {
		return ErrNilDB
	}
	return transaction(ctx, s.DB, func(tx Queryer) error {
		return s.Dialect.InsertAppliedMigration(ctx, tx, s.TableName, am)
	})
}

// Close closes the underlying database connection pool.
func (s *SQLTrackingStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// transaction wraps the supplied function in a transaction with the supplied
// database connecion
func transaction(ctx context.Context, db Transactor, f func(Queryer) error) (err error) {
	if db == nil {
		return ErrNilDB
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			err = panicError(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return f(tx)
}
