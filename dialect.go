package mite

import "context"

// Dialect defines the minimal interface for a database dialect. All dialects
// must implement functions to create the migrations table, get all applied
// migrations, insert a new migration tracking record, and perform escaping
// for the tracking table's name
type Dialect interface {
	QuotedTableName(schemaName, tableName string) string

	CreateMigrationsTable(ctx context.Context, tx Queryer, tableName string) error
	GetAppliedMigrations(ctx context.Context, tx Queryer, tableName string) (applied []*AppliedMigration, err error)
	InsertAppliedMigration(ctx context.Context, tx Queryer, tableName string, migration *AppliedMigration) error
}
