package mite

import "context"

// Migrator pairs a Backend with the TrackingStore it created. It is built by
// the Bootstrap functions and exclusively owns both for its lifetime.
type Migrator struct {
	backend          Backend
	store            TrackingStore
	workingDirectory string
}

func newMigrator(store TrackingStore, backend Backend, workingDirectory string) *Migrator {
	return &Migrator{
		backend:          backend,
		store:            store,
		workingDirectory: workingDirectory,
	}
}

// Backend returns the backend this Migrator was bootstrapped with.
func (m *Migrator) Backend() Backend {
	return m.backend
}

// TrackingStore returns the store created by the backend.
func (m *Migrator) TrackingStore() TrackingStore {
	return m.store
}

// WorkingDirectory returns the migrations directory.
func (m *Migrator) WorkingDirectory() string {
	return m.workingDirectory
}

// GetAppliedMigrations retrieves all already-applied migrations in a map keyed
// by the migration IDs
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[string]*AppliedMigration, error) {
	applied := make(map[string]*AppliedMigration)
	if m.store == nil {
		return applied, ErrNilBackend
	}
	migrations, err := m.store.AppliedMigrations(ctx)
	if err != nil {
		return applied, err
	}
	for _, migration := range migrations {
		applied[migration.ID] = migration
	}
	return applied, nil
}

// Close releases the tracking store.
func (m *Migrator) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}
