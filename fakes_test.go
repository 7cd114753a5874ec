package mite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"
	"testing"
)

// fakeBackend records the arguments its Factory received.
type fakeBackend struct {
	Kind             string
	ConnectionString string
	WorkingDirectory string
	CreateErr        error
	Created          int
}

func (b *fakeBackend) Create(ctx context.Context) (TrackingStore, error) {
	b.Created++
	if b.CreateErr != nil {
		return nil, b.CreateErr
	}
	return &fakeStore{}, nil
}

func fakeFactory(kind string) Factory {
	return func(connectionString, workingDirectory string) (Backend, error) {
		return &fakeBackend{Kind: kind, ConnectionString: connectionString, WorkingDirectory: workingDirectory}, nil
	}
}

// fakeStore is an in-memory TrackingStore
type fakeStore struct {
	applied []*AppliedMigration
	closed  bool
}

func (s *fakeStore) AppliedMigrations(ctx context.Context) ([]*AppliedMigration, error) {
	return s.applied, nil
}

func (s *fakeStore) InsertAppliedMigration(ctx context.Context, am *AppliedMigration) error {
	s.applied = append(s.applied, am)
	return nil
}

func (s *fakeStore) Close() error {
	s.closed = true
	return nil
}

// fakeModule stands in for an opened *plugin.Plugin
type fakeModule map[string]plugin.Symbol

func (m fakeModule) Lookup(name string) (plugin.Symbol, error) {
	sym, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("plugin: symbol %s not found", name)
	}
	return sym, nil
}

// fakeOpener serves fakeModules by file name and counts opens. Unknown
// files fail to open.
type fakeOpener struct {
	modules map[string]fakeModule
	opened  []string
}

func (o *fakeOpener) open(path string) (symbolLookup, error) {
	name := filepath.Base(path)
	o.opened = append(o.opened, name)
	m, ok := o.modules[name]
	if !ok {
		return nil, fmt.Errorf("plugin.Open(%q): invalid ELF header", path)
	}
	return m, nil
}

// registering builds a module whose entry point registers the given
// qualified names
func registering(qualifiedNames ...string) fakeModule {
	return fakeModule{
		PluginEntryPoint: func(r *Registry) {
			for _, q := range qualifiedNames {
				r.Register(q, fakeFactory(q))
			}
		},
	}
}

// pluginDir creates empty module files to be found by the glob
func pluginDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// StrLog captures the last message printed to it
type StrLog string

func (nl *StrLog) Print(msgs ...interface{}) {
	var sb strings.Builder
	for _, msg := range msgs {
		sb.WriteString(fmt.Sprintf("%s", msg))
	}
	*nl = StrLog(sb.String())
}

// collect drains a candidate sequence
func collect(d Discovery) (names []string, err error) {
	for c, cErr := range d.Candidates() {
		if cErr != nil {
			return names, cErr
		}
		names = append(names, c.QualifiedName)
	}
	return names, nil
}
