package mite

import (
	"context"
	"fmt"
)

// Bootstrapper turns a configuration into a ready Migrator.
type Bootstrapper struct {
	Discovery      Discovery
	ConfigFileName string
	Logger         Logger
}

// NewBootstrapper creates a Bootstrapper which discovers backends in the
// DefaultRegistry and in plugin modules next to the running executable.
func NewBootstrapper(options ...Option) Bootstrapper {
	b := Bootstrapper{
		Discovery: Discovery{
			Registry:  DefaultRegistry,
			PluginDir: ExecutableDir(),
		},
		ConfigFileName: DefaultConfigFileName,
	}
	for _, opt := range options {
		b = opt(b)
	}
	return b
}

// Bootstrap parses rawConfig, resolves the named backend, constructs it with
// the connection string and workingDirectory, and asks it to create its
// tracking store. Config errors are returned before any discovery happens.
func (b Bootstrapper) Bootstrap(ctx context.Context, rawConfig, workingDirectory string) (*Migrator, error) {
	cfg, err := ParseConfig(rawConfig)
	if err != nil {
		return nil, err
	}

	candidate, err := resolve(cfg.RepositoryName, b.Discovery.Candidates(), b.Discovery.opener())
	if err != nil {
		return nil, err
	}
	b.log(fmt.Sprintf("Resolved backend '%s' to %s (%s)", cfg.RepositoryName, candidate.QualifiedName, candidate.Source))

	backend, err := instantiate(candidate, cfg.ConnectionString, workingDirectory)
	if err != nil {
		return nil, err
	}
	return b.BootstrapBackend(ctx, backend, workingDirectory)
}

// BootstrapBackend skips discovery and builds a Migrator around an
// already-constructed backend.
func (b Bootstrapper) BootstrapBackend(ctx context.Context, backend Backend, workingDirectory string) (*Migrator, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	store, err := backend.Create(ctx)
	if err != nil {
		return nil, err
	}
	b.log("Tracking store ready for ", workingDirectory)
	return newMigrator(store, backend, workingDirectory), nil
}

// BootstrapDirectory reads the config file from dir and bootstraps with dir
// as the working directory. A missing config file is reported as
// ErrArtifactNotFound without attempting anything else.
func (b Bootstrapper) BootstrapDirectory(ctx context.Context, dir string) (*Migrator, error) {
	name := b.ConfigFileName
	if name == "" {
		name = DefaultConfigFileName
	}
	raw, err := ReadConfigFile(dir, name)
	if err != nil {
		return nil, err
	}
	return b.Bootstrap(ctx, raw, dir)
}

func (b Bootstrapper) log(msgs ...interface{}) {
	if b.Logger != nil {
		b.Logger.Print(msgs...)
	}
}

// instantiate runs the candidate's Factory, converting errors, nil results
// and panics into an InstantiationError
func instantiate(c Candidate, connectionString, workingDirectory string) (backend Backend, err error) {
	defer func() {
		if p := recover(); p != nil {
			backend, err = nil, &InstantiationError{Name: c.QualifiedName, Err: panicError(p)}
		}
	}()

	if c.New == nil {
		return nil, &InstantiationError{Name: c.QualifiedName, Err: fmt.Errorf("no factory registered")}
	}
	backend, err = c.New(connectionString, workingDirectory)
	if err != nil {
		return nil, &InstantiationError{Name: c.QualifiedName, Err: err}
	}
	if backend == nil {
		return nil, &InstantiationError{Name: c.QualifiedName, Err: ErrNilBackend}
	}
	return backend, nil
}

// Bootstrap resolves and initializes a backend from a JSON config payload
// using a default Bootstrapper.
func Bootstrap(ctx context.Context, rawConfig, workingDirectory string) (*Migrator, error) {
	return NewBootstrapper().Bootstrap(ctx, rawConfig, workingDirectory)
}

// BootstrapBackend builds a Migrator around an existing backend.
func BootstrapBackend(ctx context.Context, backend Backend, workingDirectory string) (*Migrator, error) {
	return NewBootstrapper().BootstrapBackend(ctx, backend, workingDirectory)
}

// BootstrapDirectory bootstraps from the mite.config file in dir using a
// default Bootstrapper.
func BootstrapDirectory(ctx context.Context, dir string) (*Migrator, error) {
	return NewBootstrapper().BootstrapDirectory(ctx, dir)
}
