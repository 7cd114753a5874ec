package mite

// Option supports option chaining when creating a Bootstrapper.
// An Option is a function which takes a Bootstrapper and
// returns a Bootstrapper with an Option modified.
type Option func(b Bootstrapper) Bootstrapper

// WithRegistry builds an Option which replaces the DefaultRegistry as the
// source of statically registered backends.
func WithRegistry(r *Registry) Option {
	return func(b Bootstrapper) Bootstrapper {
		b.Discovery.Registry = r
		return b
	}
}

// WithPluginDir sets the directory scanned for backend plugin modules. An
// empty dir disables plugin loading.
func WithPluginDir(dir string) Option {
	return func(b Bootstrapper) Bootstrapper {
		b.Discovery.PluginDir = dir
		return b
	}
}

// WithStrictDiscovery makes a plugin module which fails to load abort the
// whole bootstrap instead of being skipped.
func WithStrictDiscovery() Option {
	return func(b Bootstrapper) Bootstrapper {
		b.Discovery.Strict = true
		return b
	}
}

// WithConfigFileName overrides the config file name read by
// BootstrapDirectory.
func WithConfigFileName(name string) Option {
	return func(b Bootstrapper) Bootstrapper {
		b.ConfigFileName = name
		return b
	}
}

// Logger is the interface for logging operations of the logger.
// By default the bootstrapper operates silently. Providing a Logger
// enables output of its operations.
type Logger interface {
	Print(...interface{})
}

// WithLogger builds an Option which will set the supplied Logger
// on a Bootstrapper. Usage: NewBootstrapper(WithLogger(log.Default()))
func WithLogger(logger Logger) Option {
	return func(b Bootstrapper) Bootstrapper {
		b.Logger = logger
		b.Discovery.Logger = logger
		return b
	}
}
