package mite

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"plugin"
)

// PluginEntryPoint is the symbol every backend plugin module must export.
// Its type must be func(*mite.Registry).
const PluginEntryPoint = "MiteRegister"

// PluginPattern selects the files in the plugin directory which are loaded
// as backend modules
const PluginPattern = "*.so"

// symbolLookup is the part of *plugin.Plugin used by discovery
type symbolLookup interface {
	Lookup(symName string) (plugin.Symbol, error)
}

func openPlugin(path string) (symbolLookup, error) {
	return plugin.Open(path)
}

// Discovery enumerates backend candidates: first the Registry's entries,
// then whatever each plugin module in PluginDir registers.
//
// Plugin modules are visited in lexical file name order. Which modules are
// present, and therefore which of two same-named candidates is seen first,
// depends on the deployment.
type Discovery struct {
	Registry *Registry

	// PluginDir is scanned for *.so backend modules. Empty disables the scan.
	PluginDir string

	// Strict aborts discovery on the first module that fails to load. When
	// false, broken modules are logged and skipped.
	Strict bool

	Logger Logger

	open func(path string) (symbolLookup, error)
}

// ExecutableDir returns the directory holding the running binary, or "" if
// it can't be determined.
func ExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// Candidates returns a lazy sequence over every discoverable candidate. Each
// call rescans the plugin directory; stopping early leaves the remaining
// modules unloaded. In Strict mode a module failure is yielded as a
// *ModuleLoadError and ends the sequence.
func (d Discovery) Candidates() iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		if d.Registry != nil {
			for _, c := range d.Registry.Candidates() {
				if !yield(c, nil) {
					return
				}
			}
		}

		if d.PluginDir == "" {
			return
		}
		paths, err := d.modulePaths()
		if err != nil {
			if d.Strict {
				yield(Candidate{}, err)
				return
			}
			d.log("Skipping backend modules: ", err)
			return
		}

		for _, path := range paths {
			found, err := d.loadModule(path)
			if err != nil {
				if d.Strict {
					yield(Candidate{}, err)
					return
				}
				d.log("Skipping backend module: ", err)
				continue
			}
			for _, c := range found {
				if !yield(c, nil) {
					return
				}
			}
		}
	}
}

// modulePaths lists the files in PluginDir matching PluginPattern in lexical
// order. A missing directory holds no modules.
func (d Discovery) modulePaths() ([]string, error) {
	entries, err := os.ReadDir(d.PluginDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &ModuleLoadError{Path: d.PluginDir, Err: err}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(PluginPattern, e.Name()); ok {
			paths = append(paths, filepath.Join(d.PluginDir, e.Name()))
		}
	}
	return paths, nil
}

// loadModule opens a single plugin module and collects what its entry point
// registers
func (d Discovery) loadModule(path string) (candidates []Candidate, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ModuleLoadError{Path: path, Err: panicError(p)}
		}
	}()

	lookup, err := d.opener()(path)
	if err != nil {
		return nil, &ModuleLoadError{Path: path, Err: err}
	}
	sym, err := lookup.Lookup(PluginEntryPoint)
	if err != nil {
		return nil, &ModuleLoadError{Path: path, Err: err}
	}
	register, ok := sym.(func(*Registry))
	if !ok {
		return nil, &ModuleLoadError{
			Path: path,
			Err:  fmt.Errorf("%s has type %T, expected func(*mite.Registry)", PluginEntryPoint, sym),
		}
	}

	r := &Registry{source: path}
	register(r)
	return r.Candidates(), nil
}

func (d Discovery) opener() func(string) (symbolLookup, error) {
	if d.open != nil {
		return d.open
	}
	return openPlugin
}

func (d Discovery) log(msgs ...interface{}) {
	if d.Logger != nil {
		d.Logger.Print(msgs...)
	}
}

// panicError converts a recovered panic value into an error
func panicError(p interface{}) error {
	switch p := p.(type) {
	case error:
		return p
	default:
		return fmt.Errorf("%v", p)
	}
}
