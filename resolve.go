package mite

import (
	"fmt"
	"iter"
	"strings"
)

// Resolve picks the backend for name. The first candidate whose short Name
// equals name, ignoring case, wins. Otherwise name is handed to
// ResolveQualified. Errors yielded by the candidate sequence are returned
// as-is.
func Resolve(name string, candidates iter.Seq2[Candidate, error]) (Candidate, error) {
	return resolve(name, candidates, openPlugin)
}

func resolve(name string, candidates iter.Seq2[Candidate, error], open func(string) (symbolLookup, error)) (Candidate, error) {
	var seen []Candidate
	for c, err := range candidates {
		if err != nil {
			return Candidate{}, err
		}
		if strings.EqualFold(name, c.Name) {
			return c, nil
		}
		seen = append(seen, c)
	}
	return resolveQualified(name, seen, open)
}

// ResolveQualified is the fallback used when no short name matches. name is
// either the exact QualifiedName of one of the known candidates, or a direct
// module reference of the form "/path/to/module.so:Symbol" where Symbol is an
// exported func(string, string) (mite.Backend, error).
func ResolveQualified(name string, known []Candidate) (Candidate, error) {
	return resolveQualified(name, known, openPlugin)
}

func resolveQualified(name string, known []Candidate, open func(string) (symbolLookup, error)) (Candidate, error) {
	for _, c := range known {
		if c.QualifiedName == name {
			return c, nil
		}
	}

	path, symbol, ok := splitModuleRef(name)
	if !ok {
		return Candidate{}, &ResolutionError{Name: name}
	}
	f, err := loadFactory(path, symbol, open)
	if err != nil {
		return Candidate{}, &ResolutionError{Name: name, Err: err}
	}
	return Candidate{
		Name:          symbol,
		QualifiedName: name,
		Source:        path,
		New:           f,
	}, nil
}

// splitModuleRef splits "module.so:Symbol" on its last colon
func splitModuleRef(name string) (path, symbol string, ok bool) {
	i := strings.LastIndex(name, ":")
	if i < 0 {
		return "", "", false
	}
	path, symbol = name[:i], name[i+1:]
	if symbol == "" || !strings.HasSuffix(path, ".so") {
		return "", "", false
	}
	return path, symbol, true
}

func loadFactory(path, symbol string, open func(string) (symbolLookup, error)) (f Factory, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &ModuleLoadError{Path: path, Err: panicError(p)}
		}
	}()

	lookup, err := open(path)
	if err != nil {
		return nil, &ModuleLoadError{Path: path, Err: err}
	}
	sym, err := lookup.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	switch sym := sym.(type) {
	case func(string, string) (Backend, error):
		return sym, nil
	case *Factory:
		if *sym != nil {
			return *sym, nil
		}
	}
	return nil, fmt.Errorf("%s has type %T, expected func(string, string) (mite.Backend, error)", symbol, sym)
}
