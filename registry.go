package mite

import (
	"context"
	"strings"
	"sync"
)

// Backend is the capability every database integration must provide: it
// opens (creating when needed) its migrations tracking store.
type Backend interface {
	Create(ctx context.Context) (TrackingStore, error)
}

// Factory constructs a Backend from the configured connection string and
// the migrations working directory.
type Factory func(connectionString, workingDirectory string) (Backend, error)

// SourceBuiltin is the Candidate.Source of backends registered from Go code
// compiled into the binary.
const SourceBuiltin = "builtin"

// Candidate is a backend which may be selected by name.
type Candidate struct {
	// Name is the short name matched against repositoryName.
	Name string

	// QualifiedName is the package path qualified name, for example
	// "github.com/adlio/mite.Postgres".
	QualifiedName string

	// Source is SourceBuiltin or the path of the plugin module which
	// registered the candidate.
	Source string

	New Factory
}

// Registry is an ordered catalog of backend candidates. Duplicate names are
// kept; lookups return the first one registered.
type Registry struct {
	mu         sync.RWMutex
	source     string
	candidates []Candidate
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{source: SourceBuiltin}
}

// DefaultRegistry holds the backends registered with Register. The SQL
// backends in this package add themselves to it.
var DefaultRegistry = NewRegistry()

// Register adds a backend Factory to the DefaultRegistry.
func Register(qualifiedName string, f Factory) {
	DefaultRegistry.Register(qualifiedName, f)
}

// Register adds a backend Factory under its qualified name. Blank names and
// nil factories are ignored.
func (r *Registry) Register(qualifiedName string, f Factory) {
	qualifiedName = strings.TrimSpace(qualifiedName)
	if qualifiedName == "" || f == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = append(r.candidates, Candidate{
		Name:          ShortName(qualifiedName),
		QualifiedName: qualifiedName,
		Source:        r.source,
		New:           f,
	})
}

// Candidates returns a snapshot of the registered candidates in
// registration order.
func (r *Registry) Candidates() []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// Len returns the number of registered candidates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.candidates)
}

// ShortName strips the package path from a qualified name:
// "github.com/acme/backends.Oracle" becomes "Oracle". The type name follows
// the final dot, so dotted paths like "gopkg.in/acme.v2.Oracle" work too.
// Names without a package qualifier are returned unchanged.
func ShortName(qualifiedName string) string {
	last := qualifiedName[strings.LastIndex(qualifiedName, "/")+1:]
	if i := strings.LastIndex(last, "."); i >= 0 {
		return last[i+1:]
	}
	return last
}
