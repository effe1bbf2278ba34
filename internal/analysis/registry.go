package analysis

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrAnalyzerNotFound  = errors.New("analyzer not found")
	ErrAnalyzerExists    = errors.New("analyzer already registered")
	ErrEmptyAnalyzerName = errors.New("analyzer name is empty")
)

// Entry is a named analyzer waiting to be registered.
type Entry struct {
	Name     string
	Analyzer Analyzer
}

// Registry manages analyzer instances by name.
// Entries are added during initialization and only looked up afterwards.
type Registry struct {
	analyzers map[string]Analyzer
	order     []string
	mu        sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		analyzers: make(map[string]Analyzer),
	}
}

// Get returns the analyzer registered under the given name.
func (r *Registry) Get(name string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAnalyzerNotFound, name)
	}
	return a, nil
}

// Has reports whether an analyzer is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.analyzers[name]
	return ok
}

// Register adds an analyzer to the registry.
func (r *Registry) Register(name string, a Analyzer) error {
	return r.RegisterAll([]Entry{{Name: name, Analyzer: a}})
}

// RegisterAll adds every entry or none of them. Names must be non-empty and
// unique, both among the entries and against what is already registered.
func (r *Registry) RegisterAll(entries []Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return ErrEmptyAnalyzerName
		}
		if _, exists := r.analyzers[e.Name]; exists || seen[e.Name] {
			return fmt.Errorf("%w: %q", ErrAnalyzerExists, e.Name)
		}
		seen[e.Name] = true
	}

	for _, e := range entries {
		r.analyzers[e.Name] = e.Analyzer
		r.order = append(r.order, e.Name)
	}
	return nil
}

// Names returns the names of all registered analyzers in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered analyzers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.analyzers)
}
