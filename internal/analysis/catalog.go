package analysis

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownComponent   = errors.New("unknown component kind")
	ErrComponentKindTaken = errors.New("component kind already registered")
)

// Args is the raw JSON text of a component's "args" value. A nil Args means
// the component should use its defaults.
type Args []byte

// TokenizerFactory builds a Tokenizer from its arguments.
type TokenizerFactory interface {
	NewTokenizer(args Args) (Tokenizer, error)
}

// FilterFactory builds a Filter from its arguments.
type FilterFactory interface {
	NewFilter(args Args) (Filter, error)
}

// TokenizerFactoryFunc adapts a function to TokenizerFactory.
type TokenizerFactoryFunc func(args Args) (Tokenizer, error)

func (f TokenizerFactoryFunc) NewTokenizer(args Args) (Tokenizer, error) { return f(args) }

// FilterFactoryFunc adapts a function to FilterFactory.
type FilterFactoryFunc func(args Args) (Filter, error)

func (f FilterFactoryFunc) NewFilter(args Args) (Filter, error) { return f(args) }

// Catalog maps component kind names to factories. A Catalog is populated
// during process setup and is read-only afterwards, so it takes no locks.
type Catalog struct {
	tokenizers map[string]TokenizerFactory
	filters    map[string]FilterFactory
}

// NewCatalog returns a Catalog holding every built-in tokenizer and filter.
func NewCatalog() *Catalog {
	c := NewEmptyCatalog()
	for kind, f := range builtinTokenizers() {
		c.tokenizers[kind] = f
	}
	for kind, f := range builtinFilters() {
		c.filters[kind] = f
	}
	return c
}

// NewEmptyCatalog returns a Catalog with no registered kinds.
func NewEmptyCatalog() *Catalog {
	return &Catalog{
		tokenizers: make(map[string]TokenizerFactory),
		filters:    make(map[string]FilterFactory),
	}
}

// RegisterTokenizer adds a tokenizer kind.
func (c *Catalog) RegisterTokenizer(kind string, f TokenizerFactory) error {
	if _, exists := c.tokenizers[kind]; exists {
		return fmt.Errorf("%w: tokenizer %q", ErrComponentKindTaken, kind)
	}
	c.tokenizers[kind] = f
	return nil
}

// RegisterFilter adds a filter kind.
func (c *Catalog) RegisterFilter(kind string, f FilterFactory) error {
	if _, exists := c.filters[kind]; exists {
		return fmt.Errorf("%w: filter %q", ErrComponentKindTaken, kind)
	}
	c.filters[kind] = f
	return nil
}

// ResolveTokenizer returns the factory registered for a tokenizer kind.
func (c *Catalog) ResolveTokenizer(kind string) (TokenizerFactory, error) {
	f, ok := c.tokenizers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: tokenizer %q", ErrUnknownComponent, kind)
	}
	return f, nil
}

// ResolveFilter returns the factory registered for a filter kind.
func (c *Catalog) ResolveFilter(kind string) (FilterFactory, error) {
	f, ok := c.filters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: filter %q", ErrUnknownComponent, kind)
	}
	return f, nil
}

// TokenizerKinds returns the registered tokenizer kinds, sorted.
func (c *Catalog) TokenizerKinds() []string {
	return sortedKeys(c.tokenizers)
}

// FilterKinds returns the registered filter kinds, sorted.
func (c *Catalog) FilterKinds() []string {
	return sortedKeys(c.filters)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
