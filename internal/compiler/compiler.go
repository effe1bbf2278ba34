// Package compiler turns analyzer specs into pipelines and publishes them in
// an analysis.Registry.
package compiler

import (
	"fmt"
	"log/slog"

	"GoAnalysis/internal/analysis"
	"GoAnalysis/internal/pipeline"
	"GoAnalysis/internal/storage"
)

// Options configures a Compiler.
type Options struct {
	// MaxConfigSize bounds configuration files read by InitFromFile.
	MaxConfigSize int64

	// Logger for compilation events. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxConfigSize: storage.MaxConfigSize,
	}
}

// Compiler resolves component kinds against a catalog and chains the
// resulting components in declared order.
type Compiler struct {
	catalog *analysis.Catalog
	opts    Options
	logger  *slog.Logger
}

// New creates a Compiler backed by the given catalog.
func New(catalog *analysis.Catalog, opts Options) *Compiler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxConfigSize <= 0 {
		opts.MaxConfigSize = storage.MaxConfigSize
	}
	return &Compiler{
		catalog: catalog,
		opts:    opts,
		logger:  logger.With("component", "compiler"),
	}
}

// Compile builds the pipeline for one spec. The tokenizer is built first,
// then each filter in order; the first failure aborts.
func (c *Compiler) Compile(spec pipeline.Spec) (*analysis.Pipeline, error) {
	where := fmt.Sprintf("analyzer %q", spec.Name)

	tf, err := c.catalog.ResolveTokenizer(spec.Tokenizer.Kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	tokenizer, err := tf.NewTokenizer(analysis.Args(spec.Tokenizer.Args))
	if err != nil {
		return nil, fmt.Errorf("%s: tokenizer %q: %w", where, spec.Tokenizer.Kind, err)
	}
	c.logger.Debug("tokenizer built",
		"analyzer", spec.Name,
		"tokenizer", spec.Tokenizer.Kind,
		"args", string(spec.Tokenizer.Args),
	)

	filters := make([]analysis.Stage[analysis.Filter], 0, len(spec.Filters))
	for i, ref := range spec.Filters {
		ff, err := c.catalog.ResolveFilter(ref.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s: filter[%d]: %w", where, i, err)
		}
		filter, err := ff.NewFilter(analysis.Args(ref.Args))
		if err != nil {
			return nil, fmt.Errorf("%s: filter[%d] %q: %w", where, i, ref.Kind, err)
		}
		c.logger.Debug("filter built",
			"analyzer", spec.Name,
			"index", i,
			"filter", ref.Kind,
			"args", string(ref.Args),
		)
		filters = append(filters, analysis.Stage[analysis.Filter]{Kind: ref.Kind, Component: filter})
	}

	return analysis.NewPipeline(
		spec.Name,
		analysis.Stage[analysis.Tokenizer]{Kind: spec.Tokenizer.Kind, Component: tokenizer},
		filters...,
	), nil
}

// Init compiles every spec in doc and registers the results. Either all
// analyzers are registered or, on the first error, none are.
func (c *Compiler) Init(registry *analysis.Registry, doc *pipeline.Document) error {
	entries := make([]analysis.Entry, 0, len(doc.Specs))
	for _, spec := range doc.Specs {
		p, err := c.Compile(spec)
		if err != nil {
			c.logger.Error("analyzer compilation failed", "analyzer", spec.Name, "error", err)
			return err
		}
		entries = append(entries, analysis.Entry{Name: spec.Name, Analyzer: p})
	}

	if err := registry.RegisterAll(entries); err != nil {
		return fmt.Errorf("register analyzers: %w", err)
	}

	c.logger.Info("analyzers initialized",
		"count", len(entries),
		"names", doc.Names(),
	)
	return nil
}

// InitFromBytes parses a configuration document and initializes registry
// from it.
func (c *Compiler) InitFromBytes(registry *analysis.Registry, data []byte, format pipeline.Format) error {
	checksum := storage.ComputeChecksum(data)
	doc, err := pipeline.Parse(data, format)
	if err != nil {
		c.logger.Error("analyzer configuration rejected",
			"format", format,
			"checksum", checksum.Short(),
			"error", err,
		)
		return err
	}
	c.logger.Debug("analyzer configuration parsed",
		"format", format,
		"checksum", checksum.Short(),
		"analyzers", len(doc.Specs),
	)
	return c.Init(registry, doc)
}

// InitFromFile reads a JSON or YAML file, chosen by extension, and
// initializes registry from it.
func (c *Compiler) InitFromFile(registry *analysis.Registry, path string) error {
	format, err := pipeline.FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := storage.ReadFile(path, c.opts.MaxConfigSize)
	if err != nil {
		return fmt.Errorf("read analyzer configuration: %w", err)
	}
	c.logger.Info("analyzer configuration loaded",
		"path", path,
		"size_bytes", len(data),
		"checksum", storage.ComputeChecksum(data).Short(),
	)
	return c.InitFromBytes(registry, data, format)
}
