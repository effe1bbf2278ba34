package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"GoAnalysis/internal/analysis"
	"GoAnalysis/internal/index"
	"GoAnalysis/internal/indexing"
)

var (
	ErrIndexNotFound = errors.New("index not found")
	ErrIndexExists   = errors.New("index already exists")
	ErrEmptyName     = errors.New("index name is required")
)

// IndexInstance holds all runtime state for a single in-memory index.
type IndexInstance struct {
	Name   string
	Schema *index.Schema

	writer *indexing.Writer
	logger *slog.Logger
}

// IndexManager manages in-memory indexes whose text fields are analyzed by
// analyzers from a shared registry.
type IndexManager struct {
	registry *analysis.Registry
	limits   indexing.Limits
	logger   *slog.Logger

	mu      sync.RWMutex
	indexes map[string]*IndexInstance
}

// NewIndexManager creates an IndexManager that resolves analyzers from
// registry. Every index it creates is bounded by limits.
func NewIndexManager(registry *analysis.Registry, limits indexing.Limits, logger *slog.Logger) *IndexManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexManager{
		registry: registry,
		limits:   limits,
		logger:   logger,
		indexes:  make(map[string]*IndexInstance),
	}
}

// CreateIndex creates a new index with the given schema. The schema may only
// name registered analyzers.
func (m *IndexManager) CreateIndex(name string, schema *index.Schema) error {
	if name == "" {
		return ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indexes[name]; exists {
		return fmt.Errorf("%w: %q", ErrIndexExists, name)
	}

	if schema.Version == 0 {
		schema.Version = 1
	}
	w, err := indexing.NewWriter(schema, m.registry, m.limits)
	if err != nil {
		return err
	}

	m.indexes[name] = &IndexInstance{
		Name:   name,
		Schema: schema,
		writer: w,
		logger: m.logger.With("index", name),
	}
	m.logger.Info("index created", "name", name, "fields", len(schema.Fields))
	return nil
}

// DeleteIndex removes an index and all its documents.
func (m *IndexManager) DeleteIndex(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, exists := m.indexes[name]
	if !exists {
		return fmt.Errorf("%w: %q", ErrIndexNotFound, name)
	}
	inst.writer.Release()

	delete(m.indexes, name)
	m.logger.Info("index deleted", "name", name)
	return nil
}

// GetIndex returns the IndexInstance for the given name.
func (m *IndexManager) GetIndex(name string) (*IndexInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, exists := m.indexes[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrIndexNotFound, name)
	}
	return inst, nil
}

// ListIndexes returns the names of all indexes, sorted.
func (m *IndexManager) ListIndexes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.indexes))
	for name := range m.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IngestDocuments adds documents to the index.
func (inst *IndexInstance) IngestDocuments(docs []indexing.Document) error {
	if err := inst.writer.AddDocuments(docs); err != nil {
		return err
	}
	inst.logger.Debug("documents ingested", "count", len(docs), "live_docs", inst.writer.DocCount())
	return nil
}

// DeleteDocument hides a document from matching. Unknown IDs return
// indexing.ErrDocumentNotFound.
func (inst *IndexInstance) DeleteDocument(id string) error {
	return inst.writer.DeleteDocument(id)
}

// Match runs query through the analyzer of field and returns matching
// documents.
func (inst *IndexInstance) Match(field, query string) ([]indexing.Hit, error) {
	return inst.writer.Match(field, query)
}

// StoredFields returns the stored values of a document by external ID.
func (inst *IndexInstance) StoredFields(id string) (map[string]string, bool) {
	return inst.writer.StoredFields(id)
}

// IndexInfo returns summary information about an index.
func (inst *IndexInstance) IndexInfo() map[string]interface{} {
	analyzers := make(map[string]string)
	for _, f := range inst.Schema.Fields {
		if f.Type == index.FieldTypeText {
			analyzers[f.Name] = inst.Schema.AnalyzerFor(f)
		}
	}

	return map[string]interface{}{
		"name":           inst.Name,
		"schema_version": inst.Schema.Version,
		"fields":         len(inst.Schema.Fields),
		"analyzers":      analyzers,
		"stats":          inst.writer.Stats(),
	}
}
