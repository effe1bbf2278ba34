package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"GoAnalysis/internal/analysis"
	"GoAnalysis/internal/compiler"
	"GoAnalysis/internal/index"
	"GoAnalysis/internal/indexing"
	"GoAnalysis/internal/pipeline"
)

// SampleConfig is an analyzer configuration covering every builtin component.
const SampleConfig = `{
	"en_text": {
		"tokenizer": {"name": "simple"},
		"filters": [
			{"name": "remove_long", "args": {"length_limit": 40}},
			{"name": "lower_case"},
			{"name": "ascii_folding"},
			{"name": "stop_word", "args": {"words": ["a", "an", "and", "the", "to", "is", "of", "for", "with", "by", "used"]}},
			{"name": "stemming", "args": {"stemmer_algorithm": "english"}}
		]
	},
	"keyword": {"tokenizer": {"name": "raw"}},
	"autocomplete": {
		"tokenizer": {"name": "ngram", "args": {"min_gram": 1, "max_gram": 4, "prefix_only": true}},
		"filters": [{"name": "lower_case"}]
	},
	"code": {
		"tokenizer": {"name": "simple"},
		"filters": [{"name": "alpha_num_only"}, {"name": "lower_case"}]
	},
	"path": {"tokenizer": {"name": "facet"}}
}`

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewRegistry compiles SampleConfig into a fresh registry.
func NewRegistry(t testing.TB) *analysis.Registry {
	t.Helper()
	return RegistryFromConfig(t, SampleConfig)
}

// RegistryFromConfig compiles a JSON analyzer configuration into a fresh
// registry using the builtin catalog.
func RegistryFromConfig(t testing.TB, config string) *analysis.Registry {
	t.Helper()
	reg := analysis.NewRegistry()
	c := compiler.New(analysis.NewCatalog(), compiler.Options{Logger: DiscardLogger()})
	if err := c.InitFromBytes(reg, []byte(config), pipeline.FormatJSON); err != nil {
		t.Fatalf("InitFromBytes: %v", err)
	}
	return reg
}

// WriteConfig writes an analyzer configuration file into a temporary
// directory and returns its path.
func WriteConfig(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// BasicSchema returns a schema suitable for most tests. Its analyzers all
// exist in SampleConfig.
func BasicSchema() *index.Schema {
	return &index.Schema{
		Version:         1,
		DefaultAnalyzer: "en_text",
		Fields: []index.FieldDef{
			{Name: "id", Type: index.FieldTypeKeyword, Stored: true, Indexed: true},
			{Name: "title", Type: index.FieldTypeText, Stored: true, Indexed: true, Positions: true},
			{Name: "body", Type: index.FieldTypeText, Stored: false, Indexed: true, Positions: true},
			{Name: "suggest", Type: index.FieldTypeText, Analyzer: "autocomplete", Stored: false, Indexed: true},
			{Name: "category", Type: index.FieldTypeText, Analyzer: "path", Stored: true, Indexed: true},
			{Name: "tags", Type: index.FieldTypeKeyword, Stored: true, Indexed: true, MultiValued: true},
			{Name: "metadata", Type: index.FieldTypeStoredOnly, Stored: true, Indexed: false},
		},
	}
}

// SampleDocuments returns a small set of test documents.
func SampleDocuments() []indexing.Document {
	return []indexing.Document{
		{Fields: map[string]interface{}{
			"id":       "doc-1",
			"title":    "Introduction to Search Engines",
			"body":     "Full-text search is a technique for searching documents",
			"suggest":  "Search",
			"category": "guides/search",
			"tags":     []interface{}{"search", "tutorial"},
		}},
		{Fields: map[string]interface{}{
			"id":       "doc-2",
			"title":    "Advanced Query Processing",
			"body":     "Boolean queries combine multiple search terms using AND OR operators",
			"suggest":  "Query",
			"category": "guides/query",
			"tags":     []interface{}{"search", "advanced"},
		}},
		{Fields: map[string]interface{}{
			"id":       "doc-3",
			"title":    "Building an Inverted Index",
			"body":     "An inverted index maps terms to the documents containing them",
			"suggest":  "Index",
			"category": "internals/index",
			"tags":     []interface{}{"indexing", "tutorial"},
		}},
		{Fields: map[string]interface{}{
			"id":       "doc-4",
			"title":    "Café Analyzers for Naïve Readers",
			"body":     "Analyzers fold accents and stem words before indexing",
			"suggest":  "Analyzer",
			"category": "guides/analysis",
			"tags":     []interface{}{"analysis"},
		}},
		{Fields: map[string]interface{}{
			"id":       "doc-5",
			"title":    "Fuzzy Search with Levenshtein Automata",
			"body":     "Fuzzy search finds terms within an edit distance of the query term",
			"suggest":  "Fuzzy",
			"category": "internals/query",
			"tags":     []interface{}{"search", "fuzzy"},
		}},
	}
}

// IngestDocuments indexes a set of documents into a writer.
func IngestDocuments(t testing.TB, w *indexing.Writer, docs []indexing.Document) {
	t.Helper()
	for _, doc := range docs {
		if err := w.AddDocument(doc); err != nil {
			t.Fatalf("AddDocument(%v): %v", doc.Fields["id"], err)
		}
	}
}

// CreatePopulatedWriter creates a writer over BasicSchema with sample
// documents already ingested.
func CreatePopulatedWriter(t testing.TB) *indexing.Writer {
	t.Helper()
	w, err := indexing.NewWriter(BasicSchema(), NewRegistry(t), indexing.DefaultLimits())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	IngestDocuments(t, w, SampleDocuments())
	return w
}

// Terms returns the terms of tokens in order.
func Terms(tokens []analysis.Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Term
	}
	return out
}
