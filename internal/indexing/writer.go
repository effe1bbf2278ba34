package indexing

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"GoAnalysis/internal/analysis"
	"GoAnalysis/internal/index"
)

// Document represents a JSON document to be indexed.
type Document struct {
	Fields map[string]interface{}
}

// Hit is a document matched by Match.
type Hit struct {
	ID string `json:"id"`

	// Terms is the number of distinct query terms found in the field.
	Terms int `json:"terms"`
}

// Writer is the exclusive writer for a single index.
// Only one Writer may be active per index at any time.
//
// Text fields are analyzed with the analyzer the schema names for them, and
// Match runs query text through that same analyzer, so both sides of a
// lookup see identical terms.
type Writer struct {
	schema    *index.Schema
	analyzers map[string]analysis.Analyzer

	mu     sync.Mutex
	buffer *WriteBuffer
	active bool
}

// NewWriter creates a new Writer for the given schema, resolving every text
// field's analyzer from registry up front. Zero fields of limits take the
// defaults.
func NewWriter(schema *index.Schema, registry *analysis.Registry, limits Limits) (*Writer, error) {
	if err := schema.Validate(registry); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	analyzers := make(map[string]analysis.Analyzer)
	for _, f := range schema.Fields {
		if f.Type != index.FieldTypeText {
			continue
		}
		a, err := registry.Get(schema.AnalyzerFor(f))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		analyzers[f.Name] = a
	}

	return &Writer{
		schema:    schema,
		analyzers: analyzers,
		buffer:    NewWriteBuffer(limits),
		active:    true,
	}, nil
}

// pendingDoc is a document that passed validation and analysis but is not
// in the buffer yet.
type pendingDoc struct {
	externalID string
	postings   []pendingPosting
	stored     []storedValue
}

type pendingPosting struct {
	field     string
	term      string
	freq      uint32
	positions []uint32
}

type storedValue struct {
	field string
	data  []byte
}

// AddDocument validates, analyzes and indexes a single document. A document
// that fails any check leaves the index untouched.
func (w *Writer) AddDocument(doc Document) error {
	p, err := w.prepare(doc)
	if err != nil {
		return err
	}
	_, err = w.apply([]*pendingDoc{p})
	return err
}

// AddDocuments indexes docs as one batch: either all of them are added or,
// on the first failing document, none are.
func (w *Writer) AddDocuments(docs []Document) error {
	pending := make([]*pendingDoc, len(docs))
	for i, doc := range docs {
		p, err := w.prepare(doc)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		pending[i] = p
	}
	if i, err := w.apply(pending); err != nil {
		if i < 0 {
			return err
		}
		return fmt.Errorf("document %d: %w", i, err)
	}
	return nil
}

// prepare checks every field of doc against the schema and analyzes its text
// fields. It touches no shared state beyond the immutable analyzers.
func (w *Writer) prepare(doc Document) (*pendingDoc, error) {
	externalID, err := extractExternalID(doc)
	if err != nil {
		return nil, err
	}

	p := &pendingDoc{externalID: externalID}
	for _, fieldDef := range w.schema.Fields {
		val, exists := doc.Fields[fieldDef.Name]
		if !exists {
			continue
		}

		switch fieldDef.Type {
		case index.FieldTypeText:
			if err := w.prepareTextField(p, fieldDef, val); err != nil {
				return nil, err
			}
		case index.FieldTypeKeyword:
			if err := prepareKeywordField(p, fieldDef, val); err != nil {
				return nil, err
			}
		case index.FieldTypeStoredOnly:
			// Store only, no indexing.
		}

		if fieldDef.Stored {
			data, err := marshalFieldValue(val)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", fieldDef.Name, err)
			}
			p.stored = append(p.stored, storedValue{field: fieldDef.Name, data: data})
		}
	}
	return p, nil
}

// apply writes prepared documents into the buffer after checking the limits
// and every external ID. On error it returns the index of the offending
// document, or -1 when the batch as a whole was refused.
func (w *Writer) apply(docs []*pendingDoc) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return -1, ErrWriterNotActive
	}
	if err := w.buffer.Reserve(len(docs)); err != nil {
		return -1, err
	}

	seen := make(map[string]bool, len(docs))
	for i, p := range docs {
		if _, live := w.buffer.Lookup(p.externalID); live || seen[p.externalID] {
			return i, fmt.Errorf("%w: %q", ErrDuplicateDoc, p.externalID)
		}
		seen[p.externalID] = true
	}

	for _, p := range docs {
		docID, err := w.buffer.AllocateDocID(p.externalID)
		if err != nil {
			// Unreachable: IDs were checked under the same lock.
			return -1, err
		}
		for _, posting := range p.postings {
			w.buffer.AddPosting(posting.field, posting.term, docID, posting.freq, posting.positions)
		}
		for _, sv := range p.stored {
			w.buffer.StoreField(docID, sv.field, sv.data)
		}
	}
	return -1, nil
}

// DeleteDocument removes a live document by external ID. It no longer
// matches and its stored fields are gone; the ID may be added again.
// Unknown IDs fail with ErrDocumentNotFound.
func (w *Writer) DeleteDocument(externalID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return ErrWriterNotActive
	}
	return w.buffer.Delete(externalID)
}

// Match analyzes query with the analyzer of the given text field and returns
// the documents containing at least one resulting term. Hits are ordered by
// the number of distinct matching terms, then by insertion order.
func (w *Writer) Match(field, query string) ([]Hit, error) {
	analyzer, err := w.fieldAnalyzer(field)
	if err != nil {
		return nil, err
	}
	terms := uniqueTerms(analyzer.Analyze(query))

	w.mu.Lock()
	defer w.mu.Unlock()

	postings := w.buffer.InvertedIndex[field]
	counts := make(map[uint32]int)
	for _, term := range terms {
		pl, ok := postings[term]
		if !ok {
			continue
		}
		for _, e := range pl.Entries {
			if w.buffer.IsDeleted(e.DocID) {
				continue
			}
			counts[e.DocID]++
		}
	}

	docIDs := make([]uint32, 0, len(counts))
	for id := range counts {
		docIDs = append(docIDs, id)
	}
	sort.Slice(docIDs, func(i, j int) bool {
		if counts[docIDs[i]] != counts[docIDs[j]] {
			return counts[docIDs[i]] > counts[docIDs[j]]
		}
		return docIDs[i] < docIDs[j]
	})

	hits := make([]Hit, len(docIDs))
	for i, id := range docIDs {
		hits[i] = Hit{ID: w.buffer.ExternalIDs[id], Terms: counts[id]}
	}
	return hits, nil
}

// AnalyzeField returns the tokens a text field would index for text.
func (w *Writer) AnalyzeField(field, text string) ([]analysis.Token, error) {
	analyzer, err := w.fieldAnalyzer(field)
	if err != nil {
		return nil, err
	}
	return analyzer.Analyze(text), nil
}

// DocCount returns the number of live documents.
func (w *Writer) DocCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer.DocCount
}

// Stats summarizes the contents of an index.
type Stats struct {
	Docs        int    `json:"docs"`
	Terms       int    `json:"terms"`
	MemoryBytes int64  `json:"memory_bytes"`
	Limits      Limits `json:"limits"`
}

// Stats returns the current counters and limits.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Docs:        w.buffer.DocCount,
		Terms:       w.buffer.TermCount,
		MemoryBytes: w.buffer.MemoryUsed(),
		Limits:      w.buffer.Limits(),
	}
}

// StoredFields returns the stored values of a document by external ID.
func (w *Writer) StoredFields(externalID string) (map[string]string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	docID, ok := w.buffer.Lookup(externalID)
	if !ok {
		return nil, false
	}
	stored := w.buffer.StoredFields[docID]
	fields := make(map[string]string, len(stored))
	for k, v := range stored {
		fields[k] = string(v)
	}
	return fields, true
}

// Release deactivates the writer; later writes fail with ErrWriterNotActive.
func (w *Writer) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = false
}

func (w *Writer) fieldAnalyzer(field string) (analysis.Analyzer, error) {
	if a, ok := w.analyzers[field]; ok {
		return a, nil
	}
	if _, ok := w.schema.Field(field); ok {
		return nil, fmt.Errorf("%w: %q", ErrNotTextField, field)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

func (w *Writer) prepareTextField(p *pendingDoc, fieldDef index.FieldDef, val interface{}) error {
	text, ok := val.(string)
	if !ok {
		return fmt.Errorf("field %q: text field value must be a string", fieldDef.Name)
	}

	tokens := w.analyzers[fieldDef.Name].Analyze(text)

	// Term frequencies and positions, terms in first-seen order.
	var terms []string
	termFreqs := make(map[string]uint32)
	termPositions := make(map[string][]uint32)
	for _, tok := range tokens {
		if termFreqs[tok.Term] == 0 {
			terms = append(terms, tok.Term)
		}
		termFreqs[tok.Term]++
		if fieldDef.Positions {
			termPositions[tok.Term] = append(termPositions[tok.Term], uint32(tok.Position))
		}
	}

	for _, term := range terms {
		p.postings = append(p.postings, pendingPosting{
			field:     fieldDef.Name,
			term:      term,
			freq:      termFreqs[term],
			positions: termPositions[term],
		})
	}
	return nil
}

func prepareKeywordField(p *pendingDoc, fieldDef index.FieldDef, val interface{}) error {
	seen := make(map[string]bool)
	add := func(term string) {
		if seen[term] {
			return
		}
		seen[term] = true
		p.postings = append(p.postings, pendingPosting{field: fieldDef.Name, term: term, freq: 1})
	}

	switch v := val.(type) {
	case string:
		add(v)
	case []interface{}:
		if !fieldDef.MultiValued {
			return fmt.Errorf("field %q: field is not multi-valued but received array", fieldDef.Name)
		}
		for _, item := range v {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("field %q: keyword array values must be strings", fieldDef.Name)
			}
		}
		for _, item := range v {
			add(item.(string))
		}
	default:
		return fmt.Errorf("field %q: keyword field value must be a string or string array", fieldDef.Name)
	}
	return nil
}

func uniqueTerms(tokens []analysis.Token) []string {
	seen := make(map[string]bool, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t.Term] {
			seen[t.Term] = true
			terms = append(terms, t.Term)
		}
	}
	return terms
}

func extractExternalID(doc Document) (string, error) {
	idVal, ok := doc.Fields["id"]
	if !ok {
		return "", errors.New("document missing 'id' field")
	}
	id, ok := idVal.(string)
	if !ok {
		return "", errors.New("document 'id' must be a string")
	}
	return id, nil
}

func marshalFieldValue(val interface{}) ([]byte, error) {
	switch v := val.(type) {
	case string:
		return []byte(v), nil
	default:
		return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	}
}
