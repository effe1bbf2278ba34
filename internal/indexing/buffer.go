package indexing

import (
	"errors"
	"fmt"
)

// Default limits of one in-memory index.
const (
	DefaultMemoryLimit = 64 * 1024 * 1024 // 64MB
	DefaultMaxDocs     = 100_000
)

var (
	ErrIndexFull        = errors.New("index is full")
	ErrDuplicateDoc     = errors.New("duplicate document id")
	ErrDocumentNotFound = errors.New("document not found")
	ErrUnknownField     = errors.New("unknown field")
	ErrNotTextField     = errors.New("field is not a text field")
	ErrWriterNotActive  = errors.New("writer is not active")
)

// Limits bound what one index accepts. Zero fields take the defaults.
type Limits struct {
	// MaxDocs caps the number of live documents.
	MaxDocs int `json:"max_docs"`

	// MemoryLimit caps the approximate bytes held by postings and stored
	// values. Deleted documents keep their postings, so they still count.
	MemoryLimit int64 `json:"memory_limit"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxDocs: DefaultMaxDocs, MemoryLimit: DefaultMemoryLimit}
}

func (l Limits) withDefaults() Limits {
	if l.MaxDocs <= 0 {
		l.MaxDocs = DefaultMaxDocs
	}
	if l.MemoryLimit <= 0 {
		l.MemoryLimit = DefaultMemoryLimit
	}
	return l
}

// PostingEntry represents a single posting for a term in a field.
type PostingEntry struct {
	DocID     uint32
	Freq      uint32
	Positions []uint32
}

// PostingsList holds the postings of one term in one field, in doc ID order.
type PostingsList struct {
	Entries []PostingEntry
}

// WriteBuffer is the in-memory store behind a Writer: an inverted index per
// field plus the stored values of every live document. It is not safe for
// concurrent use; the Writer serializes access.
//
// Internal doc IDs are never reused. Deleting a document tombstones its ID
// and frees its external ID, so the same external ID can be added again and
// gets a fresh internal ID.
type WriteBuffer struct {
	// InvertedIndex maps field -> term -> postings.
	InvertedIndex map[string]map[string]*PostingsList

	// StoredFields maps docID -> field -> value, for live documents only.
	StoredFields map[uint32]map[string][]byte

	// ExternalToInternal maps the external IDs of live documents.
	ExternalToInternal map[string]uint32

	// ExternalIDs maps every allocated internal ID back to its external ID.
	ExternalIDs []string

	// Deleted holds tombstoned internal IDs.
	Deleted map[uint32]bool

	DocCount  int
	TermCount int

	memoryUsed int64
	limits     Limits
}

// NewWriteBuffer creates an empty buffer bounded by limits.
func NewWriteBuffer(limits Limits) *WriteBuffer {
	return &WriteBuffer{
		InvertedIndex:      make(map[string]map[string]*PostingsList),
		StoredFields:       make(map[uint32]map[string][]byte),
		ExternalToInternal: make(map[string]uint32),
		Deleted:            make(map[uint32]bool),
		limits:             limits.withDefaults(),
	}
}

// AddPosting adds a posting entry for the given field and term.
func (b *WriteBuffer) AddPosting(field, term string, docID uint32, freq uint32, positions []uint32) {
	fieldMap, ok := b.InvertedIndex[field]
	if !ok {
		fieldMap = make(map[string]*PostingsList)
		b.InvertedIndex[field] = fieldMap
	}

	pl, ok := fieldMap[term]
	if !ok {
		pl = &PostingsList{}
		fieldMap[term] = pl
		b.TermCount++
		b.memoryUsed += int64(len(term))
	}

	pl.Entries = append(pl.Entries, PostingEntry{
		DocID:     docID,
		Freq:      freq,
		Positions: positions,
	})
	b.memoryUsed += int64(16 + len(positions)*4)
}

// StoreField stores a field value for a document.
func (b *WriteBuffer) StoreField(docID uint32, field string, value []byte) {
	fields, ok := b.StoredFields[docID]
	if !ok {
		fields = make(map[string][]byte)
		b.StoredFields[docID] = fields
	}
	fields[field] = value
	b.memoryUsed += int64(len(value) + len(field))
}

// AllocateDocID assigns an internal doc ID for an external ID.
// Returns ErrDuplicateDoc if a live document already uses the external ID.
func (b *WriteBuffer) AllocateDocID(externalID string) (uint32, error) {
	if _, exists := b.ExternalToInternal[externalID]; exists {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateDoc, externalID)
	}

	docID := uint32(len(b.ExternalIDs))
	b.ExternalIDs = append(b.ExternalIDs, externalID)
	b.ExternalToInternal[externalID] = docID
	b.DocCount++
	return docID, nil
}

// Lookup returns the internal ID of a live document.
func (b *WriteBuffer) Lookup(externalID string) (uint32, bool) {
	docID, ok := b.ExternalToInternal[externalID]
	return docID, ok
}

// Reserve checks that n more documents fit within the limits.
func (b *WriteBuffer) Reserve(n int) error {
	if b.DocCount+n > b.limits.MaxDocs {
		return fmt.Errorf("%w: %d documents plus %d exceeds max %d", ErrIndexFull, b.DocCount, n, b.limits.MaxDocs)
	}
	if b.memoryUsed >= b.limits.MemoryLimit {
		return fmt.Errorf("%w: %d bytes used (max %d)", ErrIndexFull, b.memoryUsed, b.limits.MemoryLimit)
	}
	return nil
}

// Delete tombstones the live document with the given external ID and drops
// its stored values.
func (b *WriteBuffer) Delete(externalID string) error {
	docID, ok := b.ExternalToInternal[externalID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrDocumentNotFound, externalID)
	}

	for field, value := range b.StoredFields[docID] {
		b.memoryUsed -= int64(len(value) + len(field))
	}
	delete(b.StoredFields, docID)
	delete(b.ExternalToInternal, externalID)
	b.Deleted[docID] = true
	b.DocCount--
	return nil
}

// IsDeleted reports whether an internal doc ID has been tombstoned.
func (b *WriteBuffer) IsDeleted(docID uint32) bool {
	return b.Deleted[docID]
}

// MemoryUsed returns the approximate memory used by the buffer.
func (b *WriteBuffer) MemoryUsed() int64 {
	return b.memoryUsed
}

// Limits returns the limits the buffer enforces.
func (b *WriteBuffer) Limits() Limits {
	return b.limits
}
