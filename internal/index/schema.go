package index

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"GoAnalysis/internal/storage"
)

// Field type constants.
const (
	FieldTypeText       = "text"
	FieldTypeKeyword    = "keyword"
	FieldTypeStoredOnly = "stored_only"
)

// Schema limits.
const (
	MaxFieldsPerSchema = 256
	MaxFieldNameLength = 255
	MaxSchemaFileSize  = 1024 * 1024 // 1MB
)

// Reserved field names that cannot be used in user schemas.
var reservedFieldNames = map[string]bool{
	"_id":     true,
	"_score":  true,
	"_source": true,
}

var (
	ErrSchemaCorrupt          = errors.New("schema checksum verification failed")
	ErrSchemaFieldLimit       = errors.New("schema exceeds maximum field count")
	ErrSchemaReservedField    = errors.New("field name is reserved")
	ErrSchemaDuplicateField   = errors.New("duplicate field name")
	ErrSchemaInvalidType      = errors.New("invalid field type")
	ErrSchemaUnknownAnalyzer  = errors.New("analyzer is not registered")
	ErrSchemaFieldNameTooLong = errors.New("field name exceeds maximum length")
	ErrSchemaMissingAnalyzer  = errors.New("text field requires an analyzer")
)

var schemaJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// AnalyzerSet reports which analyzer names are available.
// *analysis.Registry satisfies it.
type AnalyzerSet interface {
	Has(name string) bool
}

// Schema describes the fields of an index and which analyzer each text field
// is run through.
type Schema struct {
	Version         uint32           `json:"version"`
	Fields          []FieldDef       `json:"fields"`
	DefaultAnalyzer string           `json:"default_analyzer,omitempty"`
	Checksum        storage.Checksum `json:"checksum,omitempty"`
}

// FieldDef defines a single field in the schema.
type FieldDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Analyzer    string `json:"analyzer,omitempty"`
	Stored      bool   `json:"stored"`
	Indexed     bool   `json:"indexed"`
	Positions   bool   `json:"positions,omitempty"`
	MultiValued bool   `json:"multi_valued,omitempty"`
}

// FieldID returns the index of the field with the given name.
// Returns -1 if not found.
func (s *Schema) FieldID(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the definition of the named field.
func (s *Schema) Field(name string) (FieldDef, bool) {
	if id := s.FieldID(name); id >= 0 {
		return s.Fields[id], true
	}
	return FieldDef{}, false
}

// AnalyzerFor returns the analyzer a text field is analyzed with: its own, or
// the schema default.
func (s *Schema) AnalyzerFor(f FieldDef) string {
	if f.Analyzer != "" {
		return f.Analyzer
	}
	return s.DefaultAnalyzer
}

// Validate checks the schema for correctness. Every analyzer the schema names
// must be present in analyzers.
func (s *Schema) Validate(analyzers AnalyzerSet) error {
	if len(s.Fields) > MaxFieldsPerSchema {
		return fmt.Errorf("%w: %d fields (max %d)", ErrSchemaFieldLimit, len(s.Fields), MaxFieldsPerSchema)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if reservedFieldNames[f.Name] {
			return fmt.Errorf("%w: %q", ErrSchemaReservedField, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: %q", ErrSchemaDuplicateField, f.Name)
		}
		seen[f.Name] = true

		if len(f.Name) > MaxFieldNameLength {
			return fmt.Errorf("%w: %q (%d bytes, max %d)", ErrSchemaFieldNameTooLong, f.Name, len(f.Name), MaxFieldNameLength)
		}
		if err := validateFieldType(f.Type); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		if f.Analyzer != "" && f.Type != FieldTypeText {
			return fmt.Errorf("field %q: analyzer only allowed on text fields", f.Name)
		}
		if f.Type == FieldTypeText {
			name := s.AnalyzerFor(f)
			if name == "" {
				return fmt.Errorf("field %q: %w", f.Name, ErrSchemaMissingAnalyzer)
			}
			if !analyzers.Has(name) {
				return fmt.Errorf("field %q: %w: %q", f.Name, ErrSchemaUnknownAnalyzer, name)
			}
		}
		if f.Positions && f.Type != FieldTypeText {
			return fmt.Errorf("field %q: positions only allowed on text fields", f.Name)
		}
		if f.Type == FieldTypeStoredOnly {
			if f.Indexed {
				return fmt.Errorf("field %q: stored_only fields cannot be indexed", f.Name)
			}
			if !f.Stored {
				return fmt.Errorf("field %q: stored_only fields must be stored", f.Name)
			}
		}
	}

	if s.DefaultAnalyzer != "" && !analyzers.Has(s.DefaultAnalyzer) {
		return fmt.Errorf("default_analyzer: %w: %q", ErrSchemaUnknownAnalyzer, s.DefaultAnalyzer)
	}

	return nil
}

// MarshalSchema serializes a schema to JSON and computes its checksum.
func MarshalSchema(s *Schema) ([]byte, error) {
	checksum, err := computeSchemaChecksum(s)
	if err != nil {
		return nil, fmt.Errorf("compute schema checksum: %w", err)
	}
	s.Checksum = checksum

	data, err := schemaJSON.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

// UnmarshalSchema deserializes a schema from JSON. When the document carries
// a checksum it must match the content.
func UnmarshalSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := schemaJSON.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	if s.Checksum == "" {
		return &s, nil
	}

	savedChecksum := s.Checksum
	computed, err := computeSchemaChecksum(&s)
	if err != nil {
		return nil, fmt.Errorf("compute schema checksum for verification: %w", err)
	}
	if computed != savedChecksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrSchemaCorrupt, savedChecksum, computed)
	}

	return &s, nil
}

// LoadSchema reads a schema file and validates it against analyzers.
func LoadSchema(path string, analyzers AnalyzerSet) (*Schema, error) {
	data, err := storage.ReadFile(path, MaxSchemaFileSize)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	s, err := UnmarshalSchema(data)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(analyzers); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

func computeSchemaChecksum(s *Schema) (storage.Checksum, error) {
	saved := s.Checksum
	s.Checksum = ""
	defer func() { s.Checksum = saved }()

	data, err := schemaJSON.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal for checksum: %w", err)
	}
	return storage.ComputeChecksum(data), nil
}

func validateFieldType(t string) error {
	switch t {
	case FieldTypeText, FieldTypeKeyword, FieldTypeStoredOnly:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrSchemaInvalidType, t)
	}
}
