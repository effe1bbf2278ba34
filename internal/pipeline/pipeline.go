// Package pipeline holds the declarative analyzer configuration: an ordered
// set of named specs, each naming one tokenizer and an ordered filter chain.
//
// A document is an object of objects:
//
//	{
//	  "en_text": {
//	    "tokenizer": {"name": "simple"},
//	    "filters": [
//	      {"name": "lower_case"},
//	      {"name": "stop_word", "args": {"words": ["a", "the"]}}
//	    ]
//	  }
//	}
//
// The same shape is accepted as YAML. Component kinds are not checked here;
// that happens when a spec is compiled.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Document keys.
const (
	keyTokenizer = "tokenizer"
	keyFilters   = "filters"
	keyName      = "name"
	keyArgs      = "args"
)

var (
	ErrInvalidConfig     = errors.New("invalid analyzer configuration")
	ErrDuplicateAnalyzer = fmt.Errorf("%w: duplicate analyzer name", ErrInvalidConfig)
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
)

// ComponentRef names a catalog kind and carries its optional arguments.
type ComponentRef struct {
	Kind string

	// Args is the JSON encoding of the "args" value, or nil when absent.
	Args []byte
}

// Spec describes one analyzer.
type Spec struct {
	Name      string
	Tokenizer ComponentRef
	Filters   []ComponentRef
}

// Document is a parsed configuration. Specs are in declaration order and
// their names are unique.
type Document struct {
	Specs []Spec

	names map[string]bool
}

// Names returns the analyzer names in declaration order.
func (d *Document) Names() []string {
	names := make([]string, len(d.Specs))
	for i, s := range d.Specs {
		names[i] = s.Name
	}
	return names
}

func (d *Document) add(spec Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: analyzer name is empty", ErrInvalidConfig)
	}
	if d.names == nil {
		d.names = make(map[string]bool)
	}
	if d.names[spec.Name] {
		return fmt.Errorf("%w: %q", ErrDuplicateAnalyzer, spec.Name)
	}
	d.names[spec.Name] = true
	d.Specs = append(d.Specs, spec)
	return nil
}

// Format identifies the text format of a configuration document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Parse parses data in the given format.
func Parse(data []byte, format Format) (*Document, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(data)
	case FormatYAML:
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
