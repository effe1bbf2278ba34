package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// ParseJSON parses a JSON configuration document. Keys are visited in the
// order they appear, so declaration order survives and repeated analyzer
// names are caught.
func ParseJSON(data []byte) (*Document, error) {
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		return nil, fmt.Errorf("%w: malformed JSON: %v", ErrInvalidConfig, err)
	}

	w := &jsonWalker{iter: jsoniter.ParseBytes(jsoniter.ConfigCompatibleWithStandardLibrary, data)}
	doc := w.document()
	if w.err != nil {
		return nil, w.err
	}
	return doc, nil
}

type jsonWalker struct {
	iter *jsoniter.Iterator
	err  error
}

// fail records the first structural error and returns false so it can end a
// jsoniter callback.
func (w *jsonWalker) fail(format string, args ...any) bool {
	if w.err == nil {
		w.err = fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	return false
}

func (w *jsonWalker) document() *Document {
	doc := &Document{}
	if w.iter.WhatIsNext() != jsoniter.ObjectValue {
		w.fail("top-level value must be an object")
		return nil
	}
	w.iter.ReadObjectCB(func(_ *jsoniter.Iterator, name string) bool {
		spec, ok := w.spec(name)
		if !ok {
			return false
		}
		if err := doc.add(spec); err != nil {
			w.err = err
			return false
		}
		return true
	})
	w.checkIter("document")
	return doc
}

func (w *jsonWalker) spec(name string) (Spec, bool) {
	spec := Spec{Name: name}
	where := fmt.Sprintf("analyzer %q", name)
	if w.iter.WhatIsNext() != jsoniter.ObjectValue {
		return spec, w.fail("%s: value must be an object", where)
	}

	seen := make(map[string]bool, 2)
	w.iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		if seen[key] {
			return w.fail("%s: duplicate key %q", where, key)
		}
		seen[key] = true

		switch key {
		case keyTokenizer:
			ref, ok := w.component(where + ": tokenizer")
			spec.Tokenizer = ref
			return ok
		case keyFilters:
			return w.filters(where, &spec)
		default:
			return w.fail("%s: unknown key %q", where, key)
		}
	})
	if !w.checkIter(where) {
		return spec, false
	}
	if !seen[keyTokenizer] {
		return spec, w.fail("%s: missing tokenizer", where)
	}
	return spec, true
}

func (w *jsonWalker) filters(where string, spec *Spec) bool {
	if w.iter.WhatIsNext() != jsoniter.ArrayValue {
		return w.fail("%s: filters must be an array", where)
	}
	spec.Filters = []ComponentRef{}
	return w.iter.ReadArrayCB(func(*jsoniter.Iterator) bool {
		ref, ok := w.component(fmt.Sprintf("%s: filter[%d]", where, len(spec.Filters)))
		if !ok {
			return false
		}
		spec.Filters = append(spec.Filters, ref)
		return true
	})
}

func (w *jsonWalker) component(where string) (ComponentRef, bool) {
	var ref ComponentRef
	if w.iter.WhatIsNext() != jsoniter.ObjectValue {
		return ref, w.fail("%s: must be an object", where)
	}

	seen := make(map[string]bool, 2)
	w.iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
		if seen[key] {
			return w.fail("%s: duplicate key %q", where, key)
		}
		seen[key] = true

		switch key {
		case keyName:
			if it.WhatIsNext() != jsoniter.StringValue {
				return w.fail("%s: name must be a string", where)
			}
			ref.Kind = it.ReadString()
			return true
		case keyArgs:
			// WhatIsNext moves past whitespace so the capture starts at the value.
			it.WhatIsNext()
			ref.Args = append([]byte(nil), it.SkipAndReturnBytes()...)
			return true
		default:
			return w.fail("%s: unknown key %q", where, key)
		}
	})
	if !w.checkIter(where) {
		return ref, false
	}
	if !seen[keyName] {
		return ref, w.fail("%s: missing name", where)
	}
	if ref.Kind == "" {
		return ref, w.fail("%s: name is empty", where)
	}
	return ref, true
}

// checkIter reports whether the walk is still healthy, converting a decoder
// error into a structural one.
func (w *jsonWalker) checkIter(where string) bool {
	if w.err != nil {
		return false
	}
	if w.iter.Error != nil && !errors.Is(w.iter.Error, io.EOF) {
		return w.fail("%s: %v", where, w.iter.Error)
	}
	return true
}
