package pipeline

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// ParseYAML parses a YAML configuration document with the same shape as the
// JSON one. Component args are re-encoded as JSON.
func ParseYAML(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: malformed YAML: %v", ErrInvalidConfig, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidConfig)
	}

	top := resolve(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, structural(top, "top-level value must be a mapping")
	}

	doc := &Document{}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i], resolve(top.Content[i+1])
		if key.Kind != yaml.ScalarNode {
			return nil, structural(key, "analyzer name must be a scalar")
		}
		spec, err := yamlSpec(key.Value, val)
		if err != nil {
			return nil, err
		}
		if err := doc.add(spec); err != nil {
			return nil, fmt.Errorf("line %d: %w", key.Line, err)
		}
	}
	return doc, nil
}

func yamlSpec(name string, n *yaml.Node) (Spec, error) {
	spec := Spec{Name: name}
	where := fmt.Sprintf("analyzer %q", name)
	if n.Kind != yaml.MappingNode {
		return spec, structural(n, "%s: value must be a mapping", where)
	}

	seen := make(map[string]bool, 2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolve(n.Content[i+1])
		if seen[key.Value] {
			return spec, structural(key, "%s: duplicate key %q", where, key.Value)
		}
		seen[key.Value] = true

		switch key.Value {
		case keyTokenizer:
			ref, err := yamlComponent(where+": tokenizer", val)
			if err != nil {
				return spec, err
			}
			spec.Tokenizer = ref
		case keyFilters:
			if val.Kind != yaml.SequenceNode {
				return spec, structural(val, "%s: filters must be a sequence", where)
			}
			spec.Filters = make([]ComponentRef, 0, len(val.Content))
			for j, item := range val.Content {
				ref, err := yamlComponent(fmt.Sprintf("%s: filter[%d]", where, j), resolve(item))
				if err != nil {
					return spec, err
				}
				spec.Filters = append(spec.Filters, ref)
			}
		default:
			return spec, structural(key, "%s: unknown key %q", where, key.Value)
		}
	}
	if !seen[keyTokenizer] {
		return spec, structural(n, "%s: missing tokenizer", where)
	}
	return spec, nil
}

func yamlComponent(where string, n *yaml.Node) (ComponentRef, error) {
	var ref ComponentRef
	if n.Kind != yaml.MappingNode {
		return ref, structural(n, "%s: must be a mapping", where)
	}

	seen := make(map[string]bool, 2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolve(n.Content[i+1])
		if seen[key.Value] {
			return ref, structural(key, "%s: duplicate key %q", where, key.Value)
		}
		seen[key.Value] = true

		switch key.Value {
		case keyName:
			if val.Kind != yaml.ScalarNode || val.ShortTag() != "!!str" {
				return ref, structural(val, "%s: name must be a string", where)
			}
			ref.Kind = val.Value
		case keyArgs:
			args, err := argsToJSON(val)
			if err != nil {
				return ref, structural(val, "%s: args: %v", where, err)
			}
			ref.Args = args
		default:
			return ref, structural(key, "%s: unknown key %q", where, key.Value)
		}
	}
	if !seen[keyName] {
		return ref, structural(n, "%s: missing name", where)
	}
	if ref.Kind == "" {
		return ref, structural(n, "%s: name is empty", where)
	}
	return ref, nil
}

func argsToJSON(n *yaml.Node) ([]byte, error) {
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func structural(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrInvalidConfig, n.Line, fmt.Sprintf(format, args...))
}
