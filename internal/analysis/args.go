package analysis

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// ErrInvalidArgument is returned by a component factory when its args are
// missing a mandatory field, contain an unknown one, or hold a value of the
// wrong type or range.
var ErrInvalidArgument = errors.New("invalid component argument")

var argsAdapter = jsoniter.Config{
	EscapeHTML:             true,
	DisallowUnknownFields:  true,
	ValidateJsonRawMessage: true,
}.Froze()

// decodeArgs unmarshals args into v. Absent args leave v untouched.
func decodeArgs(args Args, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := argsAdapter.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

// noArgs accepts absent, null or empty-object args.
func noArgs(args Args) error {
	if len(args) == 0 {
		return nil
	}
	var m map[string]jsoniter.RawMessage
	if err := argsAdapter.Unmarshal(args, &m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if len(m) > 0 {
		return fmt.Errorf("%w: component takes no arguments", ErrInvalidArgument)
	}
	return nil
}

func missingArg(field string) error {
	return fmt.Errorf("%w: missing mandatory %q", ErrInvalidArgument, field)
}
