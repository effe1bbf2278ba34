package server

import jsoniter "github.com/json-iterator/go"

// json is a drop-in for encoding/json used for request and response bodies.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// encodeJSON marshals v to JSON bytes.
func encodeJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
