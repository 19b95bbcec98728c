package jsonmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gowebpki/jcs"
)

// JSONMap represents a JSON object as a map.
type JSONMap map[string]interface{}

// FromStruct converts any JSON-encodable value holding an object into a JSONMap.
func FromStruct(v interface{}) (JSONMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	var m JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value into JSONMap: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("value is not a JSON object")
	}
	return m, nil
}

// ToJSON serializes the JSONMap to JSON.
func (m JSONMap) ToJSON() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONMap: %w", err)
	}
	return data, nil
}

// Canonicalize returns the RFC 8785 canonical form of the JSONMap, excluding the proof field.
func (m JSONMap) Canonicalize() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}

	mCopy := make(JSONMap, len(m))
	for k, v := range m {
		if k != "proof" {
			mCopy[k] = v
		}
	}

	return Canonicalize(mCopy)
}

// Canonicalize marshals v and transforms the result with the JSON
// Canonicalization Scheme: lexicographically sorted keys, no insignificant
// whitespace and a single number representation.
func Canonicalize(v interface{}) ([]byte, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	canonical, err := jcs.Transform(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize document: %w", err)
	}
	return canonical, nil
}

// Normalize round-trips v through encoding/json so it only contains
// map[string]interface{}, []interface{}, float64, string, bool and nil.
func Normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return out, nil
}

// CheckKeys rejects objects carrying keys outside allowed or missing any of required.
func CheckKeys[V any](fields map[string]V, allowed, required []string) error {
	var unknown []string
	for k := range fields {
		if !contains(allowed, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown field(s) %s", quoteAll(unknown))
	}

	var missing []string
	for _, k := range required {
		if _, ok := fields[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required field(s) %s", quoteAll(missing))
	}
	return nil
}

// StrictUnmarshal decodes a JSON object into v after checking its key set
// against allowed and required.
func StrictUnmarshal(data []byte, v interface{}, allowed, required []string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("expected a JSON object: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("expected a JSON object, got null")
	}
	if err := CheckKeys(fields, allowed, required); err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// IsNull reports whether data is the JSON literal null.
func IsNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func quoteAll(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = fmt.Sprintf("%q", k)
	}
	return strings.Join(quoted, ", ")
}
