// Package orderedjson decodes JSON objects while keeping member order.
//
// encoding/json maps lose key order, and the catalog and FAQ documents use key
// order as presentation order.
package orderedjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotObject is returned when the document is not a JSON object.
var ErrNotObject = errors.New("orderedjson: not a JSON object")

// DuplicateKeyError reports a key that appears twice in the same object.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("orderedjson: duplicate key %q", e.Key)
}

// Member is one key with its undecoded value.
type Member struct {
	Key   string
	Value json.RawMessage
}

// Pair is a key with a string value.
type Pair struct {
	Key   string
	Value string
}

// DecodeObject returns the members of a single top-level object in document order.
func DecodeObject(data []byte) ([]Member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNotObject
		}
		return nil, fmt.Errorf("orderedjson: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}

	var members []Member
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("orderedjson: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("orderedjson: unexpected token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("orderedjson: value of %q: %w", key, err)
		}
		if _, dup := seen[key]; dup {
			return nil, &DuplicateKeyError{Key: key}
		}
		seen[key] = struct{}{}
		members = append(members, Member{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("orderedjson: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("orderedjson: trailing data after object")
	}
	return members, nil
}

// DecodeStrings decodes a flat object whose values are all strings.
func DecodeStrings(data []byte) ([]Pair, error) {
	members, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair, 0, len(members))
	for _, m := range members {
		var s string
		if !IsString(m.Value) {
			return nil, fmt.Errorf("orderedjson: value of %q is not a string", m.Key)
		}
		if err := json.Unmarshal(m.Value, &s); err != nil {
			return nil, fmt.Errorf("orderedjson: value of %q: %w", m.Key, err)
		}
		pairs = append(pairs, Pair{Key: m.Key, Value: s})
	}
	return pairs, nil
}

// IsString reports whether raw holds a JSON string.
func IsString(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}
