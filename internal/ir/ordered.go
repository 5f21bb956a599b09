package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// orderedField is one key/value pair of a JSON object, in source order.
type orderedField struct {
	Key   string
	Value json.RawMessage
}

// decodeOrderedObject splits a JSON object into its fields without losing
// declaration order. A null or empty input yields no fields.
func decodeOrderedObject(data []byte) ([]orderedField, error) {
	if isNullRaw(data) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var fields []orderedField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		fields = append(fields, orderedField{Key: key, Value: raw})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// isNullRaw reports whether a raw message is absent or JSON null.
func isNullRaw(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// hasKey reports whether a raw JSON object carries the given top-level key.
func hasKey(data []byte, key string) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, ok := probe[key]
	return ok
}
