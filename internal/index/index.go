// Package index loads the JSON index that maps tensor names to the shard
// files holding them.
package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Index is a parsed shard index. WeightMap maps each tensor name to a shard
// file name relative to Dir, the directory the index file lives in.
type Index struct {
	Path      string
	Dir       string
	WeightMap map[string]string
	Metadata  map[string]json.RawMessage // top-level fields other than weight_map, uninterpreted
}

// ConfigError reports a malformed or missing index file. It aborts the run
// before any shard I/O.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("index %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("index %s: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying cause, if any.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads and validates an index file. It is all-or-nothing: any failure
// returns a ConfigError and no partial result.
func Load(path string) (*Index, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: "invalid path", Err: err}
	}

	//nolint:gosec // G304: file path comes from user input, which is expected here
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &ConfigError{Path: abs, Reason: "cannot read index file", Err: err}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Path: abs, Reason: "invalid JSON", Err: err}
	}

	raw, ok := doc["weight_map"]
	if !ok {
		return nil, &ConfigError{Path: abs, Reason: "missing required field 'weight_map'"}
	}

	weightMap, err := parseWeightMap(raw)
	if err != nil {
		return nil, &ConfigError{Path: abs, Reason: "invalid weight_map", Err: err}
	}

	metadata := make(map[string]json.RawMessage, len(doc)-1)
	for key, value := range doc {
		if key == "weight_map" {
			continue
		}
		metadata[key] = value
	}

	return &Index{
		Path:      abs,
		Dir:       filepath.Dir(abs),
		WeightMap: weightMap,
		Metadata:  metadata,
	}, nil
}

// parseWeightMap decodes the weight_map object token by token so duplicate
// JSON keys are rejected instead of silently resolved last-key-wins.
func parseWeightMap(raw json.RawMessage) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	weightMap := make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}
		if name == "" {
			return nil, fmt.Errorf("empty tensor name")
		}
		if _, dup := weightMap[name]; dup {
			return nil, fmt.Errorf("duplicate tensor name %q", name)
		}

		var shard string
		if err := dec.Decode(&shard); err != nil {
			return nil, fmt.Errorf("tensor %q: shard file name must be a string: %w", name, err)
		}
		weightMap[name] = shard
	}

	if _, err := dec.Token(); err != nil { // closing '}'
		return nil, err
	}

	return weightMap, nil
}
