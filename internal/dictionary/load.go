package dictionary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is wrapped when the dictionary file does not exist.
var ErrNotFound = errors.New("dictionary file not found")

// Load reads a key/value dictionary from a .json, .yaml or .yml file keeping
// the order in which keys were written.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read dictionary %s: %w", path, err)
	}

	var m *Map
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		m, err = ParseYAML(data)
	default:
		m, err = ParseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	return m, nil
}

// ParseJSON decodes a flat JSON object token by token so key order survives.
func ParseJSON(data []byte) (*Map, error) {
	m := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object of key/value pairs")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		value, err := scalarJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		m.Add(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON object")
	}
	return m, nil
}

func scalarJSON(raw json.RawMessage) (string, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "True", nil
		}
		return "False", nil
	default:
		return "", fmt.Errorf("expected a scalar, got %s", string(raw))
	}
}

// ParseYAML reads a top-level YAML mapping of scalars.
func ParseYAML(data []byte) (*Map, error) {
	m := New()
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return m, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("expected a YAML mapping of key/value pairs")
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: expected scalar key and value", k.Line)
		}
		m.Add(k.Value, v.Value)
	}
	return m, nil
}
