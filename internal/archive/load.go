package archive

// load.go — reads an archive document from disk.
//
// JSON is the native format. Files ending in .yaml or .yml are parsed with
// yaml.v3 and normalized to JSON values so the validator sees one shape.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Document is a parsed but not yet validated archive.
type Document struct {
	// Source is the path the document was read from.
	Source string
	// Value is the untyped document: map[string]any, []any, string,
	// float64, bool or nil.
	Value any
	// JSON is Value re-encoded as JSON.
	JSON []byte
}

// Load reads and parses the archive at path. Errors wrap ErrNotFound,
// ErrUnreadable or ErrSyntax.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s: not valid UTF-8 text", ErrSyntax, path)
	}
	if isYAML(path) {
		return ParseYAML(path, data)
	}
	return ParseJSON(path, data)
}

// ParseJSON parses a JSON archive held in memory.
func ParseJSON(source string, data []byte) (*Document, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return &Document{Source: source, Value: v, JSON: data}, nil
}

// ParseYAML parses a YAML archive held in memory.
func ParseYAML(source string, data []byte) (*Document, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	// Round-trip through JSON: yaml.v3 yields int and map[any]any values the
	// schema validator does not understand.
	normalized, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return ParseJSON(source, normalized)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
