// Package archive loads and validates project archives: a single JSON (or
// YAML) document naming a project and listing its files as text entries.
//
// Document shape:
//
//	{
//	  "project": "<name>",
//	  "files": [
//	    {"name": "App", "suffix": "tsx", "path": "src", "content": "..."}
//	  ],
//	  "version": "<optional>",
//	  "description": "<optional>"
//	}
//
// Loading and validation never touch the output filesystem. A document is
// either accepted whole or rejected whole.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"unicode/utf16"
)

// Sentinel error kinds. Loader and validator errors wrap exactly one of these.
var (
	ErrNotFound   = errors.New("archive not found")
	ErrUnreadable = errors.New("archive unreadable")
	ErrSyntax     = errors.New("invalid archive format")
	ErrInvalid    = errors.New("invalid archive structure")
)

// Archive is a validated, decoded project archive.
type Archive struct {
	Project     string      `json:"project"`
	Files       []FileEntry `json:"files"`
	Version     string      `json:"version,omitempty"`
	Description string      `json:"description,omitempty"`

	// Meta holds every other top-level key, in document form.
	Meta map[string]any `json:"-"`
}

// FileEntry is one logical file. Path is relative to the output root; empty
// means the root itself.
type FileEntry struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Suffix  string `json:"suffix"`
	Path    string `json:"path,omitempty"`

	// Unpaired is the first \uXXXX escape in the source content that names
	// half of a UTF-16 surrogate pair, or empty. The decoder replaces such
	// escapes with U+FFFD, so Content alone cannot reveal them.
	Unpaired string `json:"-"`
}

// Filename returns name.suffix. The separator is always a literal dot, so a
// suffix that already starts with one produces "name..suffix".
func (f FileEntry) Filename() string {
	return f.Name + "." + f.Suffix
}

// RelPath returns the slash-separated destination relative to the output root.
func (f FileEntry) RelPath() string {
	if f.Path == "" {
		return f.Filename()
	}
	return path.Join(f.Path, f.Filename())
}

// knownKeys are decoded into Archive fields and excluded from Meta.
var knownKeys = map[string]bool{
	"project":     true,
	"files":       true,
	"version":     true,
	"description": true,
}

// Decode converts a validated Document into an Archive. Callers must run
// Validate first; Decode only reports type mismatches the schema let through.
func Decode(doc *Document) (*Archive, error) {
	var a Archive
	if err := json.Unmarshal(doc.JSON, &a); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}
	markUnpaired(doc.JSON, a.Files)
	if obj, ok := doc.Value.(map[string]any); ok {
		for k, v := range obj {
			if knownKeys[k] {
				continue
			}
			if a.Meta == nil {
				a.Meta = make(map[string]any)
			}
			a.Meta[k] = v
		}
	}
	return &a, nil
}

// markUnpaired sets FileEntry.Unpaired from the raw content literals in data.
func markUnpaired(data []byte, files []FileEntry) {
	var raw struct {
		Files []struct {
			Content json.RawMessage `json:"content"`
		} `json:"files"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return
	}
	for i := range raw.Files {
		if i < len(files) {
			files[i].Unpaired = unpairedSurrogate(raw.Files[i].Content)
		}
	}
}

// unpairedSurrogate scans a JSON string literal and returns the first \u
// escape in the surrogate range that is not part of a high/low pair.
func unpairedSurrogate(lit []byte) string {
	for i := 0; i < len(lit); i++ {
		if lit[i] != '\\' || i+1 >= len(lit) {
			continue
		}
		if lit[i+1] != 'u' {
			i++ // skip the escaped byte
			continue
		}
		r, ok := hex4(lit, i+2)
		if !ok {
			continue
		}
		switch {
		case utf16.IsSurrogate(r) && r < 0xDC00:
			if lo, ok := escapeAt(lit, i+6); ok && lo >= 0xDC00 && lo <= 0xDFFF {
				i += 11
				continue
			}
			return string(lit[i : i+6])
		case utf16.IsSurrogate(r):
			return string(lit[i : i+6])
		}
		i += 5
	}
	return ""
}

// escapeAt decodes a \uXXXX escape starting at lit[i].
func escapeAt(lit []byte, i int) (rune, bool) {
	if i+1 >= len(lit) || lit[i] != '\\' || lit[i+1] != 'u' {
		return 0, false
	}
	return hex4(lit, i+2)
}

func hex4(lit []byte, i int) (rune, bool) {
	if i+4 > len(lit) {
		return 0, false
	}
	n, err := strconv.ParseUint(string(lit[i:i+4]), 16, 16)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}
