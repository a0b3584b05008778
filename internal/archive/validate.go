package archive

// validate.go — structural validation of a loaded Document.
//
// Three checks run in order and the first failure rejects the whole archive:
//
//  1. the document is an object with "project" and "files"
//  2. "files" is an array
//  3. every element of "files" has "name", "content" and "suffix"
//
// Each check is a small JSON Schema so the verdict and its detail come from
// the same place.

import (
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// RequiredKeys are the top-level keys every archive must carry.
var RequiredKeys = []string{"project", "files"}

// RequiredEntryKeys are the keys every File Entry must carry.
var RequiredEntryKeys = []string{"name", "content", "suffix"}

const archiveSchemaSrc = `{
  "type": "object",
  "required": ["project", "files"],
  "properties": {
    "project":     {"type": "string"},
    "version":     {"type": "string"},
    "description": {"type": "string"}
  }
}`

const filesSchemaSrc = `{"type": "array"}`

const entrySchemaSrc = `{
  "type": "object",
  "required": ["name", "content", "suffix"],
  "properties": {
    "name":    {"type": "string"},
    "content": {"type": "string"},
    "suffix":  {"type": "string"},
    "path":    {"type": "string"}
  }
}`

var (
	archiveSchema = jsonschema.MustCompileString("inmemory://archive.json", archiveSchemaSrc)
	filesSchema   = jsonschema.MustCompileString("inmemory://files.json", filesSchemaSrc)
	entrySchema   = jsonschema.MustCompileString("inmemory://entry.json", entrySchemaSrc)
)

// Validate checks v (a Document.Value) against the archive shape. It returns
// nil when valid, otherwise an error wrapping ErrInvalid that names the
// failing key or entry. Validate has no side effects.
func Validate(v any) error {
	if err := archiveSchema.Validate(v); err != nil {
		if !hasKeys(v, RequiredKeys) {
			return fmt.Errorf("%w: missing required keys %v: %s", ErrInvalid, RequiredKeys, detail(err))
		}
		return fmt.Errorf("%w: %s", ErrInvalid, detail(err))
	}
	files := v.(map[string]any)["files"]
	if err := filesSchema.Validate(files); err != nil {
		return fmt.Errorf("%w: 'files' must be a list: %s", ErrInvalid, detail(err))
	}
	for i, entry := range files.([]any) {
		if err := entrySchema.Validate(entry); err != nil {
			if !hasKeys(entry, RequiredEntryKeys) {
				return fmt.Errorf("%w: file %d%s missing required keys %v: %s",
					ErrInvalid, i, entryLabel(entry), RequiredEntryKeys, detail(err))
			}
			return fmt.Errorf("%w: file %d%s: %s", ErrInvalid, i, entryLabel(entry), detail(err))
		}
	}
	return nil
}

// hasKeys reports whether v is an object carrying every key in keys.
func hasKeys(v any, keys []string) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

// entryLabel returns ` ("name")` when the entry carries a usable name.
func entryLabel(entry any) string {
	obj, ok := entry.(map[string]any)
	if !ok {
		return ""
	}
	if name, ok := obj["name"].(string); ok && name != "" {
		return fmt.Sprintf(" (%q)", name)
	}
	return ""
}

// detail flattens a schema validation error into its leaf messages.
func detail(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	var msgs []string
	collectLeaves(verr, &msgs)
	return strings.Join(msgs, "; ")
}

func collectLeaves(verr *jsonschema.ValidationError, out *[]string) {
	if len(verr.Causes) == 0 {
		msg := verr.Message
		if verr.InstanceLocation != "" {
			msg = fmt.Sprintf("at '%s': %s", verr.InstanceLocation, msg)
		}
		*out = append(*out, msg)
		return
	}
	for _, c := range verr.Causes {
		collectLeaves(c, out)
	}
}
