// Package frontmatter reads and writes markdown documents that open with a
// YAML header between --- delimiter lines. Generated READMEs use it to carry
// machine-readable provenance above the human-readable body.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// fence is the delimiter line around the header. A trailing \r is tolerated.
const fence = "---"

var (
	errNoOpen  = errors.New("frontmatter: missing opening --- delimiter")
	errNoClose = errors.New("frontmatter: missing closing --- delimiter")
)

// Split separates a document into its raw YAML header and its body. The
// header runs from the line after the opening fence up to the next line that
// is exactly a fence; the body starts on the line after that.
func Split(doc []byte) (header, body []byte, err error) {
	first, rest, ok := bytes.Cut(doc, []byte("\n"))
	if !ok || !isFence(first) {
		return nil, nil, errNoOpen
	}
	for off := 0; ; {
		line, after, more := bytes.Cut(rest[off:], []byte("\n"))
		if isFence(line) {
			return rest[:off], after, nil
		}
		if !more {
			return nil, nil, errNoClose
		}
		off += len(line) + 1
	}
}

func isFence(line []byte) bool {
	return string(bytes.TrimSuffix(line, []byte("\r"))) == fence
}

// Decode splits doc and unmarshals its header into v, returning the body.
func Decode(doc []byte, v any) ([]byte, error) {
	header, body, err := Split(doc)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(header, v); err != nil {
		return nil, fmt.Errorf("frontmatter: unmarshal: %w", err)
	}
	return body, nil
}

// Compose marshals header as YAML and prepends it to body.
func Compose(header any, body string) ([]byte, error) {
	fm, err := yaml.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	buf.Write(fm)
	buf.WriteString(fence + "\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
