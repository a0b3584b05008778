// Package scaffold generates the derived project files written next to the
// extracted archive entries:
//
//	package.json  dependency manifest; name/version/description from the archive
//	.env.example  fixed environment-variable template
//	README.md     frontmatter provenance plus a human-readable summary
//
// Each file is written independently. One failing never stops the others.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"projextract/internal/archive"
)

// Scaffold file names, in generation order.
const (
	ManifestFile = "package.json"
	EnvFile      = ".env.example"
	ReadmeFile   = "README.md"
)

// Files lists every scaffold file name in generation order.
var Files = []string{ManifestFile, EnvFile, ReadmeFile}

// Input carries everything the generators need besides the archive itself.
type Input struct {
	// Now is the generation timestamp recorded in the README.
	Now time.Time
	// RunID identifies the extraction run.
	RunID string
	// Extracted lists root-relative paths of entries written this run.
	Extracted []string
}

// Outcome reports one scaffold file.
type Outcome struct {
	File string
	Path string
	Err  error
}

// Generate renders and writes all scaffold files into root. It returns one
// Outcome per file, in Files order.
func Generate(a *archive.Archive, root string, in Input) []Outcome {
	renderers := []struct {
		file   string
		render func() ([]byte, error)
	}{
		{ManifestFile, func() ([]byte, error) { return renderManifest(a) }},
		{EnvFile, func() ([]byte, error) { return []byte(envTemplate), nil }},
		{ReadmeFile, func() ([]byte, error) { return renderReadme(a, in) }},
	}

	out := make([]Outcome, 0, len(renderers))
	for _, r := range renderers {
		path := filepath.Join(root, r.file)
		o := Outcome{File: r.file, Path: path}
		data, err := r.render()
		if err == nil {
			err = os.WriteFile(path, data, 0o644)
		}
		if err != nil {
			o.Err = fmt.Errorf("failed to create %s: %w", r.file, err)
		}
		out = append(out, o)
	}
	return out
}
