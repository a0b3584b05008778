package archive

import (
	"fmt"
	"strings"

	"golang.org/x/tools/txtar"
)

// Txtar renders a as a txtar listing: one section per entry, named by its
// root-relative destination, in archive order. The comment header carries the
// project name, version and entry count. Nothing is written to disk.
func Txtar(a *Archive) []byte {
	var comment strings.Builder
	fmt.Fprintf(&comment, "project: %s\n", a.Project)
	if a.Version != "" {
		fmt.Fprintf(&comment, "version: %s\n", a.Version)
	}
	fmt.Fprintf(&comment, "files: %d\n", len(a.Files))

	ar := &txtar.Archive{Comment: []byte(comment.String())}
	for _, f := range a.Files {
		data := f.Content
		if data != "" && !strings.HasSuffix(data, "\n") {
			data += "\n"
		}
		ar.Files = append(ar.Files, txtar.File{Name: f.RelPath(), Data: []byte(data)})
	}
	return txtar.Format(ar)
}
