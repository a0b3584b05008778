package extract

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Summary writes the end-of-run report for res to w. Runs that stopped before
// extraction only list their errors.
func Summary(w io.Writer, res *Result) {
	if !res.Fatal {
		fmt.Fprintf(w, "\nExtraction Summary:\n")
		fmt.Fprintf(w, "   Total files in archive: %d\n", res.TotalEntries)
		fmt.Fprintf(w, "   Successfully extracted: %d\n", res.Succeeded)
		fmt.Fprintf(w, "   Failed extractions: %d\n", res.Failed)
		fmt.Fprintf(w, "   Additional files created: %d (%s)\n",
			len(res.ScaffoldPaths), createdNames(res.ScaffoldPaths))
	}

	if !res.OK() {
		fmt.Fprintf(w, "\nErrors encountered:\n")
		for _, p := range res.Problems {
			fmt.Fprintf(w, "   - %s\n", p.Message)
		}
		return
	}

	fmt.Fprintf(w, "\nAll files extracted successfully to: %s\n", res.OutputDir)
	fmt.Fprintf(w, "   Next steps:\n")
	fmt.Fprintf(w, "   1. cd %s\n", res.OutputDir)
	fmt.Fprintf(w, "   2. npm install\n")
	fmt.Fprintf(w, "   3. cp .env.example .env\n")
	fmt.Fprintf(w, "   4. Edit .env with your configuration\n")
	fmt.Fprintf(w, "   5. npm start\n")
}

func createdNames(paths []string) string {
	if len(paths) == 0 {
		return "none"
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return strings.Join(names, ", ")
}
