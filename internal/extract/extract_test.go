package extract_test

// extract_test.go — end-to-end tests for the extraction pipeline.
//
// Each test writes an archive document into a temp dir, runs Extract into a
// second temp dir, and asserts on the Result and on the files on disk.

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"projextract/internal/archive"
	"projextract/internal/extract"
	"projextract/internal/metrics"
	"projextract/internal/scaffold"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2025, 6, 28, 19, 41, 16, 0, time.UTC)

func clock() func() time.Time {
	return func() time.Time { return fixedNow }
}

// writeArchive marshals doc as JSON into a temp file and returns its path.
func writeArchive(t *testing.T, doc any) string {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return writeRaw(t, "archive.json", string(data))
}

func writeRaw(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func entry(name, suffix, path, content string) map[string]any {
	e := map[string]any{"name": name, "suffix": suffix, "content": content}
	if path != "" {
		e["path"] = path
	}
	return e
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(data)
}

// listTree returns every regular file under root, relative and sorted.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, p)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(out)
	return out
}

func assertEmptyOrAbsent(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no filesystem mutation, found %d entries in %s", len(entries), dir)
	}
}

// ---------------------------------------------------------------------------
// Well-formed archives
// ---------------------------------------------------------------------------

func TestExtractAllEntries(t *testing.T) {
	src := writeArchive(t, map[string]any{
		"project": "Demo",
		"files": []any{
			entry("App", "tsx", "src", "export default App;\n"),
			entry("index", "html", "public", "<html></html>"),
			entry("tsconfig", "json", "", "{}"),
		},
	})
	out := filepath.Join(t.TempDir(), "out")

	res := extract.Extract(src, out, extract.WithClock(clock()))

	if !res.OK() {
		t.Fatalf("unexpected problems: %v", res.Errors())
	}
	if len(res.WrittenPaths) != 3 || res.TotalEntries != 3 || res.Succeeded != 3 || res.Failed != 0 {
		t.Fatalf("counts: written=%d total=%d ok=%d failed=%d",
			len(res.WrittenPaths), res.TotalEntries, res.Succeeded, res.Failed)
	}
	want := []string{
		filepath.Join(out, "src", "App.tsx"),
		filepath.Join(out, "public", "index.html"),
		filepath.Join(out, "tsconfig.json"),
	}
	for i, p := range want {
		if res.WrittenPaths[i] != p {
			t.Errorf("WrittenPaths[%d] = %q, want %q", i, res.WrittenPaths[i], p)
		}
	}
	if got := readFile(t, want[0]); got != "export default App;\n" {
		t.Errorf("App.tsx content = %q", got)
	}
	if res.Err() != nil {
		t.Errorf("Err() = %v, want nil", res.Err())
	}
}

func TestExtractNestedPath(t *testing.T) {
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", "txt", "sub/dir", "exact content")},
	})
	out := t.TempDir()

	res := extract.Extract(src, out)
	if !res.OK() {
		t.Fatalf("problems: %v", res.Errors())
	}
	if got := readFile(t, filepath.Join(out, "sub", "dir", "a.txt")); got != "exact content" {
		t.Errorf("content = %q", got)
	}
}

func TestExtractDoubleDotSuffix(t *testing.T) {
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", ".txt", "", "x")},
	})
	out := t.TempDir()

	res := extract.Extract(src, out)
	if !res.OK() {
		t.Fatalf("problems: %v", res.Errors())
	}
	if _, err := os.Stat(filepath.Join(out, "a..txt")); err != nil {
		t.Errorf("expected a..txt: %v", err)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files": []any{
			entry("a", "txt", "", "one"),
			entry("b", "md", "docs", "two"),
		},
	})
	out := t.TempDir()

	first := extract.Extract(src, out, extract.WithClock(clock()))
	if !first.OK() {
		t.Fatalf("first run: %v", first.Errors())
	}
	before := listTree(t, out)
	snapshot := make(map[string]string, len(before))
	for _, rel := range before {
		snapshot[rel] = readFile(t, filepath.Join(out, rel))
	}

	second := extract.Extract(src, out, extract.WithClock(clock()), extract.WithRunID(first.RunID))
	if !second.OK() {
		t.Fatalf("second run: %v", second.Errors())
	}
	after := listTree(t, out)
	if strings.Join(before, ",") != strings.Join(after, ",") {
		t.Fatalf("file set changed:\nbefore %v\nafter  %v", before, after)
	}
	for rel, content := range snapshot {
		if got := readFile(t, filepath.Join(out, rel)); got != content {
			t.Errorf("%s changed between runs", rel)
		}
	}
}

func TestExtractOverwritesExistingFile(t *testing.T) {
	out := t.TempDir()
	if err := os.WriteFile(filepath.Join(out, "a.txt"), []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", "txt", "", "fresh")},
	})
	if res := extract.Extract(src, out); !res.OK() {
		t.Fatalf("problems: %v", res.Errors())
	}
	if got := readFile(t, filepath.Join(out, "a.txt")); got != "fresh" {
		t.Errorf("content = %q, want fresh", got)
	}
}

func TestExtractYAMLArchive(t *testing.T) {
	src := writeRaw(t, "archive.yaml", `project: Demo
files:
  - name: main
    suffix: ts
    path: src
    content: |
      console.log("hi");
`)
	out := t.TempDir()
	res := extract.Extract(src, out)
	if !res.OK() {
		t.Fatalf("problems: %v", res.Errors())
	}
	if got := readFile(t, filepath.Join(out, "src", "main.ts")); got != "console.log(\"hi\");\n" {
		t.Errorf("content = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Scaffold
// ---------------------------------------------------------------------------

func TestExtractAlwaysWritesScaffold(t *testing.T) {
	out := t.TempDir()
	// Block the only entry: a directory already sits where the file goes.
	if err := os.Mkdir(filepath.Join(out, "a.txt"), 0o755); err != nil {
		t.Fatal(err)
	}
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", "txt", "", "x")},
	})

	res := extract.Extract(src, out)

	if len(res.ScaffoldPaths) != len(scaffold.Files) {
		t.Fatalf("expected %d scaffold files, got %v", len(scaffold.Files), res.ScaffoldPaths)
	}
	for _, f := range scaffold.Files {
		if _, err := os.Stat(filepath.Join(out, f)); err != nil {
			t.Errorf("scaffold %s missing: %v", f, err)
		}
	}
	if res.OK() {
		t.Error("expected entry failure to be reported")
	}
}

func TestExtractScaffoldFailureIsIsolated(t *testing.T) {
	out := t.TempDir()
	if err := os.Mkdir(filepath.Join(out, scaffold.EnvFile), 0o755); err != nil {
		t.Fatal(err)
	}
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", "txt", "", "x")},
	})

	res := extract.Extract(src, out)

	if res.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", res.Succeeded)
	}
	if len(res.ScaffoldPaths) != 2 {
		t.Errorf("ScaffoldPaths = %v, want 2 entries", res.ScaffoldPaths)
	}
	if len(res.Problems) != 1 || res.Problems[0].Phase != extract.PhaseScaffold {
		t.Fatalf("problems = %+v", res.Problems)
	}
	if !strings.Contains(res.Problems[0].Message, "failed to create .env.example") {
		t.Errorf("message = %q", res.Problems[0].Message)
	}
	if res.Fatal {
		t.Error("scaffold failure must not be fatal")
	}
}

// ---------------------------------------------------------------------------
// Fatal, pre-extraction failures
// ---------------------------------------------------------------------------

func TestExtractFatalFailures(t *testing.T) {
	tests := []struct {
		name    string
		source  func(t *testing.T) string
		wantErr error
		phase   extract.Phase
	}{
		{
			name:    "source not found",
			source:  func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.json") },
			wantErr: archive.ErrNotFound,
			phase:   extract.PhaseSource,
		},
		{
			name:    "malformed syntax",
			source:  func(t *testing.T) string { return writeRaw(t, "bad.json", `{"project": `) },
			wantErr: archive.ErrSyntax,
			phase:   extract.PhaseSource,
		},
		{
			name: "missing files key",
			source: func(t *testing.T) string {
				return writeArchive(t, map[string]any{"project": "p"})
			},
			wantErr: archive.ErrInvalid,
			phase:   extract.PhaseValidate,
		},
		{
			name: "numeric version",
			source: func(t *testing.T) string {
				return writeArchive(t, map[string]any{"project": "p", "files": []any{}, "version": 2})
			},
			wantErr: archive.ErrInvalid,
			phase:   extract.PhaseValidate,
		},
		{
			name: "one entry missing content rejects all",
			source: func(t *testing.T) string {
				return writeArchive(t, map[string]any{
					"project": "p",
					"files": []any{
						entry("good", "txt", "", "fine"),
						map[string]any{"name": "bad", "suffix": "txt"},
					},
				})
			},
			wantErr: archive.ErrInvalid,
			phase:   extract.PhaseValidate,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out")
			res := extract.Extract(tc.source(t), out)

			if res.OK() {
				t.Fatal("expected failure")
			}
			if !res.Fatal {
				t.Error("expected Fatal")
			}
			if len(res.WrittenPaths) != 0 || len(res.ScaffoldPaths) != 0 {
				t.Errorf("expected zero writes, got %v %v", res.WrittenPaths, res.ScaffoldPaths)
			}
			if !errors.Is(res.Err(), tc.wantErr) {
				t.Errorf("Err() = %v, want %v", res.Err(), tc.wantErr)
			}
			if res.Problems[0].Phase != tc.phase {
				t.Errorf("phase = %s, want %s", res.Problems[0].Phase, tc.phase)
			}
			assertEmptyOrAbsent(t, out)
		})
	}
}

func TestExtractOutputRootIsFile(t *testing.T) {
	out := writeRaw(t, "not-a-dir", "x")
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", "txt", "", "x")},
	})
	res := extract.Extract(src, out)
	if !errors.Is(res.Err(), extract.ErrOutputDir) {
		t.Fatalf("Err() = %v, want ErrOutputDir", res.Err())
	}
	if !res.Fatal || res.Problems[0].Phase != extract.PhaseOutput {
		t.Errorf("problems = %+v", res.Problems)
	}
}

// ---------------------------------------------------------------------------
// Per-entry isolation
// ---------------------------------------------------------------------------

func TestExtractEntryFailureDoesNotAbort(t *testing.T) {
	out := t.TempDir()
	if err := os.Mkdir(filepath.Join(out, "b.txt"), 0o755); err != nil {
		t.Fatal(err)
	}
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files": []any{
			entry("a", "txt", "", "1"),
			entry("b", "txt", "", "2"),
			entry("c", "txt", "", "3"),
		},
	})

	res := extract.Extract(src, out)

	if res.Succeeded != 2 || res.Failed != 1 || res.TotalEntries != 3 {
		t.Errorf("counts: ok=%d failed=%d total=%d", res.Succeeded, res.Failed, res.TotalEntries)
	}
	if len(res.WrittenPaths) != 2 || !strings.HasSuffix(res.WrittenPaths[1], "c.txt") {
		t.Errorf("WrittenPaths = %v", res.WrittenPaths)
	}
	if len(res.Problems) != 1 {
		t.Fatalf("problems = %+v", res.Problems)
	}
	p := res.Problems[0]
	if p.Phase != extract.PhaseEntry || p.Entry != "b" {
		t.Errorf("problem = %+v", p)
	}
	if !strings.HasPrefix(p.Message, "failed to extract file b:") {
		t.Errorf("message = %q", p.Message)
	}
}

func TestExtractRejectsInvalidUTF8Source(t *testing.T) {
	src := writeRaw(t, "archive.json", "{\"project\":\"p\",\"files\":[{\"name\":\"a\",\"suffix\":\"txt\",\"content\":\"x\xffy\"}]}")
	out := filepath.Join(t.TempDir(), "out")

	res := extract.Extract(src, out)

	if !res.Fatal || !errors.Is(res.Err(), archive.ErrSyntax) {
		t.Fatalf("expected fatal ErrSyntax, got %v", res.Errors())
	}
	assertEmptyOrAbsent(t, out)
}

func TestExtractUnpairedSurrogateFailsEntry(t *testing.T) {
	src := writeRaw(t, "archive.json", `{"project":"p","files":[
		{"name":"bad","suffix":"txt","path":"sub","content":"x\ud800y"},
		{"name":"good","suffix":"txt","content":"ok"}
	]}`)
	out := t.TempDir()

	res := extract.Extract(src, out)

	if res.Fatal || res.Succeeded != 1 || res.Failed != 1 {
		t.Fatalf("counts: ok=%d failed=%d fatal=%v", res.Succeeded, res.Failed, res.Fatal)
	}
	if !errors.Is(res.Err(), extract.ErrEncoding) {
		t.Errorf("expected ErrEncoding, got %v", res.Errors())
	}
	if res.Problems[0].Entry != "bad" {
		t.Errorf("problem = %+v", res.Problems[0])
	}
	if _, err := os.Stat(filepath.Join(out, "sub")); err == nil {
		t.Error("rejected entry left a directory behind")
	}
	if got := readFile(t, filepath.Join(out, "good.txt")); got != "ok" {
		t.Errorf("good.txt = %q", got)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	base := t.TempDir()
	out := filepath.Join(base, "out")
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files": []any{
			entry("evil", "txt", "../../escaped", "pwned"),
			entry("sneaky", "txt", "sub/../..", "pwned"),
			entry("ok", "txt", "sub/../inside", "fine"),
		},
	})

	res := extract.Extract(src, out)

	if res.Succeeded != 1 {
		t.Fatalf("Succeeded = %d, problems %v", res.Succeeded, res.Errors())
	}
	if got := readFile(t, filepath.Join(out, "inside", "ok.txt")); got != "fine" {
		t.Errorf("inside content = %q", got)
	}
	for _, p := range res.Problems {
		if !errors.Is(p, extract.ErrOutsideRoot) {
			t.Errorf("problem %q does not wrap ErrOutsideRoot", p.Message)
		}
	}
	if _, err := os.Stat(filepath.Join(base, "sneaky.txt")); err == nil {
		t.Error("file written outside the output root")
	}
	if len(res.ScaffoldPaths) != 3 {
		t.Errorf("scaffold not generated after traversal rejections")
	}
}

func TestExtractRejectsSymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	out := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(out, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("x", "txt", "link/deeper", "pwned")},
	})

	res := extract.Extract(src, out)

	if res.Succeeded != 0 || !errors.Is(res.Err(), extract.ErrOutsideRoot) {
		t.Fatalf("expected symlink escape rejection, got %v", res.Errors())
	}
	if _, err := os.Stat(filepath.Join(outside, "deeper")); err == nil {
		t.Error("directory created through symlink outside the root")
	}
}

func TestExtractDenyRules(t *testing.T) {
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files": []any{
			entry("deploy", "sh", "scripts", "rm -rf /"),
			entry("index", "ts", "src", "ok"),
		},
	})
	out := t.TempDir()
	deny := func(rel string) bool { return strings.HasPrefix(rel, "scripts/") }

	res := extract.Extract(src, out, extract.WithDeny(deny))

	if res.Succeeded != 1 || !errors.Is(res.Err(), extract.ErrDenied) {
		t.Fatalf("expected one denied entry, got %v", res.Errors())
	}
	if _, err := os.Stat(filepath.Join(out, "scripts")); err == nil {
		t.Error("denied entry left a directory behind")
	}
}

// ---------------------------------------------------------------------------
// Logging, metrics, summary
// ---------------------------------------------------------------------------

func TestExtractLogsProgress(t *testing.T) {
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", "txt", "", "x")},
	})
	out := t.TempDir()
	var buf bytes.Buffer

	extract.Extract(src, out, extract.WithLogger(log.New(&buf, "", 0)))

	logged := buf.String()
	for _, want := range []string{"Created output directory", "✓ Extracted: " + filepath.Join(out, "a.txt"), "✓ Created: "} {
		if !strings.Contains(logged, want) {
			t.Errorf("log missing %q\n%s", want, logged)
		}
	}
}

func TestExtractVerboseLogsDetail(t *testing.T) {
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", "txt", "", "hello")},
	})
	var quiet, loud bytes.Buffer

	extract.Extract(src, t.TempDir(), extract.WithLogger(log.New(&quiet, "", 0)), extract.WithRunID("r1"))
	extract.Extract(src, t.TempDir(), extract.WithLogger(log.New(&loud, "", 0)), extract.WithRunID("r1"), extract.WithVerbose(true))

	for _, want := range []string{`run r1: project "p", 1 entries`, "    5 bytes"} {
		if !strings.Contains(loud.String(), want) {
			t.Errorf("verbose log missing %q\n%s", want, loud.String())
		}
		if strings.Contains(quiet.String(), want) {
			t.Errorf("quiet log contains %q", want)
		}
	}
}

func TestExtractRecordsMetrics(t *testing.T) {
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", "txt", "", "hello")},
	})
	out := t.TempDir()
	prom := metrics.NewProm("projextract")

	extract.Extract(src, out, extract.WithMetrics(prom))

	path := filepath.Join(t.TempDir(), "m.prom")
	if err := prom.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	text := readFile(t, path)
	for _, want := range []string{
		`projextract_entries_total{status="ok"} 1`,
		`projextract_entry_bytes_written_total 5`,
		`projextract_scaffold_files_total{file="README.md",status="ok"} 1`,
		`projextract_runs_total{status="ok"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestExtractResultJSON(t *testing.T) {
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", "txt", "", "x")},
	})
	res := extract.Extract(src, t.TempDir(), extract.WithRunID("run-7"))

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["runId"] != "run-7" || got["succeeded"] != float64(1) || got["totalEntries"] != float64(1) {
		t.Errorf("json = %s", data)
	}
	if errs, ok := got["errors"].([]any); !ok || len(errs) != 0 {
		t.Errorf("errors = %v, want empty list", got["errors"])
	}
}

func TestSummary(t *testing.T) {
	out := t.TempDir()
	if err := os.Mkdir(filepath.Join(out, "b.txt"), 0o755); err != nil {
		t.Fatal(err)
	}
	src := writeArchive(t, map[string]any{
		"project": "p",
		"files":   []any{entry("a", "txt", "", "1"), entry("b", "txt", "", "2")},
	})
	res := extract.Extract(src, out)

	var buf bytes.Buffer
	extract.Summary(&buf, res)
	text := buf.String()
	for _, want := range []string{
		"Total files in archive: 2",
		"Successfully extracted: 1",
		"Failed extractions: 1",
		"Additional files created: 3 (package.json, .env.example, README.md)",
		"Errors encountered:",
		"failed to extract file b",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q\n%s", want, text)
		}
	}
}

func TestSummaryNamesOnlyCreatedScaffoldFiles(t *testing.T) {
	out := t.TempDir()
	if err := os.Mkdir(filepath.Join(out, scaffold.ManifestFile), 0o755); err != nil {
		t.Fatal(err)
	}
	src := writeArchive(t, map[string]any{"project": "p", "files": []any{}})
	res := extract.Extract(src, out)

	var buf bytes.Buffer
	extract.Summary(&buf, res)
	if !strings.Contains(buf.String(), "Additional files created: 2 (.env.example, README.md)") {
		t.Errorf("summary = %q", buf.String())
	}
}

func TestSummaryFatalListsOnlyErrors(t *testing.T) {
	res := extract.Extract(filepath.Join(t.TempDir(), "missing.json"), t.TempDir())
	var buf bytes.Buffer
	extract.Summary(&buf, res)
	text := buf.String()
	if strings.Contains(text, "Total files in archive") {
		t.Error("fatal run printed an extraction tally")
	}
	if !strings.Contains(text, "archive not found") {
		t.Errorf("summary = %q", text)
	}
}

func TestSummarySuccess(t *testing.T) {
	src := writeArchive(t, map[string]any{"project": "p", "files": []any{}})
	out := t.TempDir()
	res := extract.Extract(src, out)
	var buf bytes.Buffer
	extract.Summary(&buf, res)
	if !strings.Contains(buf.String(), "All files extracted successfully to: "+out) {
		t.Errorf("summary = %q", buf.String())
	}
}
