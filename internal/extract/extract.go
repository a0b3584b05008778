// Package extract materializes a project archive onto the filesystem.
//
// Pipeline, one synchronous pass per call:
//
//	load → validate → prepare output root → write each entry → scaffold → result
//
// Failures before the output root exists (missing or malformed source,
// structural validation, unusable output root) end the run with nothing
// written. After that every entry and every scaffold file is isolated: a
// failure is recorded and the run moves on.
package extract

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"projextract/internal/archive"
	"projextract/internal/metrics"
	"projextract/internal/scaffold"
)

// Error kinds recorded for output-root and per-entry failures. Source and
// validation failures wrap the archive package's sentinels instead.
var (
	ErrOutputDir   = errors.New("output directory unavailable")
	ErrOutsideRoot = errors.New("path escapes output directory")
	ErrDenied      = errors.New("path denied by settings")
	ErrEncoding    = errors.New("encoding error")
)

// Option configures an Extract call.
type Option func(*config)

type config struct {
	logger  *log.Logger
	now     func() time.Time
	metrics metrics.Recorder
	deny    func(rel string) bool
	runID   string
	verbose bool
}

// WithLogger sends per-entry progress lines to l.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithClock sets the time source used for the README timestamp and run
// duration. Tests pass a fixed clock for deterministic output.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithMetrics records entry, scaffold and run events on r.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *config) {
		c.metrics = r
	}
}

// WithDeny refuses entries whose slash-separated root-relative path
// satisfies deny.
func WithDeny(deny func(rel string) bool) Option {
	return func(c *config) {
		c.deny = deny
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(c *config) {
		c.runID = id
	}
}

// WithVerbose adds detail lines to the progress log: the run id, entry
// counts and the size of each written file.
func WithVerbose(v bool) Option {
	return func(c *config) {
		c.verbose = v
	}
}

// Extract runs the full pipeline for the archive at source, writing into
// outputDir. It never panics on bad input and always returns a Result.
func Extract(source, outputDir string, opts ...Option) *Result {
	cfg := &config{
		logger:  log.New(io.Discard, "", 0),
		now:     time.Now,
		metrics: metrics.Noop{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}

	res := &Result{
		RunID:         cfg.runID,
		Source:        source,
		OutputDir:     outputDir,
		WrittenPaths:  []string{},
		ScaffoldPaths: []string{},
		Problems:      []Problem{},
		StartedAt:     cfg.now(),
	}
	defer func() {
		res.Failed = res.TotalEntries - res.Succeeded
		res.Duration = cfg.now().Sub(res.StartedAt)
		status := metrics.StatusOK
		if !res.OK() {
			status = metrics.StatusFailed
		}
		cfg.metrics.ObserveRun(status, res.Duration.Seconds())
	}()

	// 1. Load and validate; nothing on disk changes until both pass.
	doc, err := archive.Load(source)
	if err != nil {
		res.record(PhaseSource, "", err)
		return res
	}
	if err := archive.Validate(doc.Value); err != nil {
		res.record(PhaseValidate, "", err)
		return res
	}
	a, err := archive.Decode(doc)
	if err != nil {
		res.record(PhaseValidate, "", err)
		return res
	}
	res.TotalEntries = len(a.Files)
	if cfg.verbose {
		cfg.logger.Printf("  run %s: project %q, %d entries", res.RunID, a.Project, len(a.Files))
	}

	// 2. Output root.
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		res.record(PhaseOutput, "", fmt.Errorf("%w: failed to create directory %s: %v", ErrOutputDir, outputDir, err))
		return res
	}
	cfg.logger.Printf("✓ Created output directory: %s", outputDir)
	resolver, err := NewResolver(outputDir, cfg.deny)
	if err != nil {
		res.record(PhaseOutput, "", fmt.Errorf("%w: %s: %v", ErrOutputDir, outputDir, err))
		return res
	}

	// 3. Entries, in archive order.
	extracted := make([]string, 0, len(a.Files))
	for _, e := range a.Files {
		dest, err := extractEntry(resolver, e)
		if err != nil {
			p := res.record(PhaseEntry, entryName(e), fmt.Errorf("failed to extract file %s: %w", entryName(e), err))
			cfg.logger.Printf("✗ %s", p.Message)
			cfg.metrics.ObserveEntry(metrics.StatusFailed, len(e.Content))
			continue
		}
		res.WrittenPaths = append(res.WrittenPaths, dest)
		res.Succeeded++
		extracted = append(extracted, e.RelPath())
		cfg.logger.Printf("✓ Extracted: %s", dest)
		if cfg.verbose {
			cfg.logger.Printf("    %d bytes", len(e.Content))
		}
		cfg.metrics.ObserveEntry(metrics.StatusOK, len(e.Content))
	}

	// 4. Scaffold files, regardless of entry failures.
	outcomes := scaffold.Generate(a, outputDir, scaffold.Input{
		Now:       cfg.now(),
		RunID:     res.RunID,
		Extracted: extracted,
	})
	for _, o := range outcomes {
		if o.Err != nil {
			p := res.record(PhaseScaffold, o.File, o.Err)
			cfg.logger.Printf("✗ %s", p.Message)
			cfg.metrics.ObserveScaffold(o.File, metrics.StatusFailed)
			continue
		}
		res.ScaffoldPaths = append(res.ScaffoldPaths, o.Path)
		cfg.logger.Printf("✓ Created: %s", o.Path)
		cfg.metrics.ObserveScaffold(o.File, metrics.StatusOK)
	}
	return res
}

func extractEntry(r *Resolver, e archive.FileEntry) (string, error) {
	if e.Unpaired != "" {
		return "", fmt.Errorf("%w: content has unpaired surrogate %s", ErrEncoding, e.Unpaired)
	}
	dest, err := r.Resolve(e)
	if err != nil {
		return "", err
	}
	if err := WriteEntry(dest, e.Content); err != nil {
		return "", err
	}
	return dest, nil
}

func entryName(e archive.FileEntry) string {
	if e.Name == "" {
		return "unknown"
	}
	return e.Name
}
