package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"projextract/internal/archive"
	"projextract/internal/extract"
	"projextract/internal/metrics"
	"projextract/internal/prompt"
	"projextract/internal/settings"
)

// Output streams and terminal detection; tests swap them out.
var (
	stdout      io.Writer = os.Stdout
	stderr      io.Writer = os.Stderr
	interactive           = func() bool { return prompt.Interactive(os.Stdin) }
)

// Usage lines, shared by help output and argument errors.
const (
	extractUsage  = "projextract extract <archive> [-o dir] [-v] [--json] [--metrics-file file] [--settings file]"
	validateUsage = "projextract validate <archive>"
	showUsage     = "projextract show <archive>"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) error
}

var commands = []command{
	{
		name:  "extract",
		short: "Extract a project archive into a directory",
		usage: extractUsage,
		long: `Validate the archive, write every file entry under the output directory,
then generate package.json, .env.example and README.md next to them.

The output directory comes from -o, then $PROJEXTRACT_OUTPUT_DIR, then
output_dir in .projextract/settings.yaml, then "ezunder_extracted". When
none is set and stdin is a terminal, you are asked for it.

-v prints the run id and the size of each written file.

Exits non-zero if any entry or scaffold file could not be written.
`,
		run: runExtract,
	},
	{
		name:  "validate",
		short: "Check an archive's structure without writing anything",
		usage: validateUsage,
		long: `Load and validate the archive. Nothing is written to disk.
`,
		run: runValidate,
	},
	{
		name:  "show",
		short: "Print an archive as a txtar listing",
		usage: showUsage,
		long: `Print each file entry as a txtar section named by the path it would be
extracted to. Nothing is written to disk.
`,
		run: runShow,
	},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "projextract — materialize project archives onto disk\n\n")
	fmt.Fprintf(w, "Usage:\n  projextract <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'projextract help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "projextract: unknown command %q\n\nRun 'projextract help' for usage.\n", name)
}

func dispatch(args []string) error {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(stdout, args[1])
		} else {
			printUsage(stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'projextract help' for usage.", args[0])
}

// parseArgs parses flags that may appear before or after positional
// arguments and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// ---------------------------------------------------------------------------
// extract
// ---------------------------------------------------------------------------

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var output, metricsFile, settingsPath string
	var asJSON, verbose bool
	fs.StringVar(&output, "o", "", "output directory")
	fs.StringVar(&output, "output", "", "output directory")
	fs.StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics here")
	fs.StringVar(&settingsPath, "settings", "", "settings file (default .projextract/settings.yaml)")
	fs.BoolVar(&asJSON, "json", false, "print the result as JSON")
	fs.BoolVar(&verbose, "v", false, "log run details and file sizes")
	fs.BoolVar(&verbose, "verbose", false, "log run details and file sizes")

	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: %s", extractUsage)
	}
	source := positional[0]

	cfg, err := loadSettings(settingsPath)
	if err != nil {
		return err
	}
	if output == "" {
		output = cfg.OutputDir
		if output == settings.DefaultOutputDir && !asJSON && interactive() {
			if output, err = prompt.OutputDir(settings.DefaultOutputDir); err != nil {
				return fmt.Errorf("prompt: %w", err)
			}
		}
	}
	if metricsFile == "" {
		metricsFile = cfg.MetricsFile
	}

	opts := []extract.Option{extract.WithDeny(cfg.IsDenied), extract.WithVerbose(verbose)}
	var prom *metrics.Prom
	if metricsFile != "" {
		prom = metrics.NewProm("projextract")
		opts = append(opts, extract.WithMetrics(prom))
	}
	if !asJSON {
		fmt.Fprintf(stdout, "projextract\n   Source: %s\n   Output: %s\n   Verbose: %v\n%s\n",
			source, output, verbose, strings.Repeat("-", 50))
		opts = append(opts, extract.WithLogger(log.New(stdout, "", 0)))
	}

	res := extract.Extract(source, output, opts...)

	if prom != nil {
		if err := prom.WriteTextfile(metricsFile); err != nil {
			fmt.Fprintf(stderr, "warning: %v\n", err)
		}
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else {
		extract.Summary(stdout, res)
	}

	if !res.OK() {
		return fmt.Errorf("extraction failed with %d error(s)", len(res.Problems))
	}
	if !asJSON {
		fmt.Fprintf(stdout, "\nExtraction completed successfully!\n")
	}
	return nil
}

func loadSettings(path string) (*settings.Settings, error) {
	if path != "" {
		return settings.Load(path, true)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working dir: %w", err)
	}
	return settings.Load(settings.DefaultPath(wd), false)
}

// ---------------------------------------------------------------------------
// validate / show
// ---------------------------------------------------------------------------

// loadArchive loads, validates and decodes the archive at path.
func loadArchive(path string) (*archive.Archive, error) {
	doc, err := archive.Load(path)
	if err != nil {
		return nil, err
	}
	if err := archive.Validate(doc.Value); err != nil {
		return nil, err
	}
	return archive.Decode(doc)
}

func runValidate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", validateUsage)
	}
	a, err := loadArchive(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "archive valid: project %q, %d file(s)\n", a.Project, len(a.Files))
	return nil
}

func runShow(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", showUsage)
	}
	a, err := loadArchive(args[0])
	if err != nil {
		return err
	}
	_, err = stdout.Write(archive.Txtar(a))
	return err
}

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
