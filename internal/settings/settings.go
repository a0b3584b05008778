// Package settings loads projextract configuration.
//
// Sources, lowest precedence first:
//
//	built-in defaults
//	.projextract/settings.yaml (or an explicit path)
//	.env file and process environment (PROJEXTRACT_*)
//	command-line flags (applied by the caller)
//
// Deny rules are compiled once at load time; see ParseDenyList.
package settings

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultOutputDir is used when no flag, env var or settings value names one.
const DefaultOutputDir = "ezunder_extracted"

// Environment variable names.
const (
	EnvOutputDir   = "PROJEXTRACT_OUTPUT_DIR"
	EnvMetricsFile = "PROJEXTRACT_METRICS_FILE"
)

// Settings holds projextract configuration.
type Settings struct {
	OutputDir   string      `yaml:"output_dir"`
	MetricsFile string      `yaml:"metrics_file"`
	Permissions Permissions `yaml:"permissions"`

	deny DenyList
}

// Permissions controls which output paths may be written.
type Permissions struct {
	// Deny is a list of glob patterns, relative to the output root, naming
	// archive entries that must not be written.
	// Example: ["Write(./.github/**)", "*.sh"]
	Deny []string `yaml:"deny"`
}

// DefaultPath returns .projextract/settings.yaml relative to root.
func DefaultPath(root string) string {
	return filepath.Join(root, ".projextract", "settings.yaml")
}

// Load reads the settings file, then applies environment overrides.
// A missing file is not an error; defaults are used instead. When
// explicit is true a missing file is reported.
func Load(file string, explicit bool) (*Settings, error) {
	s := &Settings{}
	data, err := os.ReadFile(file)
	switch {
	case os.IsNotExist(err) && !explicit:
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", file, err)
	default:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", file, err)
		}
	}

	if s.deny, err = ParseDenyList(s.Permissions.Deny); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	// .env is optional; a missing file leaves the environment untouched.
	_ = godotenv.Load()
	s.applyEnv()

	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		s.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMetricsFile)); v != "" {
		s.MetricsFile = v
	}
}

// IsDenied reports whether relPath (forward-slash, relative to the output
// root) is covered by a deny rule. A nil *Settings denies nothing.
func (s *Settings) IsDenied(relPath string) bool {
	if s == nil {
		return false
	}
	return s.deny.Match(relPath)
}

// DenyList is a compiled set of deny rules.
type DenyList []denyRule

// denyRule is either a subtree ("dir/**") or a single-segment glob.
type denyRule struct {
	tree string
	glob string
}

// ParseDenyList compiles deny rules. A rule is a glob relative to the output
// root, optionally wrapped in Write(...) and prefixed with "./":
//
//	"Write(./.github/**)"  .github and everything beneath it
//	"*.sh"                 shell scripts at the root
//	"config/.env"          one file
func ParseDenyList(rules []string) (DenyList, error) {
	list := make(DenyList, 0, len(rules))
	for _, raw := range rules {
		glob := strings.TrimSpace(raw)
		if inner, ok := strings.CutPrefix(glob, "Write("); ok {
			if inner, ok = strings.CutSuffix(inner, ")"); !ok {
				return nil, fmt.Errorf("deny rule %q: unterminated Write(", raw)
			}
			glob = inner
		}
		glob = path.Clean(strings.TrimPrefix(glob, "./"))
		if dir, ok := strings.CutSuffix(glob, "/**"); ok {
			list = append(list, denyRule{tree: dir})
			continue
		}
		if _, err := path.Match(glob, ""); err != nil {
			return nil, fmt.Errorf("deny rule %q: %w", raw, err)
		}
		list = append(list, denyRule{glob: glob})
	}
	return list, nil
}

// Match reports whether rel is covered by any rule.
func (l DenyList) Match(rel string) bool {
	for _, r := range l {
		if r.tree != "" {
			if rel == r.tree || strings.HasPrefix(rel, r.tree+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(r.glob, rel); ok {
			return true
		}
	}
	return false
}
