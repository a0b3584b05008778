package scaffold

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"projextract/internal/archive"
	"projextract/internal/frontmatter"
)

// envTemplate is written verbatim as .env.example.
const envTemplate = `# eZunder Environment Variables
# Copy this file to .env and fill in your values

# API Configuration
REACT_APP_API_BASE_URL=http://localhost:3001/api

# Stripe Configuration
REACT_APP_STRIPE_PUBLISHABLE_KEY=pk_test_your_publishable_key_here
REACT_APP_STRIPE_STARTER_PRICE_ID=price_starter_id_here
REACT_APP_STRIPE_PROFESSIONAL_PRICE_ID=price_professional_id_here
REACT_APP_STRIPE_ENTERPRISE_PRICE_ID=price_enterprise_id_here

# Development
NODE_ENV=development
REACT_APP_VERSION=1.0.0
`

// ReadmeHeader is the YAML frontmatter of the generated README.
type ReadmeHeader struct {
	Project     string `yaml:"project"`
	Version     string `yaml:"version"`
	GeneratedAt string `yaml:"generated_at"`
	RunID       string `yaml:"run_id,omitempty"`
	Files       int    `yaml:"files"`
}

func renderReadme(a *archive.Archive, in Input) ([]byte, error) {
	header := ReadmeHeader{
		Project:     a.Project,
		Version:     orDefault(a.Version, DefaultVersion),
		GeneratedAt: in.Now.Format(time.RFC3339),
		RunID:       in.RunID,
		Files:       len(a.Files),
	}
	return frontmatter.Compose(header, readmeBody(a, in))
}

func readmeBody(a *archive.Archive, in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", orDefault(a.Project, DefaultName))
	b.WriteString(orDefault(a.Description, DefaultDescription) + "\n\n")

	b.WriteString("## Project Details\n\n")
	fmt.Fprintf(&b, "- **Version**: %s\n", orDefault(a.Version, DefaultVersion))
	fmt.Fprintf(&b, "- **Generated**: %s\n", in.Now.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Files in archive**: %d\n", len(a.Files))
	keys := make([]string, 0, len(a.Meta))
	for k := range a.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- **%s**: %v\n", k, a.Meta[k])
	}

	if len(in.Extracted) > 0 {
		b.WriteString("\n## Files\n\n")
		for _, p := range in.Extracted {
			fmt.Fprintf(&b, "- `%s`\n", p)
		}
	}

	b.WriteString("\n## Getting Started\n\n")
	b.WriteString("1. `npm install`\n")
	b.WriteString("2. `cp .env.example .env`\n")
	b.WriteString("3. Edit `.env` with your configuration\n")
	b.WriteString("4. `npm start`\n")
	return b.String()
}
