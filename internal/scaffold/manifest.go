package scaffold

import (
	"bytes"
	"encoding/json"
	"strings"

	"projextract/internal/archive"
)

// Manifest defaults used when the archive leaves a field empty.
const (
	DefaultName        = "ezunder"
	DefaultVersion     = "1.0.0"
	DefaultDescription = "eZunder ePublishing Platform"
)

// packageJSON mirrors the npm manifest. Field order is output order.
type packageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description"`
	Private         bool              `json:"private"`
	Dependencies    deps              `json:"dependencies"`
	Scripts         scripts           `json:"scripts"`
	EslintConfig    eslintConfig      `json:"eslintConfig"`
	Browserslist    browserslist      `json:"browserslist"`
	DevDependencies deps              `json:"devDependencies"`
}

// deps is a dependency table encoded as a JSON object in declaration order.
type deps []dep

type dep struct {
	name, version string
}

func (d deps) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.version)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type scripts struct {
	Start string `json:"start"`
	Build string `json:"build"`
	Test  string `json:"test"`
	Eject string `json:"eject"`
}

type eslintConfig struct {
	Extends []string `json:"extends"`
}

type browserslist struct {
	Production  []string `json:"production"`
	Development []string `json:"development"`
}

func newPackageJSON(a *archive.Archive) packageJSON {
	return packageJSON{
		Name:        strings.ToLower(orDefault(a.Project, DefaultName)),
		Version:     orDefault(a.Version, DefaultVersion),
		Description: orDefault(a.Description, DefaultDescription),
		Private:     true,
		Dependencies: deps{
			{"@auth0/auth0-react", "^2.2.4"},
			{"@stripe/stripe-js", "^2.4.0"},
			{"@testing-library/jest-dom", "^5.17.0"},
			{"@testing-library/react", "^13.4.0"},
			{"@testing-library/user-event", "^14.5.2"},
			{"@types/jest", "^27.5.2"},
			{"@types/node", "^16.18.68"},
			{"@types/react", "^18.2.42"},
			{"@types/react-dom", "^18.2.17"},
			{"axios", "^1.6.2"},
			{"react", "^18.2.0"},
			{"react-dom", "^18.2.0"},
			{"react-router-dom", "^6.20.1"},
			{"react-scripts", "5.0.1"},
			{"typescript", "^4.9.5"},
			{"web-vitals", "^2.1.4"},
		},
		Scripts: scripts{
			Start: "react-scripts start",
			Build: "react-scripts build",
			Test:  "react-scripts test",
			Eject: "react-scripts eject",
		},
		EslintConfig: eslintConfig{
			Extends: []string{"react-app", "react-app/jest"},
		},
		Browserslist: browserslist{
			Production:  []string{">0.2%", "not dead", "not op_mini all"},
			Development: []string{"last 1 chrome version", "last 1 firefox version", "last 1 safari version"},
		},
		DevDependencies: deps{
			{"@types/testing-library__jest-dom", "^5.14.9"},
			{"tailwindcss", "^3.3.6"},
			{"autoprefixer", "^10.4.16"},
			{"postcss", "^8.4.32"},
		},
	}
}

// renderManifest encodes the manifest with two-space indent. HTML escaping is
// off so browserslist queries keep their literal ">".
func renderManifest(a *archive.Archive) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(newPackageJSON(a)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
