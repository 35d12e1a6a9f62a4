package workflow

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Placeholder is the single token a template must contain; it is replaced by
// the JSON-encoded language list.
const Placeholder = "languageString"

const defaultTemplateName = "templates/codeql-analysis-check.yml"

//go:embed templates/*.yml
var embeddedTemplates embed.FS

// LoadTemplate reads the template at path, or the bundled default when path
// is empty.
func LoadTemplate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		data, err := embeddedTemplates.ReadFile(defaultTemplateName)
		if err != nil {
			return "", fmt.Errorf("read bundled template: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return string(data), nil
}

// Render substitutes langs into tmpl and checks the result is still a YAML
// mapping.
func Render(tmpl string, langs LanguageSet) (string, error) {
	switch n := strings.Count(tmpl, Placeholder); n {
	case 1:
	case 0:
		return "", fmt.Errorf("template has no %q placeholder", Placeholder)
	default:
		return "", fmt.Errorf("template has %d %q placeholders, want exactly one", n, Placeholder)
	}

	encoded, err := json.Marshal([]string(langs))
	if err != nil {
		return "", fmt.Errorf("encode languages: %w", err)
	}
	out := strings.Replace(tmpl, Placeholder, string(encoded), 1)

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		return "", fmt.Errorf("rendered workflow is not valid YAML: %w", err)
	}
	if len(doc) == 0 {
		return "", fmt.Errorf("rendered workflow is empty")
	}
	return out, nil
}
