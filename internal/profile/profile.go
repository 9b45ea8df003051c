// Package profile loads the applicant's form data and document list from a
// JSON file kept outside the repository.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is one supporting file to upload before form submission.
type Document struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	MimeType string `json:"mimeType"`
	Path     string `json:"path"`
}

// Profile is the applicant-specific input to a workflow run. FormData is
// kept schemaless on purpose: the service's form has dozens of fields and
// the client forwards them untouched.
type Profile struct {
	FormData  map[string]any `json:"formData"`
	Documents []Document     `json:"documents"`
}

// requiredFields must be present and non-empty in FormData before a run is
// allowed to start.
var requiredFields = []string{
	"lastName",
	"firstName",
	"dateOfBirth",
	"citizenNum",
	"email",
	"contactPhone",
}

// Load reads and validates a profile. Relative document paths are resolved
// against the profile file's directory.
func Load(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, d := range p.Documents {
		if d.Path != "" && !filepath.IsAbs(d.Path) {
			p.Documents[i].Path = filepath.Join(dir, d.Path)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks the presence of required form fields and the existence of
// every listed document file.
func (p *Profile) Validate() error {
	var problems []string

	if p.FormData == nil {
		problems = append(problems, "formData is missing")
	}
	for _, field := range requiredFields {
		if p.stringField(field) == "" {
			problems = append(problems, "missing required form field: "+field)
		}
	}
	for _, d := range p.Documents {
		if d.Path == "" {
			problems = append(problems, fmt.Sprintf("document %q has no path", d.Name))
			continue
		}
		if _, err := os.Stat(d.Path); err != nil {
			problems = append(problems, fmt.Sprintf("document %q: file not found: %s", d.Name, d.Path))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid profile:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// BirthDate returns the applicant's date of birth, the second half of the
// follow-up key pair.
func (p *Profile) BirthDate() string {
	return p.stringField("dateOfBirth")
}

func (p *Profile) stringField(key string) string {
	if p.FormData == nil {
		return ""
	}
	v, _ := p.FormData[key].(string)
	return strings.TrimSpace(v)
}
