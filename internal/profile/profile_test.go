package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validProfileJSON(docPath string) string {
	return `{
  "formData": {
    "firstName": "Asha",
    "lastName": "Karki",
    "dateOfBirth": "1990-05-12",
    "citizenNum": "12-34-56-78901",
    "email": "asha@example.com",
    "contactPhone": "+9779800000000"
  },
  "documents": [
    {"name": "photo", "label": "Photo", "type": "PHOTO", "mimeType": "image/jpeg", "path": "` + docPath + `"}
  ]
}`
}

func writeProfile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte{0xFF, 0xD8, 0xFF}, 0o600))

	// relative document path resolves against the profile's directory
	p, err := Load(writeProfile(t, dir, validProfileJSON("photo.jpg")))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "photo.jpg"), p.Documents[0].Path)
	require.Equal(t, "1990-05-12", p.BirthDate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorContains(t, err, "read profile")
}

func TestLoadRejectsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := writeProfile(t, dir, `{"formData": {"firstName": "Asha"}, "documents": []}`)

	_, err := Load(path)
	require.ErrorContains(t, err, "missing required form field: lastName")
	require.ErrorContains(t, err, "missing required form field: dateOfBirth")
}

func TestLoadRejectsMissingDocumentFile(t *testing.T) {
	dir := t.TempDir()
	path := writeProfile(t, dir, validProfileJSON("absent.jpg"))

	_, err := Load(path)
	require.ErrorContains(t, err, "file not found")
}

func TestValidateBlankField(t *testing.T) {
	p := &Profile{FormData: map[string]any{
		"firstName": "Asha", "lastName": "Karki", "dateOfBirth": "1990-05-12",
		"citizenNum": "1", "email": "  ", "contactPhone": "1",
	}}
	err := p.Validate()
	require.ErrorContains(t, err, "missing required form field: email")
}

func TestBirthDateWithoutFormData(t *testing.T) {
	require.Empty(t, (&Profile{}).BirthDate())
}
