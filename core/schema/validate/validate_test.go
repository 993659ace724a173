package validate

import (
	"strings"
	"testing"
)

const validManifest = `{
  "id": "com.example.notes",
  "name": "Notes",
  "version": "1.0.0",
  "entry": {"type": "html", "path": "index.html"},
  "capabilities": ["storage"],
  "providers": ["openai"],
  "default_model": "gpt-4o-mini",
  "author": {"name": "Example", "email": "apps@example.com"}
}`

func TestValidateManifestJSONValid(t *testing.T) {
	if err := ValidateManifestJSON([]byte(validManifest)); err != nil {
		t.Fatalf("expected valid manifest, got: %v", err)
	}
}

func TestValidateManifestJSONMissingRequired(t *testing.T) {
	err := ValidateManifestJSON([]byte(`{"id":"a","name":"A","version":"1.0.0"}`))
	if err == nil {
		t.Fatal("expected error for missing entry")
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestValidateManifestJSONBadVersion(t *testing.T) {
	manifest := strings.Replace(validManifest, `"1.0.0"`, `"not-a-version"`, 1)
	if err := ValidateManifestJSON([]byte(manifest)); err == nil {
		t.Fatal("expected error for malformed version")
	}
}

func TestValidateManifestJSONUnknownField(t *testing.T) {
	manifest := strings.Replace(validManifest, `"id"`, `"unexpected": true, "id"`, 1)
	if err := ValidateManifestJSON([]byte(manifest)); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestValidateManifestJSONEmptyEntryPath(t *testing.T) {
	manifest := strings.Replace(validManifest, `"index.html"`, `""`, 1)
	if err := ValidateManifestJSON([]byte(manifest)); err == nil {
		t.Fatal("expected error for empty entry path")
	}
}
