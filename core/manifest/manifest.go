package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	coreerrors "github.com/davidahmann/appdepot/core/errors"
	"github.com/davidahmann/appdepot/core/jcs"
	schemaapp "github.com/davidahmann/appdepot/core/schema/v1/app"
	"github.com/davidahmann/appdepot/core/schema/validate"
)

// FileName is the canonical manifest file name next to an artifact and
// inside a published version directory.
const FileName = "manifest.json"

// Load reads and parses a manifest file, returning the parsed manifest and
// the raw bytes for schema validation and canonical digesting.
func Load(path string) (schemaapp.Manifest, []byte, error) {
	// #nosec G304 -- caller supplies local manifest path by design.
	raw, err := os.ReadFile(path)
	if err != nil {
		return schemaapp.Manifest{}, nil, coreerrors.Wrap(
			fmt.Errorf("read manifest: %w", err),
			coreerrors.CategoryIOFailure, "manifest_unreadable", "check the manifest path", false,
		)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return schemaapp.Manifest{}, nil, err
	}
	return parsed, raw, nil
}

// Parse decodes manifest bytes without schema validation.
func Parse(raw []byte) (schemaapp.Manifest, error) {
	var parsed schemaapp.Manifest
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return schemaapp.Manifest{}, coreerrors.Wrap(
			fmt.Errorf("parse manifest: %w", err),
			coreerrors.CategoryParseFailure, "manifest_malformed", "the manifest must be a JSON object", false,
		)
	}
	return parsed, nil
}

// Validate runs structural schema validation over raw manifest bytes.
func Validate(raw []byte) error {
	if err := validate.ValidateManifestJSON(raw); err != nil {
		return coreerrors.Wrap(err, coreerrors.CategorySchemaInvalid, "manifest_schema", "fix the manifest fields listed in the error", false)
	}
	return nil
}

// CheckIdentity enforces that a manifest's (id, version) matches its
// registry location, returning one error per mismatched field so an
// auditor can report both at once.
func CheckIdentity(parsed schemaapp.Manifest, wantID, wantVersion string) []error {
	var errs []error
	if parsed.ID != wantID {
		errs = append(errs, coreerrors.Wrap(
			fmt.Errorf("manifest id %q does not match registry entry %q", parsed.ID, wantID),
			coreerrors.CategoryVerification, "identity_mismatch", "republish under the manifest's id", false,
		))
	}
	if parsed.Version != wantVersion {
		errs = append(errs, coreerrors.Wrap(
			fmt.Errorf("manifest version %q does not match registry entry %q", parsed.Version, wantVersion),
			coreerrors.CategoryVerification, "identity_mismatch", "republish under the manifest's version", false,
		))
	}
	return errs
}

// Digest returns the sha256 hex digest of the RFC 8785 canonical form of
// the manifest, a content address independent of key order and whitespace.
func Digest(raw []byte) (string, error) {
	canonicalDigest, err := jcs.Digest(raw)
	if err != nil {
		return "", coreerrors.Wrap(
			fmt.Errorf("digest manifest: %w", err),
			coreerrors.CategoryParseFailure, "manifest_malformed", "the manifest must be valid JSON", false,
		)
	}
	return canonicalDigest, nil
}

// Resolve locates the manifest for a target: a directory holds its
// manifest.json directly, an artifact file keeps one as a sibling. An
// explicit override wins when non-empty.
func Resolve(target, override string) (string, error) {
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		return trimmed, nil
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", coreerrors.Wrap(
			fmt.Errorf("stat target: %w", err),
			coreerrors.CategoryIOFailure, "target_unreadable", "check the app path", false,
		)
	}
	if info.IsDir() {
		return filepath.Join(target, FileName), nil
	}
	return filepath.Join(filepath.Dir(target), FileName), nil
}
