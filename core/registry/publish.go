package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/davidahmann/appdepot/core/digest"
	coreerrors "github.com/davidahmann/appdepot/core/errors"
	"github.com/davidahmann/appdepot/core/fsx"
	"github.com/davidahmann/appdepot/core/manifest"
	schemaapp "github.com/davidahmann/appdepot/core/schema/v1/app"
)

// SignatureFileName is the published signature file name inside a version
// directory.
const SignatureFileName = "signature.json"

type PublishOptions struct {
	ArtifactPath  string
	ManifestPath  string
	SignaturePath string
	RegistryRoot  string
}

type PublishResult struct {
	AppID         string `json:"app_id"`
	Version       string `json:"version"`
	Hash          string `json:"hash"`
	ArtifactPath  string `json:"artifact_path"`
	ManifestPath  string `json:"manifest_path"`
	SignaturePath string `json:"signature_path,omitempty"`
	IndexPath     string `json:"index_path"`
}

// Publish materializes an artifact, its manifest, and an optional detached
// signature under apps/<id>/<version>, then rewrites the index and
// advances the latest pointer. Republishing an existing (id, version)
// overwrites in place; the registry never deletes entries.
func Publish(opts PublishOptions) (PublishResult, error) {
	registryRoot := strings.TrimSpace(opts.RegistryRoot)
	if registryRoot == "" {
		return PublishResult{}, coreerrors.Wrap(
			fmt.Errorf("registry root is required"),
			coreerrors.CategoryInvalidInput, "registry_root_missing", "pass --registry <path>", false,
		)
	}

	parsed, rawManifest, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return PublishResult{}, err
	}
	// Schema validation runs upstream; id and version are re-checked here
	// because the storage layout depends on them.
	if strings.TrimSpace(parsed.ID) == "" || strings.TrimSpace(parsed.Version) == "" {
		return PublishResult{}, coreerrors.Wrap(
			fmt.Errorf("manifest id and version are required"),
			coreerrors.CategoryInvalidInput, "manifest_identity_missing", "set id and version in the manifest", false,
		)
	}

	artifactHash, err := digest.File(opts.ArtifactPath)
	if err != nil {
		return PublishResult{}, coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "artifact_unreadable", "check the app path", false)
	}

	var signatureRaw []byte
	if strings.TrimSpace(opts.SignaturePath) != "" {
		// Copied verbatim; publish does not re-validate signatures.
		// #nosec G304 -- caller supplies local signature path by design.
		signatureRaw, err = os.ReadFile(opts.SignaturePath)
		if err != nil {
			return PublishResult{}, coreerrors.Wrap(
				fmt.Errorf("read signature: %w", err),
				coreerrors.CategoryIOFailure, "signature_unreadable", "check the signature path", false,
			)
		}
	}

	relDir := path.Join("apps", parsed.ID, parsed.Version)
	versionDir := filepath.Join(registryRoot, filepath.FromSlash(relDir))
	if err := fsx.EnsureDir(versionDir); err != nil {
		return PublishResult{}, coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "registry_mkdir", "check registry root permissions", false)
	}

	artifactName := filepath.Base(opts.ArtifactPath)
	artifactDst := filepath.Join(versionDir, artifactName)
	if err := fsx.CopyFile(opts.ArtifactPath, artifactDst, 0o600); err != nil {
		return PublishResult{}, coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "artifact_copy", "check registry root permissions", false)
	}

	prettyManifest, err := prettyJSON(rawManifest)
	if err != nil {
		return PublishResult{}, err
	}
	manifestDst := filepath.Join(versionDir, manifest.FileName)
	if err := fsx.WriteFileAtomic(manifestDst, prettyManifest, 0o600); err != nil {
		return PublishResult{}, coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "manifest_write", "check registry root permissions", false)
	}

	signatureDst := ""
	entry := schemaapp.VersionEntry{
		Path:     path.Join(relDir, artifactName),
		Manifest: path.Join(relDir, manifest.FileName),
		Hash:     artifactHash,
	}
	if signatureRaw != nil {
		signatureDst = filepath.Join(versionDir, SignatureFileName)
		if err := fsx.WriteFileAtomic(signatureDst, signatureRaw, 0o600); err != nil {
			return PublishResult{}, coreerrors.Wrap(err, coreerrors.CategoryIOFailure, "signature_write", "check registry root permissions", false)
		}
		entry.Signature = path.Join(relDir, SignatureFileName)
	}

	index, err := LoadOrInitIndex(registryRoot)
	if err != nil {
		return PublishResult{}, err
	}
	appEntry, exists := index.Apps[parsed.ID]
	if !exists {
		appEntry = schemaapp.AppEntry{Versions: map[string]schemaapp.VersionEntry{}}
	}
	if appEntry.Versions == nil {
		appEntry.Versions = map[string]schemaapp.VersionEntry{}
	}
	appEntry.Versions[parsed.Version] = entry
	if appEntry.Latest == "" || CompareVersions(parsed.Version, appEntry.Latest) > 0 {
		appEntry.Latest = parsed.Version
	}
	index.Apps[parsed.ID] = appEntry
	if err := SaveIndex(registryRoot, index); err != nil {
		return PublishResult{}, err
	}

	return PublishResult{
		AppID:         parsed.ID,
		Version:       parsed.Version,
		Hash:          artifactHash,
		ArtifactPath:  artifactDst,
		ManifestPath:  manifestDst,
		SignaturePath: signatureDst,
		IndexPath:     IndexPath(registryRoot),
	}, nil
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, coreerrors.Wrap(
			fmt.Errorf("format manifest: %w", err),
			coreerrors.CategoryParseFailure, "manifest_malformed", "the manifest must be valid JSON", false,
		)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
