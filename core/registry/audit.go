package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davidahmann/appdepot/core/digest"
	"github.com/davidahmann/appdepot/core/manifest"
	schemaapp "github.com/davidahmann/appdepot/core/schema/v1/app"
	"github.com/davidahmann/appdepot/core/sign"
)

type Finding struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Report is the aggregated audit verdict. Errors and warnings keep
// deterministic traversal order: apps lexicographic, latest-pointer
// findings first per app, then versions in registry version order.
type Report struct {
	Valid    bool      `json:"valid"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
}

type AuditOptions struct {
	RequireSignature bool
}

type auditor struct {
	root     string
	opts     AuditOptions
	errors   []Finding
	warnings []Finding
}

func (a *auditor) errorf(path, format string, args ...any) {
	a.errors = append(a.errors, Finding{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (a *auditor) warnf(path, format string, args ...any) {
	a.warnings = append(a.warnings, Finding{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (a *auditor) report() Report {
	return Report{
		Valid:    len(a.errors) == 0,
		Errors:   a.errors,
		Warnings: a.warnings,
	}
}

// ValidateRegistry re-derives every integrity property of a registry:
// recorded hashes, manifest schema and identity, signature validity, and
// latest-pointer consistency. Per-entry failures accumulate as findings;
// only a missing or malformed index is fatal.
func ValidateRegistry(registryRoot string, opts AuditOptions) Report {
	a := &auditor{
		root:     registryRoot,
		opts:     opts,
		errors:   []Finding{},
		warnings: []Finding{},
	}

	// #nosec G304 -- registry root is explicit local user input.
	raw, err := os.ReadFile(IndexPath(registryRoot))
	if err != nil {
		a.errorf("index", "registry index unreadable: %v", err)
		return a.report()
	}
	var document map[string]json.RawMessage
	if err := json.Unmarshal(raw, &document); err != nil {
		a.errorf("index", "registry index malformed: %v", err)
		return a.report()
	}
	appsRaw, hasApps := document["apps"]
	if !hasApps {
		a.errorf("index", "registry index lacks an apps map")
		return a.report()
	}
	var apps map[string]json.RawMessage
	if err := json.Unmarshal(appsRaw, &apps); err != nil {
		a.errorf("index", "registry apps entry is not a map: %v", err)
		return a.report()
	}

	appIDs := make([]string, 0, len(apps))
	for appID := range apps {
		appIDs = append(appIDs, appID)
	}
	sort.Strings(appIDs)
	for _, appID := range appIDs {
		a.auditApp(appID, apps[appID])
	}
	return a.report()
}

type rawAppEntry struct {
	Latest   string                     `json:"latest"`
	Versions map[string]json.RawMessage `json:"versions"`
}

func (a *auditor) auditApp(appID string, raw json.RawMessage) {
	appPath := "apps." + appID

	var entry rawAppEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		a.errorf(appPath, "app entry malformed: %v", err)
		return
	}

	versions := make([]string, 0, len(entry.Versions))
	for version := range entry.Versions {
		versions = append(versions, version)
	}
	sortVersions(versions)

	if entry.Latest != "" {
		if _, present := entry.Versions[entry.Latest]; !present {
			a.errorf(appPath, "latest %q is not a published version", entry.Latest)
		} else if newest := MaxVersion(versions); newest != "" && entry.Latest != newest {
			a.warnf(appPath, "latest %q is not the newest published version %q", entry.Latest, newest)
		}
	}

	for _, version := range versions {
		a.auditVersion(appID, version, entry.Versions[version])
	}
}

func (a *auditor) auditVersion(appID, version string, raw json.RawMessage) {
	entryPath := fmt.Sprintf("apps.%s.versions.%s", appID, version)

	var entry schemaapp.VersionEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		a.errorf(entryPath, "version entry malformed: %v", err)
		return
	}
	if strings.TrimSpace(entry.Path) == "" || strings.TrimSpace(entry.Manifest) == "" {
		a.errorf(entryPath, "version entry must reference an artifact path and a manifest")
		return
	}

	artifactPath := filepath.Join(a.root, filepath.FromSlash(entry.Path))
	manifestPath := filepath.Join(a.root, filepath.FromSlash(entry.Manifest))
	missing := false
	if !isReadableFile(artifactPath) {
		a.errorf(entryPath, "artifact %s is missing or unreadable", entry.Path)
		missing = true
	}
	if !isReadableFile(manifestPath) {
		a.errorf(entryPath, "manifest %s is missing or unreadable", entry.Manifest)
		missing = true
	}
	if missing {
		// Hash and signature checks are meaningless without the files.
		return
	}

	computedHash, err := digest.File(artifactPath)
	if err != nil {
		a.errorf(entryPath, "hash artifact: %v", err)
		return
	}
	if !digest.EqualHex(computedHash, entry.Hash) {
		a.errorf(entryPath, "hash mismatch: index records %s, artifact is %s", entry.Hash, computedHash)
	}

	if !a.auditManifest(entryPath, manifestPath, appID, version) {
		// An unparseable manifest halts the remaining checks for this
		// version; a signature finding on top would be noise.
		return
	}
	a.auditSignature(entryPath, entry, computedHash)
}

// auditManifest reports false when the manifest could not be read or
// parsed. Schema and identity violations are recorded but do not halt
// the version's remaining checks.
func (a *auditor) auditManifest(entryPath, manifestPath, appID, version string) bool {
	parsed, rawManifest, err := manifest.Load(manifestPath)
	if err != nil {
		a.errorf(entryPath, "%v", err)
		return false
	}
	if err := manifest.Validate(rawManifest); err != nil {
		a.errorf(entryPath, "%v", err)
	}
	for _, err := range manifest.CheckIdentity(parsed, appID, version) {
		a.errorf(entryPath, "%v", err)
	}
	return true
}

func (a *auditor) auditSignature(entryPath string, entry schemaapp.VersionEntry, computedHash string) {
	if strings.TrimSpace(entry.Signature) == "" {
		if a.opts.RequireSignature {
			a.errorf(entryPath, "signature required but not declared")
		} else {
			a.warnf(entryPath, "no signature declared")
		}
		return
	}
	signaturePath := filepath.Join(a.root, filepath.FromSlash(entry.Signature))
	// #nosec G304 -- signature path is resolved under the registry root.
	raw, err := os.ReadFile(signaturePath)
	if err != nil {
		a.errorf(entryPath, "signature %s is missing or unreadable", entry.Signature)
		return
	}
	var record schemaapp.SignatureRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		a.errorf(entryPath, "signature file malformed: %v", err)
		return
	}
	if result := sign.VerifyRecord(record, computedHash); !result.OK {
		a.errorf(entryPath, "signature invalid: %s", result.Reason)
	}
}

func isReadableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	// #nosec G304 -- path is resolved under the registry root.
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}
