package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/davidahmann/appdepot/core/digest"
)

func writeTestApp(t *testing.T, dir, id, version string, payload []byte) (artifactPath, manifestPath string) {
	t.Helper()
	artifactPath = filepath.Join(dir, "app.zip")
	if err := os.WriteFile(artifactPath, payload, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	manifestPath = filepath.Join(dir, "manifest.json")
	content := fmt.Sprintf(`{"id":%q,"name":"Test App","version":%q,"entry":{"type":"html","path":"index.html"}}`, id, version)
	if err := os.WriteFile(manifestPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return artifactPath, manifestPath
}

func TestPublishFreshRegistry(t *testing.T) {
	workDir := t.TempDir()
	registryRoot := t.TempDir()
	payload := []byte("bundle bytes")
	artifactPath, manifestPath := writeTestApp(t, workDir, "com.example.notes", "1.0.0", payload)

	result, err := Publish(PublishOptions{
		ArtifactPath: artifactPath,
		ManifestPath: manifestPath,
		RegistryRoot: registryRoot,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.AppID != "com.example.notes" || result.Version != "1.0.0" {
		t.Fatalf("unexpected identity: %+v", result)
	}
	if result.Hash != digest.Bytes(payload) {
		t.Fatalf("unexpected hash: %s", result.Hash)
	}

	index, err := LoadIndex(registryRoot)
	if err != nil {
		t.Fatalf("load index: %v", err)
	}
	appEntry, ok := index.Apps["com.example.notes"]
	if !ok {
		t.Fatal("app missing from index")
	}
	if appEntry.Latest != "1.0.0" {
		t.Fatalf("unexpected latest: %s", appEntry.Latest)
	}
	versionEntry, ok := appEntry.Versions["1.0.0"]
	if !ok {
		t.Fatal("version missing from index")
	}
	if versionEntry.Path != "apps/com.example.notes/1.0.0/app.zip" {
		t.Fatalf("unexpected artifact path: %s", versionEntry.Path)
	}
	if versionEntry.Manifest != "apps/com.example.notes/1.0.0/manifest.json" {
		t.Fatalf("unexpected manifest path: %s", versionEntry.Manifest)
	}
	if versionEntry.Signature != "" {
		t.Fatalf("unexpected signature reference: %s", versionEntry.Signature)
	}
	if versionEntry.Hash != result.Hash {
		t.Fatal("index hash differs from publish result")
	}

	copied, err := os.ReadFile(filepath.Join(registryRoot, "apps", "com.example.notes", "1.0.0", "app.zip"))
	if err != nil {
		t.Fatalf("read published artifact: %v", err)
	}
	if string(copied) != string(payload) {
		t.Fatal("published artifact differs from source")
	}
}

func TestPublishIdempotent(t *testing.T) {
	workDir := t.TempDir()
	registryRoot := t.TempDir()
	artifactPath, manifestPath := writeTestApp(t, workDir, "com.example.notes", "1.0.0", []byte("same bytes"))
	opts := PublishOptions{ArtifactPath: artifactPath, ManifestPath: manifestPath, RegistryRoot: registryRoot}

	first, err := Publish(opts)
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}
	second, err := Publish(opts)
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if first.Hash != second.Hash {
		t.Fatal("republish changed the recorded hash")
	}
	index, err := LoadIndex(registryRoot)
	if err != nil {
		t.Fatalf("load index: %v", err)
	}
	appEntry := index.Apps["com.example.notes"]
	if len(appEntry.Versions) != 1 {
		t.Fatalf("expected one version entry, got %d", len(appEntry.Versions))
	}
	if appEntry.Latest != "1.0.0" {
		t.Fatalf("unexpected latest: %s", appEntry.Latest)
	}
}

func TestPublishLatestMonotonic(t *testing.T) {
	registryRoot := t.TempDir()

	newerDir := t.TempDir()
	newerArtifact, newerManifest := writeTestApp(t, newerDir, "com.example.notes", "1.3.0", []byte("newer"))
	if _, err := Publish(PublishOptions{ArtifactPath: newerArtifact, ManifestPath: newerManifest, RegistryRoot: registryRoot}); err != nil {
		t.Fatalf("publish 1.3.0: %v", err)
	}

	olderDir := t.TempDir()
	olderArtifact, olderManifest := writeTestApp(t, olderDir, "com.example.notes", "1.2.0", []byte("older"))
	if _, err := Publish(PublishOptions{ArtifactPath: olderArtifact, ManifestPath: olderManifest, RegistryRoot: registryRoot}); err != nil {
		t.Fatalf("publish 1.2.0: %v", err)
	}

	index, err := LoadIndex(registryRoot)
	if err != nil {
		t.Fatalf("load index: %v", err)
	}
	appEntry := index.Apps["com.example.notes"]
	if appEntry.Latest != "1.3.0" {
		t.Fatalf("latest moved backwards: %s", appEntry.Latest)
	}
	if _, ok := appEntry.Versions["1.2.0"]; !ok {
		t.Fatal("older version entry missing")
	}
}

func TestPublishWithSignature(t *testing.T) {
	workDir := t.TempDir()
	registryRoot := t.TempDir()
	artifactPath, manifestPath := writeTestApp(t, workDir, "com.example.notes", "1.0.0", []byte("signed bytes"))
	signaturePath := filepath.Join(workDir, "app.sig.json")
	signatureBody := []byte(`{"appId":"com.example.notes","version":"1.0.0"}`)
	if err := os.WriteFile(signaturePath, signatureBody, 0o600); err != nil {
		t.Fatalf("write signature: %v", err)
	}

	result, err := Publish(PublishOptions{
		ArtifactPath:  artifactPath,
		ManifestPath:  manifestPath,
		SignaturePath: signaturePath,
		RegistryRoot:  registryRoot,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	copied, err := os.ReadFile(result.SignaturePath)
	if err != nil {
		t.Fatalf("read published signature: %v", err)
	}
	if string(copied) != string(signatureBody) {
		t.Fatal("signature not copied verbatim")
	}

	index, err := LoadIndex(registryRoot)
	if err != nil {
		t.Fatalf("load index: %v", err)
	}
	entry := index.Apps["com.example.notes"].Versions["1.0.0"]
	if entry.Signature != "apps/com.example.notes/1.0.0/signature.json" {
		t.Fatalf("unexpected signature reference: %s", entry.Signature)
	}
}

func TestPublishRejectsMissingIdentity(t *testing.T) {
	workDir := t.TempDir()
	registryRoot := t.TempDir()
	artifactPath := filepath.Join(workDir, "app.zip")
	if err := os.WriteFile(artifactPath, []byte("x"), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	manifestPath := filepath.Join(workDir, "manifest.json")
	if err := os.WriteFile(manifestPath, []byte(`{"name":"No Identity"}`), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if _, err := Publish(PublishOptions{ArtifactPath: artifactPath, ManifestPath: manifestPath, RegistryRoot: registryRoot}); err == nil {
		t.Fatal("expected error for manifest without id/version")
	}
}

func TestPublishRejectsMissingSignatureFile(t *testing.T) {
	workDir := t.TempDir()
	registryRoot := t.TempDir()
	artifactPath, manifestPath := writeTestApp(t, workDir, "com.example.notes", "1.0.0", []byte("x"))
	_, err := Publish(PublishOptions{
		ArtifactPath:  artifactPath,
		ManifestPath:  manifestPath,
		SignaturePath: filepath.Join(workDir, "absent.sig.json"),
		RegistryRoot:  registryRoot,
	})
	if err == nil {
		t.Fatal("expected error for missing signature file")
	}
}

func TestSaveIndexPrettyPrinted(t *testing.T) {
	workDir := t.TempDir()
	registryRoot := t.TempDir()
	artifactPath, manifestPath := writeTestApp(t, workDir, "com.example.notes", "1.0.0", []byte("x"))
	if _, err := Publish(PublishOptions{ArtifactPath: artifactPath, ManifestPath: manifestPath, RegistryRoot: registryRoot}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	raw, err := os.ReadFile(IndexPath(registryRoot))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("index not valid json: %v", err)
	}
	if raw[len(raw)-1] != '\n' {
		t.Fatal("expected trailing newline")
	}
}
