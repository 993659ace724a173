package registry

import (
	"os"
	"testing"

	coreerrors "github.com/davidahmann/appdepot/core/errors"
	schemaapp "github.com/davidahmann/appdepot/core/schema/v1/app"
)

func TestLoadIndexMissing(t *testing.T) {
	_, err := LoadIndex(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing index")
	}
	if coreerrors.CodeOf(err) != "index_unreadable" {
		t.Fatalf("unexpected error code: %s", coreerrors.CodeOf(err))
	}
}

func TestLoadIndexMalformed(t *testing.T) {
	registryRoot := t.TempDir()
	if err := os.WriteFile(IndexPath(registryRoot), []byte("not json"), 0o600); err != nil {
		t.Fatalf("write index: %v", err)
	}
	_, err := LoadIndex(registryRoot)
	if err == nil {
		t.Fatal("expected error for malformed index")
	}
	if coreerrors.CategoryOf(err) != coreerrors.CategoryParseFailure {
		t.Fatalf("unexpected category: %s", coreerrors.CategoryOf(err))
	}
}

func TestLoadOrInitIndexFreshRoot(t *testing.T) {
	index, err := LoadOrInitIndex(t.TempDir())
	if err != nil {
		t.Fatalf("init index: %v", err)
	}
	if index.Apps == nil || len(index.Apps) != 0 {
		t.Fatalf("expected empty apps map, got %+v", index.Apps)
	}
}

func TestSaveAndReloadIndex(t *testing.T) {
	registryRoot := t.TempDir()
	index := schemaapp.Index{Apps: map[string]schemaapp.AppEntry{
		"com.example.notes": {
			Latest: "1.0.0",
			Versions: map[string]schemaapp.VersionEntry{
				"1.0.0": {
					Path:     "apps/com.example.notes/1.0.0/app.zip",
					Manifest: "apps/com.example.notes/1.0.0/manifest.json",
					Hash:     "deadbeef",
				},
			},
		},
	}}
	if err := SaveIndex(registryRoot, index); err != nil {
		t.Fatalf("save index: %v", err)
	}
	reloaded, err := LoadIndex(registryRoot)
	if err != nil {
		t.Fatalf("reload index: %v", err)
	}
	entry := reloaded.Apps["com.example.notes"]
	if entry.Latest != "1.0.0" {
		t.Fatalf("unexpected latest: %s", entry.Latest)
	}
	if entry.Versions["1.0.0"].Hash != "deadbeef" {
		t.Fatalf("unexpected hash: %s", entry.Versions["1.0.0"].Hash)
	}
}
