package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	coreerrors "github.com/davidahmann/appdepot/core/errors"
	"github.com/davidahmann/appdepot/core/fsx"
	schemaapp "github.com/davidahmann/appdepot/core/schema/v1/app"
)

// IndexFileName is the registry's single system-of-record document,
// relative to the registry root.
const IndexFileName = "index.json"

func IndexPath(registryRoot string) string {
	return filepath.Join(registryRoot, IndexFileName)
}

// LoadIndex reads and parses the registry index. A missing index is an
// error; publishers that tolerate a fresh registry use LoadOrInitIndex.
func LoadIndex(registryRoot string) (schemaapp.Index, error) {
	// #nosec G304 -- registry root is explicit local user input.
	raw, err := os.ReadFile(IndexPath(registryRoot))
	if err != nil {
		return schemaapp.Index{}, coreerrors.Wrap(
			fmt.Errorf("read registry index: %w", err),
			coreerrors.CategoryIOFailure, "index_unreadable", "check the registry root path", false,
		)
	}
	var index schemaapp.Index
	if err := json.Unmarshal(raw, &index); err != nil {
		return schemaapp.Index{}, coreerrors.Wrap(
			fmt.Errorf("parse registry index: %w", err),
			coreerrors.CategoryParseFailure, "index_malformed", "restore the index from a known-good publish", false,
		)
	}
	if index.Apps == nil {
		index.Apps = map[string]schemaapp.AppEntry{}
	}
	return index, nil
}

// LoadOrInitIndex returns the existing index or an empty one when the
// registry root has never been published to.
func LoadOrInitIndex(registryRoot string) (schemaapp.Index, error) {
	if _, err := os.Stat(IndexPath(registryRoot)); os.IsNotExist(err) {
		return schemaapp.Index{Apps: map[string]schemaapp.AppEntry{}}, nil
	}
	return LoadIndex(registryRoot)
}

// SaveIndex rewrites the whole index, pretty-printed, through an atomic
// rename so a crash cannot leave a partial document behind. Serializing
// concurrent publishers against one root remains a caller obligation.
func SaveIndex(registryRoot string, index schemaapp.Index) error {
	encoded, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return coreerrors.Wrap(
			fmt.Errorf("encode registry index: %w", err),
			coreerrors.CategoryInternalFailure, "index_encode", "retry the publish", false,
		)
	}
	encoded = append(encoded, '\n')
	if err := fsx.WriteFileAtomic(IndexPath(registryRoot), encoded, 0o600); err != nil {
		return coreerrors.Wrap(
			fmt.Errorf("write registry index: %w", err),
			coreerrors.CategoryIOFailure, "index_write", "check registry root permissions", false,
		)
	}
	return nil
}
