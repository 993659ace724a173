package validate

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed manifest.schema.json
var manifestSchemaJSON []byte

var (
	manifestSchemaOnce sync.Once
	manifestSchema     *jsonschema.Schema
	manifestSchemaErr  error
)

// ManifestSchema compiles the embedded app manifest schema once and reuses it.
func ManifestSchema() (*jsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		manifestSchema, manifestSchemaErr = compileSchema(manifestSchemaJSON)
	})
	return manifestSchema, manifestSchemaErr
}

// ValidateManifestJSON checks raw manifest bytes against the embedded schema.
// The returned error lists every violated keyword path in a stable order.
func ValidateManifestJSON(data []byte) error {
	schema, err := ManifestSchema()
	if err != nil {
		return err
	}
	return validateJSON(schema, data)
}

func compileSchema(data []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateJSON(schema *jsonschema.Schema, data []byte) error {
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
