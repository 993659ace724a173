package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/davidahmann/appdepot/core/manifest"
	"github.com/davidahmann/appdepot/core/registry"
)

type publishOutput struct {
	OK            bool   `json:"ok"`
	AppID         string `json:"app_id,omitempty"`
	Version       string `json:"version,omitempty"`
	Hash          string `json:"hash,omitempty"`
	ArtifactPath  string `json:"artifact_path,omitempty"`
	ManifestPath  string `json:"manifest_path,omitempty"`
	SignaturePath string `json:"signature_path,omitempty"`
	IndexPath     string `json:"index_path,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorCategory string `json:"error_category,omitempty"`
	Hint          string `json:"hint,omitempty"`
}

func runPublish(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Validate an app's manifest and copy the artifact, manifest, and optional signature into a file-based registry, updating its index.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"app":       true,
		"registry":  true,
		"manifest":  true,
		"signature": true,
	})

	flagSet := flag.NewFlagSet("publish", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var appPath string
	var registryRoot string
	var manifestOverride string
	var signaturePath string
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&appPath, "app", "", "path to the app artifact")
	flagSet.StringVar(&registryRoot, "registry", "", "registry root directory")
	flagSet.StringVar(&manifestOverride, "manifest", "", "path to the manifest (default: manifest.json beside the artifact)")
	flagSet.StringVar(&signaturePath, "signature", "", "path to a detached signature record to publish alongside")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writePublishOutput(jsonOutput, publishOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printPublishUsage()
		return exitOK
	}
	artifactPath, err := resolveAppArgument(appPath, flagSet.Args())
	if err != nil {
		return writePublishOutput(jsonOutput, publishOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if strings.TrimSpace(registryRoot) == "" {
		return writePublishOutput(jsonOutput, publishOutput{OK: false, Error: "a registry root is required (--registry <path>)"}, exitInvalidInput)
	}

	manifestPath, err := manifest.Resolve(artifactPath, manifestOverride)
	if err != nil {
		return writePublishOutput(jsonOutput, publishFailure(err), exitCodeForError(err, exitInvalidInput))
	}
	// Schema validation gates publish; a manifest that fails never lands
	// in the registry, and an invalid manifest always exits 1.
	if _, raw, loadErr := manifest.Load(manifestPath); loadErr != nil {
		return writePublishOutput(jsonOutput, publishFailure(loadErr), exitManifestInvalid)
	} else if validateErr := manifest.Validate(raw); validateErr != nil {
		return writePublishOutput(jsonOutput, publishFailure(validateErr), exitManifestInvalid)
	}

	result, err := registry.Publish(registry.PublishOptions{
		ArtifactPath:  artifactPath,
		ManifestPath:  manifestPath,
		SignaturePath: signaturePath,
		RegistryRoot:  registryRoot,
	})
	if err != nil {
		return writePublishOutput(jsonOutput, publishFailure(err), exitCodeForError(err, exitInternalFailure))
	}

	return writePublishOutput(jsonOutput, publishOutput{
		OK:            true,
		AppID:         result.AppID,
		Version:       result.Version,
		Hash:          result.Hash,
		ArtifactPath:  result.ArtifactPath,
		ManifestPath:  result.ManifestPath,
		SignaturePath: result.SignaturePath,
		IndexPath:     result.IndexPath,
	}, exitOK)
}

func publishFailure(err error) publishOutput {
	code, category, hint := errorEnvelopeFields(err)
	return publishOutput{OK: false, Error: err.Error(), ErrorCode: code, ErrorCategory: category, Hint: hint}
}

func writePublishOutput(jsonOutput bool, output publishOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("Published %s@%s\n", output.AppID, output.Version)
		return exitCode
	}
	fmt.Printf("publish error: %s\n", output.Error)
	return exitCode
}

func printPublishUsage() {
	fmt.Println("Usage:")
	fmt.Println("  appdepot publish --app <artifact> --registry <root> [--manifest <path>] [--signature <path>] [--json] [--explain]")
}
