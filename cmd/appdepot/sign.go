package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/davidahmann/appdepot/core/digest"
	"github.com/davidahmann/appdepot/core/fsx"
	"github.com/davidahmann/appdepot/core/manifest"
	"github.com/davidahmann/appdepot/core/sign"
)

type signOutput struct {
	OK            bool   `json:"ok"`
	AppID         string `json:"app_id,omitempty"`
	Version       string `json:"version,omitempty"`
	Hash          string `json:"hash,omitempty"`
	SignatureAlg  string `json:"signature_alg,omitempty"`
	SignaturePath string `json:"signature_path,omitempty"`
	KeyID         string `json:"key_id,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorCode     string `json:"error_code,omitempty"`
	ErrorCategory string `json:"error_category,omitempty"`
	Hint          string `json:"hint,omitempty"`
}

func runSign(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Hash an app artifact and produce a detached signature record with a local private key.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"app":      true,
		"key":      true,
		"manifest": true,
		"out":      true,
	})

	flagSet := flag.NewFlagSet("sign", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var appPath string
	var keyPath string
	var manifestOverride string
	var outPath string
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&appPath, "app", "", "path to the app artifact")
	flagSet.StringVar(&keyPath, "key", "", "path to a PEM private key")
	flagSet.StringVar(&manifestOverride, "manifest", "", "path to the manifest (default: manifest.json beside the artifact)")
	flagSet.StringVar(&outPath, "out", "", "signature output path (default: <artifact>.sig.json)")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeSignOutput(jsonOutput, signOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printSignUsage()
		return exitOK
	}
	artifactPath, err := resolveAppArgument(appPath, flagSet.Args())
	if err != nil {
		return writeSignOutput(jsonOutput, signOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if strings.TrimSpace(keyPath) == "" {
		return writeSignOutput(jsonOutput, signOutput{OK: false, Error: "a private key is required (--key <path>)"}, exitInvalidInput)
	}

	output, err := signArtifact(artifactPath, keyPath, manifestOverride, outPath)
	if err != nil {
		return writeSignOutput(jsonOutput, signFailure(err), exitCodeForError(err, exitInvalidInput))
	}
	return writeSignOutput(jsonOutput, output, exitOK)
}

func signArtifact(artifactPath, keyPath, manifestOverride, outPath string) (signOutput, error) {
	manifestPath, err := manifest.Resolve(artifactPath, manifestOverride)
	if err != nil {
		return signOutput{}, err
	}
	parsed, _, err := manifest.Load(manifestPath)
	if err != nil {
		return signOutput{}, err
	}
	if strings.TrimSpace(parsed.ID) == "" || strings.TrimSpace(parsed.Version) == "" {
		return signOutput{}, fmt.Errorf("manifest at %s lacks id or version", manifestPath)
	}

	artifactHash, err := digest.File(artifactPath)
	if err != nil {
		return signOutput{}, err
	}
	signer, _, err := sign.LoadPrivateKeyPEM(keyPath)
	if err != nil {
		return signOutput{}, err
	}
	keyPEM, err := sign.EncodePrivateKeyPEM(signer)
	if err != nil {
		return signOutput{}, err
	}
	record, err := sign.NewRecord(parsed.ID, parsed.Version, artifactHash, keyPEM, time.Now())
	if err != nil {
		return signOutput{}, err
	}
	fingerprint, err := sign.Fingerprint(signer.Public())
	if err != nil {
		return signOutput{}, err
	}

	if strings.TrimSpace(outPath) == "" {
		outPath = artifactPath + ".sig.json"
	}
	encoded, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return signOutput{}, fmt.Errorf("encode signature record: %w", err)
	}
	encoded = append(encoded, '\n')
	if err := fsx.WriteFileAtomic(outPath, encoded, 0o600); err != nil {
		return signOutput{}, err
	}

	return signOutput{
		OK:            true,
		AppID:         record.AppID,
		Version:       record.Version,
		Hash:          record.Hash,
		SignatureAlg:  record.SignatureAlg,
		SignaturePath: outPath,
		KeyID:         fingerprint,
	}, nil
}

func signFailure(err error) signOutput {
	code, category, hint := errorEnvelopeFields(err)
	return signOutput{OK: false, Error: err.Error(), ErrorCode: code, ErrorCategory: category, Hint: hint}
}

func writeSignOutput(jsonOutput bool, output signOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("Signed %s@%s (%s) -> %s\n", output.AppID, output.Version, output.SignatureAlg, output.SignaturePath)
		return exitCode
	}
	fmt.Printf("sign error: %s\n", output.Error)
	return exitCode
}

func printSignUsage() {
	fmt.Println("Usage:")
	fmt.Println("  appdepot sign --app <artifact> --key <private.pem> [--manifest <path>] [--out <path>] [--json] [--explain]")
}
