package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/davidahmann/appdepot/core/digest"
	coreerrors "github.com/davidahmann/appdepot/core/errors"
	"github.com/davidahmann/appdepot/core/manifest"
	schemaapp "github.com/davidahmann/appdepot/core/schema/v1/app"
	"github.com/davidahmann/appdepot/core/sign"
)

type verifyOutput struct {
	OK             bool   `json:"ok"`
	Hash           string `json:"hash,omitempty"`
	AppID          string `json:"app_id,omitempty"`
	Version        string `json:"version,omitempty"`
	ManifestDigest string `json:"manifest_digest,omitempty"`
	SignatureAlg   string `json:"signature_alg,omitempty"`
	KeyID          string `json:"key_id,omitempty"`
	Warning        string `json:"warning,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
	ErrorCategory  string `json:"error_category,omitempty"`
	Hint           string `json:"hint,omitempty"`
}

func runVerify(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Validate an app's manifest and, for an artifact, recompute its sha256 hash and check an optional detached signature.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"app":       true,
		"manifest":  true,
		"signature": true,
	})

	flagSet := flag.NewFlagSet("verify", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var appPath string
	var manifestOverride string
	var signaturePath string
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&appPath, "app", "", "path to the app artifact or directory")
	flagSet.StringVar(&manifestOverride, "manifest", "", "path to the manifest (default: manifest.json beside or inside the target)")
	flagSet.StringVar(&signaturePath, "signature", "", "detached signature record to verify")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeVerifyOutput(jsonOutput, verifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printVerifyUsage()
		return exitOK
	}
	target, err := resolveAppArgument(appPath, flagSet.Args())
	if err != nil {
		return writeVerifyOutput(jsonOutput, verifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}

	output, exitCode := verifyTarget(target, manifestOverride, signaturePath)
	return writeVerifyOutput(jsonOutput, output, exitCode)
}

func verifyTarget(target, manifestOverride, signaturePath string) (verifyOutput, int) {
	info, err := os.Stat(target)
	if err != nil {
		wrapped := coreerrors.Wrap(
			fmt.Errorf("stat target: %w", err),
			coreerrors.CategoryIOFailure, "target_unreadable", "check the app path", false,
		)
		return verifyFailure(wrapped), exitCodeForError(wrapped, exitInternalFailure)
	}
	isDir := info.IsDir()

	manifestPath, err := manifest.Resolve(target, manifestOverride)
	if err != nil {
		return verifyFailure(err), exitCodeForError(err, exitInternalFailure)
	}
	parsed, raw, err := manifest.Load(manifestPath)
	if err != nil {
		return verifyFailure(err), exitManifestInvalid
	}
	if err := manifest.Validate(raw); err != nil {
		return verifyFailure(err), exitManifestInvalid
	}
	canonicalDigest, err := manifest.Digest(raw)
	if err != nil {
		return verifyFailure(err), exitManifestInvalid
	}

	output := verifyOutput{
		OK:             true,
		AppID:          parsed.ID,
		Version:        parsed.Version,
		ManifestDigest: canonicalDigest,
	}
	if isDir {
		// A directory target has no single artifact to hash or verify a
		// signature against; manifest validity is the whole check.
		return output, exitOK
	}

	artifactHash, err := digest.File(target)
	if err != nil {
		return verifyFailure(err), exitCodeForError(err, exitInternalFailure)
	}
	output.Hash = artifactHash

	if signaturePath != "" {
		// #nosec G304 -- caller supplies local signature path by design.
		rawSignature, err := os.ReadFile(signaturePath)
		if err != nil {
			return verifyFailure(fmt.Errorf("read signature: %w", err)), exitInternalFailure
		}
		var record schemaapp.SignatureRecord
		if err := json.Unmarshal(rawSignature, &record); err != nil {
			return verifyFailure(fmt.Errorf("parse signature record: %w", err)), exitInvalidInput
		}
		if record.AppID != parsed.ID || record.Version != parsed.Version {
			failed := output
			failed.OK = false
			failed.Error = fmt.Sprintf("signature identity %s@%s does not match manifest %s@%s",
				record.AppID, record.Version, parsed.ID, parsed.Version)
			return failed, exitVerifyFailed
		}
		result := sign.VerifyRecord(record, artifactHash)
		if !result.OK {
			failed := output
			failed.OK = false
			failed.Error = "signature invalid: " + result.Reason
			return failed, exitVerifyFailed
		}
		output.SignatureAlg = record.SignatureAlg
		output.Warning = result.Reason
		if pub, _, err := sign.ParsePublicKeyPEM([]byte(record.PublicKey)); err == nil {
			if fingerprint, err := sign.Fingerprint(pub); err == nil {
				output.KeyID = fingerprint
			}
		}
	}

	return output, exitOK
}

func verifyFailure(err error) verifyOutput {
	code, category, hint := errorEnvelopeFields(err)
	return verifyOutput{OK: false, Error: err.Error(), ErrorCode: code, ErrorCategory: category, Hint: hint}
}

func writeVerifyOutput(jsonOutput bool, output verifyOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		if output.Hash != "" {
			fmt.Printf("hash: %s\n", output.Hash)
		}
		fmt.Printf("manifest: %s@%s digest=%s\n", output.AppID, output.Version, output.ManifestDigest)
		if output.SignatureAlg != "" {
			fmt.Printf("signature: valid (%s)\n", output.SignatureAlg)
		}
		if output.Warning != "" {
			fmt.Printf("warning: %s\n", output.Warning)
		}
		return exitCode
	}
	fmt.Printf("verify error: %s\n", output.Error)
	return exitCode
}

func printVerifyUsage() {
	fmt.Println("Usage:")
	fmt.Println("  appdepot verify --app <artifact-or-dir> [--manifest <path>] [--signature <path>] [--json] [--explain]")
}
