package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidahmann/appdepot/core/sign"
)

type keysInitOutput struct {
	OK             bool   `json:"ok"`
	Alg            string `json:"alg,omitempty"`
	KeyID          string `json:"key_id,omitempty"`
	PublicKeyPath  string `json:"public_key_path,omitempty"`
	PrivateKeyPath string `json:"private_key_path,omitempty"`
	Error          string `json:"error,omitempty"`
}

type keysVerifyOutput struct {
	OK    bool   `json:"ok"`
	Alg   string `json:"alg,omitempty"`
	KeyID string `json:"key_id,omitempty"`
	Error string `json:"error,omitempty"`
}

func runKeys(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Manage local PEM signing keys for app signature workflows.")
	}
	if len(arguments) == 0 {
		printKeysUsage()
		return exitInvalidInput
	}
	if arguments[0] == "--help" || arguments[0] == "-h" {
		printKeysUsage()
		return exitOK
	}
	switch arguments[0] {
	case "init":
		return runKeysInit(arguments[1:])
	case "verify":
		return runKeysVerify(arguments[1:])
	default:
		printKeysUsage()
		return exitInvalidInput
	}
}

func runKeysInit(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Generate a new signing keypair and write PKCS#8 and SPKI PEM files to disk.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"alg":     true,
		"out-dir": true,
		"prefix":  true,
	})

	flagSet := flag.NewFlagSet("keys-init", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var alg string
	var outDir string
	var prefix string
	var force bool
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&alg, "alg", "ed25519", "key algorithm: ed25519, rsa, or ecdsa")
	flagSet.StringVar(&outDir, "out-dir", filepath.Join("appdepot-out", "keys"), "directory for generated key files")
	flagSet.StringVar(&prefix, "prefix", "appdepot", "key file prefix")
	flagSet.BoolVar(&force, "force", false, "overwrite existing key files")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeKeysInitOutput(jsonOutput, keysInitOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printKeysInitUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeKeysInitOutput(jsonOutput, keysInitOutput{OK: false, Error: "unexpected positional arguments"}, exitInvalidInput)
	}

	result, err := createSigningKeypair(alg, outDir, prefix, force)
	if err != nil {
		return writeKeysInitOutput(jsonOutput, keysInitOutput{OK: false, Error: err.Error()}, exitCodeForError(err, exitInvalidInput))
	}
	return writeKeysInitOutput(jsonOutput, result, exitOK)
}

func runKeysVerify(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Validate that a PEM private key parses, can sign, and matches an optional public key.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"private-key": true,
		"public-key":  true,
	})

	flagSet := flag.NewFlagSet("keys-verify", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var privateKeyPath string
	var publicKeyPath string
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&privateKeyPath, "private-key", "", "path to a PEM private key")
	flagSet.StringVar(&publicKeyPath, "public-key", "", "path to a PEM public key that must match")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printKeysVerifyUsage()
		return exitOK
	}
	if len(flagSet.Args()) > 0 {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: "unexpected positional arguments"}, exitInvalidInput)
	}
	if strings.TrimSpace(privateKeyPath) == "" {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: "a private key is required (--private-key <path>)"}, exitInvalidInput)
	}

	signer, family, err := sign.LoadPrivateKeyPEM(privateKeyPath)
	if err != nil {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	fingerprint, err := sign.Fingerprint(signer.Public())
	if err != nil {
		return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if strings.TrimSpace(publicKeyPath) != "" {
		// #nosec G304 -- caller supplies local key path by design.
		publicPEM, err := os.ReadFile(publicKeyPath)
		if err != nil {
			return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: fmt.Sprintf("read public key: %v", err)}, exitInvalidInput)
		}
		pub, _, err := sign.ParsePublicKeyPEM(publicPEM)
		if err != nil {
			return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
		}
		publicFingerprint, err := sign.Fingerprint(pub)
		if err != nil {
			return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
		}
		if publicFingerprint != fingerprint {
			return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{OK: false, Error: "public key does not match private key"}, exitVerifyFailed)
		}
	}

	return writeKeysVerifyOutput(jsonOutput, keysVerifyOutput{
		OK:    true,
		Alg:   family.Alg(),
		KeyID: fingerprint,
	}, exitOK)
}

func createSigningKeypair(alg, outDir, prefix string, force bool) (keysInitOutput, error) {
	family, err := sign.ParseKeyFamily(strings.TrimSpace(alg))
	if err != nil {
		return keysInitOutput{}, err
	}
	trimmedOutDir := strings.TrimSpace(outDir)
	if trimmedOutDir == "" {
		return keysInitOutput{}, fmt.Errorf("out-dir must not be empty")
	}
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		return keysInitOutput{}, fmt.Errorf("prefix must not be empty")
	}

	if err := os.MkdirAll(trimmedOutDir, 0o750); err != nil {
		return keysInitOutput{}, fmt.Errorf("create keys directory: %w", err)
	}

	privatePath := filepath.Join(trimmedOutDir, trimmedPrefix+"_private.pem")
	publicPath := filepath.Join(trimmedOutDir, trimmedPrefix+"_public.pem")
	if !force {
		if _, err := os.Stat(privatePath); err == nil {
			return keysInitOutput{}, fmt.Errorf("private key path already exists (use --force): %s", privatePath)
		}
		if _, err := os.Stat(publicPath); err == nil {
			return keysInitOutput{}, fmt.Errorf("public key path already exists (use --force): %s", publicPath)
		}
	}

	signer, err := sign.GenerateKeyPair(family)
	if err != nil {
		return keysInitOutput{}, err
	}
	privatePEM, err := sign.EncodePrivateKeyPEM(signer)
	if err != nil {
		return keysInitOutput{}, err
	}
	publicPEM, err := sign.EncodePublicKeyPEM(signer.Public())
	if err != nil {
		return keysInitOutput{}, err
	}
	fingerprint, err := sign.Fingerprint(signer.Public())
	if err != nil {
		return keysInitOutput{}, err
	}

	if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
		return keysInitOutput{}, fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(publicPath, []byte(publicPEM), 0o600); err != nil {
		return keysInitOutput{}, fmt.Errorf("write public key: %w", err)
	}

	return keysInitOutput{
		OK:             true,
		Alg:            family.Alg(),
		KeyID:          fingerprint,
		PublicKeyPath:  publicPath,
		PrivateKeyPath: privatePath,
	}, nil
}

func writeKeysInitOutput(jsonOutput bool, output keysInitOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("keys init ok: alg=%s key_id=%s public=%s private=%s\n", output.Alg, output.KeyID, output.PublicKeyPath, output.PrivateKeyPath)
		return exitCode
	}
	fmt.Printf("keys init error: %s\n", output.Error)
	return exitCode
}

func writeKeysVerifyOutput(jsonOutput bool, output keysVerifyOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.OK {
		fmt.Printf("keys verify ok: alg=%s key_id=%s\n", output.Alg, output.KeyID)
		return exitCode
	}
	fmt.Printf("keys verify error: %s\n", output.Error)
	return exitCode
}

func printKeysUsage() {
	fmt.Println("Usage:")
	fmt.Println("  appdepot keys init [--alg ed25519|rsa|ecdsa] [--out-dir appdepot-out/keys] [--prefix appdepot] [--force] [--json] [--explain]")
	fmt.Println("  appdepot keys verify --private-key <path> [--public-key <path>] [--json] [--explain]")
}

func printKeysInitUsage() {
	fmt.Println("Usage:")
	fmt.Println("  appdepot keys init [--alg ed25519|rsa|ecdsa] [--out-dir appdepot-out/keys] [--prefix appdepot] [--force] [--json] [--explain]")
}

func printKeysVerifyUsage() {
	fmt.Println("Usage:")
	fmt.Println("  appdepot keys verify --private-key <path> [--public-key <path>] [--json] [--explain]")
}
