package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/davidahmann/appdepot/core/registry"
)

type registryVerifyOutput struct {
	OK            bool               `json:"ok"`
	Valid         bool               `json:"valid"`
	Errors        []registry.Finding `json:"errors"`
	Warnings      []registry.Finding `json:"warnings"`
	Error         string             `json:"error,omitempty"`
	ErrorCode     string             `json:"error_code,omitempty"`
	ErrorCategory string             `json:"error_category,omitempty"`
	Hint          string             `json:"hint,omitempty"`
}

func runRegistry(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Audit a file-based app registry: hashes, manifests, signatures, and latest pointers.")
	}
	if len(arguments) == 0 {
		printRegistryUsage()
		return exitInvalidInput
	}
	if arguments[0] == "--help" || arguments[0] == "-h" {
		printRegistryUsage()
		return exitOK
	}
	switch arguments[0] {
	case "verify":
		return runRegistryVerify(arguments[1:])
	default:
		printRegistryUsage()
		return exitInvalidInput
	}
}

func runRegistryVerify(arguments []string) int {
	if hasExplainFlag(arguments) {
		return writeExplain("Re-derive every integrity property of a registry and report all violations in one pass instead of stopping at the first.")
	}
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"registry": true,
	})

	flagSet := flag.NewFlagSet("registry-verify", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var registryRoot string
	var requireSignature bool
	var jsonOutput bool
	var helpFlag bool

	flagSet.StringVar(&registryRoot, "registry", "", "registry root directory")
	flagSet.BoolVar(&requireSignature, "require-signature", false, "treat unsigned versions as errors")
	flagSet.BoolVar(&jsonOutput, "json", false, "emit JSON output")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		return writeRegistryVerifyOutput(jsonOutput, registryVerifyOutput{OK: false, Error: err.Error()}, exitInvalidInput)
	}
	if helpFlag {
		printRegistryVerifyUsage()
		return exitOK
	}
	if flagSet.NArg() > 1 {
		return writeRegistryVerifyOutput(jsonOutput, registryVerifyOutput{OK: false, Error: "unexpected positional arguments"}, exitInvalidInput)
	}
	// The registry root may be given positionally or via --registry.
	if flagSet.NArg() == 1 {
		if strings.TrimSpace(registryRoot) != "" {
			return writeRegistryVerifyOutput(jsonOutput, registryVerifyOutput{OK: false, Error: "registry root given both positionally and via --registry"}, exitInvalidInput)
		}
		registryRoot = flagSet.Arg(0)
	}
	if strings.TrimSpace(registryRoot) == "" {
		return writeRegistryVerifyOutput(jsonOutput, registryVerifyOutput{OK: false, Error: "a registry root is required (--registry <path>)"}, exitInvalidInput)
	}

	report := registry.ValidateRegistry(registryRoot, registry.AuditOptions{RequireSignature: requireSignature})
	output := registryVerifyOutput{
		OK:       report.Valid,
		Valid:    report.Valid,
		Errors:   report.Errors,
		Warnings: report.Warnings,
	}
	exitCode := exitOK
	if !report.Valid {
		output.Error = fmt.Sprintf("registry audit found %d error(s)", len(report.Errors))
		exitCode = exitVerifyFailed
	}
	return writeRegistryVerifyOutput(jsonOutput, output, exitCode)
}

func writeRegistryVerifyOutput(jsonOutput bool, output registryVerifyOutput, exitCode int) int {
	if jsonOutput {
		return writeJSONOutput(output, exitCode)
	}
	if output.Error != "" && output.Errors == nil {
		fmt.Printf("registry verify error: %s\n", output.Error)
		return exitCode
	}
	for _, finding := range output.Errors {
		fmt.Printf("error: %s: %s\n", finding.Path, finding.Message)
	}
	for _, finding := range output.Warnings {
		fmt.Printf("warning: %s: %s\n", finding.Path, finding.Message)
	}
	if output.Valid {
		fmt.Println("registry ok")
	} else {
		fmt.Printf("registry invalid: %d error(s), %d warning(s)\n", len(output.Errors), len(output.Warnings))
	}
	return exitCode
}

func printRegistryUsage() {
	fmt.Println("Usage:")
	fmt.Println("  appdepot registry verify [--registry <root>] [--require-signature] [--json] [--explain]")
}

func printRegistryVerifyUsage() {
	printRegistryUsage()
}
