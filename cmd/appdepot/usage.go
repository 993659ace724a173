package main

import "fmt"

func printUsage() {
	fmt.Println("appdepot", version)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  appdepot sign --app <artifact> --key <private.pem> [--manifest <path>] [--out <path>]")
	fmt.Println("  appdepot publish --app <artifact> --registry <root> [--manifest <path>] [--signature <path>]")
	fmt.Println("  appdepot verify --app <artifact-or-dir> [--manifest <path>] [--signature <path>]")
	fmt.Println("  appdepot registry-verify --registry <root> [--require-signature]")
	fmt.Println("  appdepot keys init [--alg ed25519|rsa|ecdsa] [--out-dir <dir>] [--prefix <name>]")
	fmt.Println("  appdepot keys verify --private-key <path> [--public-key <path>]")
	fmt.Println("  appdepot version")
	fmt.Println()
	fmt.Println("All commands accept --json for machine-readable output and --explain for a one-line description.")
}
