package main

// Exit codes are part of the CLI contract; scripts branch on them.
const (
	exitOK              = 0
	exitInternalFailure = 1
	exitInvalidInput    = 2
	exitVerifyFailed    = 3

	// publish and verify exit 1 for a manifest that fails to load,
	// parse, or validate; scripts test `$? -eq 1` for that case.
	exitManifestInvalid = exitInternalFailure
)
