package main

import (
	"fmt"
	"strings"
)

// hasExplainFlag scans the raw argument list before any flag parsing, so
// --explain wins even when the rest of the invocation would not parse.
func hasExplainFlag(arguments []string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == "--explain" {
			return true
		}
	}
	return false
}

// writeExplain prints a one-line summary of what the command would do and
// exits cleanly without running it.
func writeExplain(summary string) int {
	fmt.Println(summary)
	return exitOK
}
