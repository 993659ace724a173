package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/davidahmann/appdepot/core/oplog"
)

// version is stamped at release time via ldflags; default stays dev for local builds.
var version = "0.0.0-dev"

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	startedAt := time.Now()
	correlationID := newCorrelationID(arguments)
	setCurrentCorrelationID(correlationID)
	command := normalizeCommand(arguments)
	writeOperationalEventStart(command, correlationID, startedAt.UTC())
	exitCode := runDispatch(arguments)
	finishedAt := time.Now().UTC()
	elapsed := time.Since(startedAt)
	writeOperationalEventEnd(command, correlationID, exitCode, elapsed, finishedAt)
	setCurrentCorrelationID("")
	return exitCode
}

func runDispatch(arguments []string) int {
	if len(arguments) < 2 {
		fmt.Println("appdepot", version)
		return exitOK
	}
	if arguments[1] == "--explain" {
		return writeExplain("Appdepot is an offline-first CLI for hashing, signing, publishing, and auditing app packages in a file-based registry.")
	}

	switch arguments[1] {
	case "sign":
		return runSign(arguments[2:])
	case "publish":
		return runPublish(arguments[2:])
	case "verify":
		return runVerify(arguments[2:])
	case "registry":
		return runRegistry(arguments[2:])
	case "registry-verify":
		return runRegistryVerify(arguments[2:])
	case "keys":
		return runKeys(arguments[2:])
	case "version", "--version", "-v":
		if hasExplainFlag(arguments[2:]) {
			return writeExplain("Print the CLI version.")
		}
		fmt.Println("appdepot", version)
		return exitOK
	default:
		printUsage()
		return exitInvalidInput
	}
}

func normalizeCommand(arguments []string) string {
	if len(arguments) < 2 {
		return "version"
	}
	command := strings.TrimSpace(arguments[1])
	if command == "" {
		return "unknown"
	}
	switch command {
	case "--version", "-v", "version":
		return "version"
	case "--explain":
		return "explain"
	case "registry", "keys":
		if len(arguments) > 2 {
			subcommand := strings.TrimSpace(arguments[2])
			if subcommand != "" && !strings.HasPrefix(subcommand, "-") {
				return command + " " + subcommand
			}
		}
	}
	return command
}

func writeOperationalEventStart(command string, correlationID string, now time.Time) {
	operationalPath := strings.TrimSpace(os.Getenv("APPDEPOT_OPERATIONAL_LOG"))
	if operationalPath == "" {
		return
	}
	event := oplog.NewStartEvent(command, correlationID, version, now)
	reportTelemetryWriteFailure(oplog.AppendEvent(operationalPath, event))
}

func writeOperationalEventEnd(command string, correlationID string, exitCode int, elapsed time.Duration, now time.Time) {
	operationalPath := strings.TrimSpace(os.Getenv("APPDEPOT_OPERATIONAL_LOG"))
	if operationalPath == "" {
		return
	}
	category := "none"
	if exitCode != exitOK {
		category = string(defaultErrorCategory(exitCode))
	}
	event := oplog.NewEndEvent(command, correlationID, version, exitCode, category, false, elapsed, now)
	reportTelemetryWriteFailure(oplog.AppendEvent(operationalPath, event))
}

func reportTelemetryWriteFailure(err error) {
	if err == nil {
		return
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("APPDEPOT_TELEMETRY_WARN")), "off") {
		return
	}
	fmt.Fprintf(os.Stderr, "appdepot warning: operational log write failed: %v\n", err)
}
