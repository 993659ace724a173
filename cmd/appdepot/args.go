package main

import (
	"fmt"
	"strings"
)

// resolveAppArgument accepts the app target either positionally or via
// --app, but not both and not neither.
func resolveAppArgument(appFlag string, positionals []string) (string, error) {
	trimmed := strings.TrimSpace(appFlag)
	switch {
	case trimmed != "" && len(positionals) > 0:
		return "", fmt.Errorf("app path given both positionally and via --app")
	case trimmed != "":
		return trimmed, nil
	case len(positionals) == 1:
		return positionals[0], nil
	case len(positionals) > 1:
		return "", fmt.Errorf("exactly one app path is required")
	default:
		return "", fmt.Errorf("an app path is required (--app <path>)")
	}
}

// reorderInterspersedFlags lets flags follow positionals so that
// "appdepot sign app.zip --key k.pem" parses with the stdlib flag package,
// which stops at the first positional argument.
func reorderInterspersedFlags(arguments []string, valueFlags map[string]bool) []string {
	if len(arguments) == 0 {
		return arguments
	}

	flags := make([]string, 0, len(arguments))
	positionals := make([]string, 0, len(arguments))

	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == "--" {
			positionals = append(positionals, arguments[index+1:]...)
			break
		}
		if !isFlagToken(argument) {
			positionals = append(positionals, argument)
			continue
		}

		flags = append(flags, argument)
		if strings.Contains(argument, "=") {
			continue
		}
		if !flagRequiresValue(argument, valueFlags) {
			continue
		}
		if index+1 >= len(arguments) {
			continue
		}
		index++
		flags = append(flags, arguments[index])
	}

	return append(flags, positionals...)
}

func isFlagToken(argument string) bool {
	return len(argument) > 1 && strings.HasPrefix(argument, "-")
}

func flagRequiresValue(argument string, valueFlags map[string]bool) bool {
	if len(valueFlags) == 0 {
		return false
	}
	if required, ok := valueFlags[argument]; ok {
		return required
	}

	name := strings.TrimLeft(argument, "-")
	required, ok := valueFlags[name]
	return ok && required
}
