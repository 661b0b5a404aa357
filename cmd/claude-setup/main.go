// Package main is the entry point for the claude-setup CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spec-tools/claude-setup/cmd/claude-setup/commands"
	setuperrors "github.com/spec-tools/claude-setup/internal/errors"
)

func main() {
	if err := commands.Execute(); err != nil {
		var exitErr *setuperrors.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintln(os.Stderr, "Error:", exitErr.Err)
			}
			if exitErr.Suggestion != "" {
				fmt.Fprintln(os.Stderr, "Suggestion:", exitErr.Suggestion)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(setuperrors.ExitUser)
	}
}
