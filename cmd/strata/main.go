// Command strata evaluates, stores and exports parametric part scripts.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/chazu/strata/pkg/document"
	"github.com/chazu/strata/pkg/engine"
	"github.com/chazu/strata/pkg/store"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "strata:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode separates mistakes in the request from failures of the system.
func exitCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrInvalidName),
		errors.Is(err, document.ErrGroupNotFound),
		errors.Is(err, document.ErrEntityNotFound),
		errors.Is(err, document.ErrDependencyViolation),
		errors.Is(err, errEvalFailed),
		errors.Is(err, engine.ErrTimeout),
		errors.Is(err, errUsage):
		return exitUserError
	}
	return exitSysError
}
