// Package cli holds the helpers shared by the command line tools.
package cli

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Exit codes of the command line tools.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitNotFound = 2
	ExitUsage    = 64
)

// FatalErr carries an exit request through the deferred calls of main.
type FatalErr struct {
	ExitCode int
	Message  string
}

// Exitf quits the application with the given exit code after executing all deferred function calls.
func Exitf(exitCode int, format string, args ...interface{}) {
	// panic ensures that all defers are called before exiting the application
	panic(FatalErr{
		ExitCode: exitCode,
		Message:  fmt.Sprintf(format, args...),
	})
}

// CheckExit checks the given error. If non-nil, Exitf is called to quit the application.
func CheckExit(err error, exitCode int, format string, args ...interface{}) {
	if err != nil {
		Exitf(exitCode, "%s: %s", fmt.Sprintf(format, args...), err)
	}
}

// HandleExit recovers panics triggered via Exitf and quits the application with the given exit code.
// Must be defer-called before using Exitf.
func HandleExit(logger hclog.Logger) {
	code, msg, ok := recoverExit(recover())
	if !ok {
		return
	}
	if msg != "" {
		if code == ExitNotFound {
			logger.Warn(msg)
		} else {
			logger.Error(msg)
		}
	}
	os.Exit(code)
}

func recoverExit(r interface{}) (code int, msg string, ok bool) {
	switch r := r.(type) {
	case nil:
		return 0, "", false
	case FatalErr:
		return r.ExitCode, r.Message, true
	default:
		return ExitFailure, fmt.Sprint(r), true
	}
}
