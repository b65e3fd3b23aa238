package agentcmd

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies runtime failures captured in ExecutionResult.
// These are result fields, never Go errors — the sole pre-flight error is
// [CLINotFoundError].
type ErrorKind string

const (
	// ErrorTimeout: the deadline elapsed and the process group was killed.
	// Messages parsed before the kill are preserved.
	ErrorTimeout ErrorKind = "timeout"

	// ErrorExit: the subprocess exited non-zero.
	ErrorExit ErrorKind = "exit"

	// ErrorDecode: the output stream could not be decoded.
	ErrorDecode ErrorKind = "decode"
)

// Sentinel errors.
var (
	// ErrCLINotFound indicates the provider executable could not be
	// resolved during pre-flight detection. This is the only condition
	// the engine reports as an error rather than a result field.
	ErrCLINotFound = errors.New("agentcmd: cli not found")

	// ErrUnknownProvider indicates the request named a provider with no
	// registered driver.
	ErrUnknownProvider = errors.New("agentcmd: unknown provider")

	// ErrSkipRecord is returned by parsers for records that produce no
	// output (blank lines, no-op lifecycle events).
	ErrSkipRecord = errors.New("agentcmd: skip record")
)

// CLINotFoundError reports a failed executable lookup, listing every
// candidate that was tried.
type CLINotFoundError struct {
	Provider Provider
	Tried    []string
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("agentcmd: %s executable not found (tried %s)",
		e.Provider, strings.Join(e.Tried, ", "))
}

// Is makes errors.Is(err, ErrCLINotFound) match.
func (e *CLINotFoundError) Is(target error) bool { return target == ErrCLINotFound }
