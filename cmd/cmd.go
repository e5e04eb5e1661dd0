package cmd

import (
	"context"
	"strconv"

	"github.com/R-a-dio/peaknorm/config"
	"github.com/R-a-dio/peaknorm/errors"
)

// ExecuteFn is the function signature used by the commands in this codebase.
// It's effectively the type of our 'main' function, args are the positional
// arguments left after flag parsing.
type ExecuteFn func(ctx context.Context, cfg config.Config, args []string) error

// Exit codes returned by the peaknorm executable
const (
	ExitSuccess       = 0
	ExitFailure       = 1
	ExitUsage         = 2
	ExitExternalTool  = 3
	ExitPeakUnknown   = 4
	ExitReplaceFailed = 5
	ExitInvalidOutput = 6
)

// WithStatusCode returns an ExitError with the given status code
func WithStatusCode(err error, code int) error {
	return exitError{err, code}
}

// ExitError is an error that can carry a statuscode to be passed to os.Exit;
type ExitError interface {
	error
	// StatusCode returns a status code to be passed to os.Exit
	StatusCode() int
}

type exitError struct {
	error
	code int
}

// StatusCode returns a status code to be passed to os.Exit
func (err exitError) StatusCode() int {
	return err.code
}

func (err exitError) Error() string {
	if err.error == nil {
		return "exit status " + strconv.Itoa(err.code)
	}
	return err.error.Error()
}

func (err exitError) Unwrap() error {
	return err.error
}

// ExitCode returns the status code to pass to os.Exit for err
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if exitErr, ok := err.(ExitError); ok {
		return exitErr.StatusCode()
	}

	switch errors.KindOf(err) {
	case errors.InvalidArgument:
		return ExitUsage
	case errors.ExternalTool:
		return ExitExternalTool
	case errors.PeakUnknown:
		return ExitPeakUnknown
	case errors.ReplaceFailed:
		return ExitReplaceFailed
	case errors.InvalidOutput:
		return ExitInvalidOutput
	}
	return ExitFailure
}
