package cmd

import (
	"errors"

	"github.com/abdul-hamid-achik/photorest/packages/rest"
)

// Exit codes for photorest CLI
const (
	// ExitSuccess indicates the call succeeded
	ExitSuccess = 0

	// ExitAPIFailure indicates the service answered with stat "fail"
	ExitAPIFailure = 1

	// ExitDecodeError indicates the response body could not be decoded
	ExitDecodeError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error or a non-200 status
	ExitNetworkError = 4

	// ExitAssertionFailure indicates an --expect, --schema or --threshold check failed
	ExitAssertionFailure = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries an exit code. reported errors were already printed.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageError(err error) error {
	return &exitError{code: ExitUsageError, err: err}
}

func configError(err error) error {
	return &exitError{code: ExitConfigError, err: err}
}

// exitCode maps an error returned by a command to the process exit code
func exitCode(err error) int {
	var ee *exitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ee):
		return ee.code
	case errors.As(err, new(*rest.APIError)):
		return ExitAPIFailure
	case errors.Is(err, rest.ErrDecode):
		return ExitDecodeError
	case errors.Is(err, rest.ErrInvalidURL):
		return ExitConfigError
	case errors.Is(err, rest.ErrConnection):
		return ExitNetworkError
	default:
		return ExitAPIFailure
	}
}
