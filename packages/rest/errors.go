package rest

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection wraps every failure to complete a request: dial and
	// transport errors as well as non-200 responses.
	ErrConnection = errors.New("connection failed")
	ErrInvalidURL = errors.New("invalid URL")
	ErrDecode     = errors.New("cannot decode response")
)

// StatusError is returned when the service answers with a status other than 200.
type StatusError struct {
	Code    int
	Message string
	// Body is the error body, empty when the response carried none.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("connection failed. response code: %d, response message: %s, error: %s",
		e.Code, e.Message, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrConnection
}

// APIError is a well-formed response whose envelope reports stat "fail".
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// IsStatusError reports whether err carries a non-200 response and returns it
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
