package output

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/abdul-hamid-achik/photorest/packages/assertions"
	"github.com/abdul-hamid-achik/photorest/packages/rest"
)

// Result is one completed call. Exactly one of Response, Data or Text is
// set on success; Err is set on failure.
type Result struct {
	Method   string
	Path     string
	Params   []rest.Parameter
	Response *rest.Response
	Data     map[string]string
	Text     string
	Err      error
	Duration time.Duration

	// Assertions holds the outcome of --expect checks against Response
	Assertions []*assertions.Result
}

// Failed reports whether the call failed, including API-level failures
// and failed assertions.
func (r *Result) Failed() bool {
	if r.Err != nil {
		return true
	}
	if !assertions.AllPassed(r.Assertions) {
		return true
	}
	return r.Response != nil && r.Response.IsFail()
}

// AssertionsFailed reports whether any assertion did not pass
func (r *Result) AssertionsFailed() bool {
	return !assertions.AllPassed(r.Assertions)
}

// Formatter renders call results
type Formatter interface {
	FormatResult(result *Result)
	FormatError(err error)
	FormatHeader(version string)
}

// NewFormatter returns the formatter registered under name
func NewFormatter(name string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch name {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want console or json)", name)
	}
}

// ErrorKind classifies err for display: status, api, decode, url, connection
// or error.
func ErrorKind(err error) string {
	var apiErr *rest.APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, new(*rest.StatusError)):
		return "status"
	case errors.As(err, &apiErr):
		return "api"
	case errors.Is(err, rest.ErrDecode):
		return "decode"
	case errors.Is(err, rest.ErrInvalidURL):
		return "url"
	case errors.Is(err, rest.ErrConnection):
		return "connection"
	default:
		return "error"
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
