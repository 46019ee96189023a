package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/photorest/packages/assertions"
	"github.com/abdul-hamid-achik/photorest/packages/rest"
)

// JSONOutput is the document written for one call
type JSONOutput struct {
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	Params   map[string]string `json:"params,omitempty"`
	OK       bool              `json:"ok"`
	Duration float64           `json:"duration"`
	Time     string            `json:"time"`
	Response json.RawMessage   `json:"response,omitempty"`
	Text     string            `json:"text,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
	Error    *JSONError        `json:"error,omitempty"`

	Assertions []*assertions.Result `json:"assertions,omitempty"`
}

// JSONError describes a failed call
type JSONError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
	Body    string `json:"body,omitempty"`
}

// JSONFormatter writes one indented JSON document per result
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(r *Result) {
	out := JSONOutput{
		Method:   r.Method,
		Path:     r.Path,
		OK:       !r.Failed(),
		Duration: float64(r.Duration.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
		Data:     r.Data,
		Error:    jsonError(r.Err),

		Assertions: r.Assertions,
	}

	if len(r.Params) > 0 {
		out.Params = make(map[string]string, len(r.Params))
		for _, p := range r.Params {
			out.Params[p.Name] = p.ValueString()
		}
	}

	if r.Response != nil {
		if r.Response.IsJSON() {
			out.Response = json.RawMessage(r.Response.Raw())
		} else {
			out.Text = r.Response.Raw()
		}
		if apiErr := r.Response.Err(); apiErr != nil && out.Error == nil {
			out.Error = jsonError(apiErr)
		}
	} else if r.Err == nil && r.Data == nil {
		out.Text = r.Text
	}

	f.encode(out)
}

func (f *JSONFormatter) FormatError(err error) {
	f.encode(struct {
		OK    bool       `json:"ok"`
		Error *JSONError `json:"error"`
	}{Error: jsonError(err)})
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

func (f *JSONFormatter) encode(v any) {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(v)
}

func jsonError(err error) *JSONError {
	if err == nil {
		return nil
	}
	out := &JSONError{Kind: ErrorKind(err), Message: err.Error()}
	if se, ok := rest.IsStatusError(err); ok {
		out.Code = se.Code
		out.Body = se.Body
	}
	if apiErr, ok := err.(*rest.APIError); ok {
		out.Code = apiErr.Code
		out.Message = apiErr.Message
	}
	return out
}
