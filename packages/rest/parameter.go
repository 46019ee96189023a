package rest

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// ParamNoJSONCallback disables JSONP wrapping of GET responses
	ParamNoJSONCallback = "nojsoncallback"
	// ParamFormat selects the response format of GET responses
	ParamFormat = "format"
)

// Parameter is a single name/value pair of a request. Order matters and
// duplicate names are kept as-is.
type Parameter struct {
	Name  string
	Value any
}

// NewParameter creates a Parameter
func NewParameter(name string, value any) Parameter {
	return Parameter{Name: name, Value: value}
}

// ValueString renders the value. A nil value renders as the empty string.
func (p Parameter) ValueString() string {
	if p.Value == nil {
		return ""
	}
	if s, ok := p.Value.(string); ok {
		return s
	}
	return fmt.Sprint(p.Value)
}

func (p Parameter) String() string {
	return p.Name + "=" + p.ValueString()
}

// WithImplicitGetParameters returns a copy of params with the parameters every
// GET request carries appended. The input slice is never modified.
func WithImplicitGetParameters(params []Parameter) []Parameter {
	out := make([]Parameter, 0, len(params)+2)
	out = append(out, params...)
	out = append(out,
		NewParameter(ParamNoJSONCallback, "1"),
		NewParameter(ParamFormat, "json"),
	)
	return out
}

// EncodeParameters encodes params as application/x-www-form-urlencoded text.
// Names and values are escaped individually; nil or empty input yields "".
func EncodeParameters(params []Parameter) string {
	if len(params) == 0 {
		return ""
	}

	var b strings.Builder
	for i, p := range params {
		if i != 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.ValueString()))
	}
	return b.String()
}

// EncodeParametersQuoted encodes params joined by separator, for embedding in
// another delimited string such as a header value. When quote is set every
// value is wrapped in double quotes: [(a,1),(b,2)] with ", " gives
// a="1", b="2".
func EncodeParametersQuoted(params []Parameter, separator string, quote bool) string {
	var b strings.Builder
	for i, p := range params {
		if i != 0 {
			if quote {
				b.WriteByte('"')
			}
			b.WriteString(separator)
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		if quote {
			b.WriteByte('"')
		}
		b.WriteString(url.QueryEscape(p.ValueString()))
	}
	if b.Len() != 0 && quote {
		b.WriteByte('"')
	}
	return b.String()
}
