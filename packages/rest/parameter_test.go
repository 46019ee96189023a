package rest

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParameters(t *testing.T) {
	tests := []struct {
		name     string
		params   []Parameter
		expected string
	}{
		{
			name:     "nil",
			params:   nil,
			expected: "",
		},
		{
			name:     "empty",
			params:   []Parameter{},
			expected: "",
		},
		{
			name:     "single",
			params:   []Parameter{NewParameter("method", "flickr.test.echo")},
			expected: "method=flickr.test.echo",
		},
		{
			name: "order preserved",
			params: []Parameter{
				NewParameter("z", "1"),
				NewParameter("a", "2"),
			},
			expected: "z=1&a=2",
		},
		{
			name: "duplicates kept",
			params: []Parameter{
				NewParameter("tag", "a"),
				NewParameter("tag", "b"),
			},
			expected: "tag=a&tag=b",
		},
		{
			name:     "reserved characters escaped",
			params:   []Parameter{NewParameter("q&x", "a b=c")},
			expected: "q%26x=a+b%3Dc",
		},
		{
			name:     "utf-8",
			params:   []Parameter{NewParameter("title", "café")},
			expected: "title=caf%C3%A9",
		},
		{
			name: "non-string values",
			params: []Parameter{
				NewParameter("page", 2),
				NewParameter("safe", true),
				NewParameter("empty", nil),
			},
			expected: "page=2&safe=true&empty=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodeParameters(tt.params))
		})
	}
}

func TestEncodeParameters_RoundTrip(t *testing.T) {
	params := []Parameter{
		NewParameter("method", "flickr.photos.search"),
		NewParameter("text", "sunset & sea = blue"),
		NewParameter("tags", "a,b;c"),
		NewParameter("title", "日本語 100%"),
		NewParameter("text", "second"),
	}

	encoded := EncodeParameters(params)

	segments := strings.Split(encoded, "&")
	require.Len(t, segments, len(params))
	for i, segment := range segments {
		parts := strings.Split(segment, "=")
		require.Len(t, parts, 2, "segment %q", segment)

		name, err := url.QueryUnescape(parts[0])
		require.NoError(t, err)
		value, err := url.QueryUnescape(parts[1])
		require.NoError(t, err)

		assert.Equal(t, params[i].Name, name)
		assert.Equal(t, params[i].ValueString(), value)
	}
}

func TestEncodeParametersQuoted(t *testing.T) {
	tests := []struct {
		name      string
		params    []Parameter
		separator string
		quote     bool
		expected  string
	}{
		{
			name:      "quoted pair",
			params:    []Parameter{NewParameter("a", 1), NewParameter("b", 2)},
			separator: ", ",
			quote:     true,
			expected:  `a="1", b="2"`,
		},
		{
			name:      "unquoted pair",
			params:    []Parameter{NewParameter("a", 1), NewParameter("b", 2)},
			separator: ", ",
			quote:     false,
			expected:  `a=1, b=2`,
		},
		{
			name:      "single quoted",
			params:    []Parameter{NewParameter("oauth_token", "abc")},
			separator: ",",
			quote:     true,
			expected:  `oauth_token="abc"`,
		},
		{
			name:      "empty",
			params:    nil,
			separator: ", ",
			quote:     true,
			expected:  "",
		},
		{
			name:      "escaped value",
			params:    []Parameter{NewParameter("oauth_signature", "a/b+c=")},
			separator: ", ",
			quote:     true,
			expected:  `oauth_signature="a%2Fb%2Bc%3D"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodeParametersQuoted(tt.params, tt.separator, tt.quote))
		})
	}
}

func TestWithImplicitGetParameters(t *testing.T) {
	params := make([]Parameter, 1, 4)
	params[0] = NewParameter("format", "xml")

	out := WithImplicitGetParameters(params)

	assert.Equal(t, []Parameter{
		NewParameter("format", "xml"),
		NewParameter("nojsoncallback", "1"),
		NewParameter("format", "json"),
	}, out)

	// the caller's slice, including its spare capacity, is untouched
	assert.Len(t, params, 1)
	assert.Equal(t, []Parameter{{}, {}}, params[1:3])
}
