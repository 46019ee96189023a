package rest

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"single line", `{"stat":"ok"}`, `{"stat":"ok"}`},
		{"trailing newline", "abc\n", "abc"},
		{"lf", "a\nb\nc", "abc"},
		{"crlf", "a\r\nb\r\n", "ab"},
		{"lone cr", "a\rb", "ab"},
		{"blank lines", "a\n\n\nb", "ab"},
		{"keeps inner spaces", "  a b \n c", "  a b  c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadLines(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestReadLines_Error(t *testing.T) {
	_, err := ReadLines(failingReader{})
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestTextReader_Charset(t *testing.T) {
	r, err := textReader(strings.NewReader("caf\xe9"), "text/plain; charset=ISO-8859-1")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "café", string(got))

	r, err = textReader(strings.NewReader("café"), "application/json")
	require.NoError(t, err)
	got, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "café", string(got))

	_, err = textReader(strings.NewReader(""), "text/plain; charset=no-such-charset")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestReadText_ErrorKinds(t *testing.T) {
	resp := &http.Response{
		Header: http.Header{"Content-Type": []string{"text/plain; charset=iso-8859-1"}},
		Body:   io.NopCloser(io.MultiReader(strings.NewReader("stat=ok\n"), iotest.ErrReader(errors.New("connection reset")))),
	}
	_, err := readText(resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "connection reset")

	src := &sourceReader{r: strings.NewReader("stat=ok")}
	_, err = ReadLines(io.MultiReader(src, iotest.ErrReader(errors.New("invalid byte sequence"))))
	require.Error(t, err)
	err = src.classify(err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.NotErrorIs(t, err, ErrConnection)
}

func TestDecodeBody(t *testing.T) {
	got, err := DecodeBody("oauth_token%3Dabc%26oauth_token_secret%3Ddef")
	require.NoError(t, err)
	assert.Equal(t, "oauth_token=abc&oauth_token_secret=def", got)

	got, err = DecodeBody("a+b")
	require.NoError(t, err)
	assert.Equal(t, "a b", got)

	_, err = DecodeBody("%zz")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDataAsMap(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
	}{
		{
			name:     "malformed segments dropped",
			input:    "a=1&b=2&bad&c=3=4",
			expected: map[string]string{"a": "1", "b": "2"},
		},
		{
			name:     "last duplicate wins",
			input:    "a=1&a=2",
			expected: map[string]string{"a": "2"},
		},
		{
			name:     "missing value dropped",
			input:    "a=&b=2",
			expected: map[string]string{"b": "2"},
		},
		{
			name:     "missing name dropped",
			input:    "=1&b=2",
			expected: map[string]string{"b": "2"},
		},
		{
			name:     "empty segments skipped",
			input:    "&&a=1&",
			expected: map[string]string{"a": "1"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: map[string]string{},
		},
		{
			name:  "token response",
			input: "fullname=Jane Doe&oauth_token=72157-abc&oauth_token_secret=s3cr3t&user_nsid=123@N00&username=jane",
			expected: map[string]string{
				"fullname":           "Jane Doe",
				"oauth_token":        "72157-abc",
				"oauth_token_secret": "s3cr3t",
				"user_nsid":          "123@N00",
				"username":           "jane",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DataAsMap(tt.input))
		})
	}
}
