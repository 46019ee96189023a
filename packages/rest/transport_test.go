package rest

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T, serverURL string, opts ...Option) *Transport {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	tr, err := New(serverURL, opts...)
	require.NoError(t, err)
	return tr
}

func TestTransport_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, DefaultPath, r.URL.Path)
		assert.Equal(t, "no-cache,max-age=0", r.Header.Get("Cache-Control"))
		assert.Equal(t, "no-cache", r.Header.Get("Pragma"))
		assert.Empty(t, r.Header.Get("Proxy-Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "flickr.test.echo", q.Get("method"))
		assert.Equal(t, []string{"1"}, q["nojsoncallback"])
		assert.Equal(t, []string{"json"}, q["format"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{\"method\":{\"_content\":\"flickr.test.echo\"},\n\"stat\":\"ok\"}\n"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	params := []Parameter{NewParameter("method", "flickr.test.echo")}

	resp, err := tr.Get(context.Background(), DefaultPath, params)

	require.NoError(t, err)
	assert.Equal(t, `{"method":{"_content":"flickr.test.echo"},"stat":"ok"}`, resp.Raw())
	assert.Equal(t, "ok", resp.Stat())
	assert.Len(t, params, 1, "caller parameters must not be modified")
}

func TestTransport_Get_ImplicitParametersAlwaysSent(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"stat":"ok"}`))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	_, err := tr.Get(context.Background(), "/services/rest/", []Parameter{
		NewParameter("format", "rest"),
		NewParameter("nojsoncallback", "0"),
	})
	require.NoError(t, err)

	assert.Equal(t, "format=rest&nojsoncallback=0&nojsoncallback=1&format=json", rawQuery)
}

func TestTransport_GetLine_NoImplicitParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a=1", r.URL.RawQuery)
		_, _ = w.Write([]byte("line1\r\nline2\n"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	line, err := tr.GetLine(context.Background(), DefaultPath, []Parameter{NewParameter("a", 1)})

	require.NoError(t, err)
	assert.Equal(t, "line1line2", line)
}

func TestTransport_Get_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such endpoint", http.StatusNotFound)
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	_, err := tr.Get(context.Background(), "/missing", nil)

	require.Error(t, err)
	se, ok := IsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, 404, se.Code)
	assert.Equal(t, "Not Found", se.Message)
	assert.Equal(t, "no such endpoint", se.Body)
}

func TestTransport_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, DefaultPath, r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "no-cache,max-age=0", r.Header.Get("Cache-Control"))
		assert.Equal(t, "no-cache", r.Header.Get("Pragma"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, "method=flickr.photos.delete&photo_id=42&title=a+b", string(body))
		assert.Equal(t, int64(len(body)), r.ContentLength)
		assert.NotContains(t, string(body), "format=json")

		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("  %7B%22stat%22%3A%22ok%22%7D\n\n"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	resp, err := tr.Post(context.Background(), DefaultPath, []Parameter{
		NewParameter("method", "flickr.photos.delete"),
		NewParameter("photo_id", 42),
		NewParameter("title", "a b"),
	})

	require.NoError(t, err)
	assert.Equal(t, `{"stat":"ok"}`, resp.Raw())
	assert.Equal(t, "ok", resp.Stat())
}

func TestTransport_SendPost_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("oauth_problem=signature_invalid"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	_, err := tr.SendPost(context.Background(), DefaultPath, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "Internal Server Error")
	assert.Contains(t, err.Error(), "oauth_problem=signature_invalid")
}

func TestTransport_SendPost_NoErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	_, err := tr.SendPost(context.Background(), DefaultPath, nil)

	require.Error(t, err)
	se, ok := IsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, 403, se.Code)
	assert.Equal(t, "", se.Body)
	assert.Equal(t, "connection failed. response code: 403, response message: Forbidden, error: ", err.Error())
}

func TestTransport_GetMapData(t *testing.T) {
	tests := []struct {
		name     string
		useGet   bool
		body     string
		expected map[string]string
	}{
		{
			name:   "post double decoded",
			useGet: false,
			body:   "oauth_token%3D72157-abc%26fullname%3DJane%2520Doe%26bad",
			expected: map[string]string{
				"oauth_token": "72157-abc",
				"fullname":    "Jane Doe",
			},
		},
		{
			name:   "get decoded once more",
			useGet: true,
			body:   "oauth_token=abc&oauth_token_secret=d%2Bf&oauth_callback_confirmed=true",
			expected: map[string]string{
				"oauth_token":              "abc",
				"oauth_token_secret":       "d+f",
				"oauth_callback_confirmed": "true",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.useGet {
					assert.Equal(t, "GET", r.Method)
				} else {
					assert.Equal(t, "POST", r.Method)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			tr := newTestTransport(t, server.URL)
			data, err := tr.GetMapData(context.Background(), tt.useGet, "/services/oauth/request_token", nil)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, data)
		})
	}
}

func TestTransport_GetMapData_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("a=%zz"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	_, err := tr.GetMapData(context.Background(), true, DefaultPath, nil)

	assert.ErrorIs(t, err, ErrDecode)
}

func TestTransport_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tr := newTestTransport(t, url)
	_, err := tr.Get(context.Background(), DefaultPath, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	_, isStatus := IsStatusError(err)
	assert.False(t, isStatus)
}

func TestTransport_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL, WithTimeout(50*time.Millisecond))
	_, err := tr.GetLine(context.Background(), DefaultPath, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
}

func TestTransport_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := newTestTransport(t, server.URL, WithRateLimit(1, 1))
	_, err := tr.SendPost(ctx, DefaultPath, nil)

	assert.ErrorIs(t, err, ErrConnection)
}

func TestTransport_UserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "photorest/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL, WithUserAgent("photorest/test"))
	_, err := tr.GetLine(context.Background(), DefaultPath, nil)
	require.NoError(t, err)
}

func TestTransport_Redirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			_, _ = w.Write([]byte("final"))
			return
		}
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	tr := newTestTransport(t, server.URL)
	line, err := tr.GetLine(context.Background(), "/start", nil)
	require.NoError(t, err)
	assert.Equal(t, "final", line)

	noFollow := newTestTransport(t, server.URL, WithMaxRedirects(0))
	_, err = noFollow.GetLine(context.Background(), "/start", nil)
	se, ok := IsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusFound, se.Code)
}

// The test server plays the proxy: requests for a foreign host arrive with
// an absolute URI and the Proxy-Authorization header.
func TestTransport_ThroughProxy(t *testing.T) {
	var gotAuth, gotHost string
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Proxy-Authorization")
		gotHost = r.URL.Host
		_, _ = w.Write([]byte(`{"stat":"ok"}`))
	}))
	defer proxyServer.Close()

	host, port := splitServerURL(t, proxyServer.URL)
	tr := newTestTransport(t, "api.flickr.com", WithProxyAuth(host, port, "user", "pass"))

	resp, err := tr.Get(context.Background(), DefaultPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Stat())
	assert.Equal(t, "api.flickr.com", gotHost)

	require.True(t, strings.HasPrefix(gotAuth, "Basic "))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(gotAuth, "Basic "))
	require.NoError(t, err)
	assert.Equal(t, "user:pass", string(decoded))
}
