package rest

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitServerURL(t *testing.T, raw string) (string, int) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

// countingRoundTripper hands out response bodies and counts how often they
// are opened and closed.
type countingRoundTripper struct {
	mu       sync.Mutex
	status   int
	body     string
	noBody   bool
	err      error
	opened   int
	closes   []int
	requests []*http.Request
	reqBody  []string
}

type countingBody struct {
	io.Reader
	rt  *countingRoundTripper
	idx int
}

func (b *countingBody) Close() error {
	b.rt.mu.Lock()
	defer b.rt.mu.Unlock()
	b.rt.closes[b.idx]++
	return nil
}

func (rt *countingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.requests = append(rt.requests, req)
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		_ = req.Body.Close()
		rt.reqBody = append(rt.reqBody, string(data))
	}
	if rt.err != nil {
		return nil, rt.err
	}

	resp := &http.Response{
		StatusCode: rt.status,
		Status:     strconv.Itoa(rt.status) + " " + http.StatusText(rt.status),
		Header:     http.Header{},
		Request:    req,
		Body:       http.NoBody,
	}
	if !rt.noBody {
		resp.Body = &countingBody{Reader: strings.NewReader(rt.body), rt: rt, idx: rt.opened}
		rt.opened++
		rt.closes = append(rt.closes, 0)
	}
	return resp, nil
}

func (rt *countingRoundTripper) assertClosedOnce(t *testing.T, opened int) {
	t.Helper()
	rt.mu.Lock()
	defer rt.mu.Unlock()
	assert.Equal(t, opened, rt.opened)
	for i, n := range rt.closes {
		assert.Equal(t, 1, n, "body %d closed %d times", i, n)
	}
}

func newFakeTransport(t *testing.T, rt *countingRoundTripper, opts ...Option) *Transport {
	t.Helper()
	opts = append([]Option{WithRoundTripper(rt), WithLogger(zerolog.Nop())}, opts...)
	tr, err := New("api.flickr.com", opts...)
	require.NoError(t, err)
	return tr
}

func TestExecutor_BodiesClosedOnce(t *testing.T) {
	tests := []struct {
		name   string
		status int
		call   func(*Transport) error
	}{
		{
			name:   "get success",
			status: http.StatusOK,
			call: func(tr *Transport) error {
				_, err := tr.Get(context.Background(), DefaultPath, nil)
				return err
			},
		},
		{
			name:   "get failure",
			status: http.StatusInternalServerError,
			call: func(tr *Transport) error {
				_, err := tr.GetLine(context.Background(), DefaultPath, nil)
				return err
			},
		},
		{
			name:   "post success",
			status: http.StatusOK,
			call: func(tr *Transport) error {
				_, err := tr.Post(context.Background(), DefaultPath, []Parameter{NewParameter("a", "1")})
				return err
			},
		},
		{
			name:   "post failure",
			status: http.StatusBadRequest,
			call: func(tr *Transport) error {
				_, err := tr.SendPost(context.Background(), DefaultPath, []Parameter{NewParameter("a", "1")})
				return err
			},
		},
		{
			name:   "map data over post",
			status: http.StatusOK,
			call: func(tr *Transport) error {
				_, err := tr.GetMapData(context.Background(), false, DefaultPath, nil)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &countingRoundTripper{status: tt.status, body: "k=v"}
			tr := newFakeTransport(t, rt)

			err := tt.call(tr)
			if tt.status == http.StatusOK {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "k=v")
			}
			rt.assertClosedOnce(t, 1)
		})
	}
}

func TestExecutor_DialFailureOpensNothing(t *testing.T) {
	rt := &countingRoundTripper{err: errors.New("dial tcp: connection refused")}
	tr := newFakeTransport(t, rt)

	_, err := tr.Get(context.Background(), DefaultPath, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = tr.SendPost(context.Background(), DefaultPath, nil)
	assert.ErrorIs(t, err, ErrConnection)

	rt.assertClosedOnce(t, 0)
}

func TestExecutor_MissingErrorBody(t *testing.T) {
	rt := &countingRoundTripper{status: http.StatusServiceUnavailable, noBody: true}
	tr := newFakeTransport(t, rt)

	_, err := tr.SendPost(context.Background(), DefaultPath, nil)

	se, ok := IsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, 503, se.Code)
	assert.Equal(t, "Service Unavailable", se.Message)
	assert.Empty(t, se.Body)
}

func TestExecutor_Headers(t *testing.T) {
	rt := &countingRoundTripper{status: http.StatusOK, body: "ok"}
	tr := newFakeTransport(t, rt, WithProxyAuth("proxy.local", 3128, "user", "pass"))

	_, err := tr.GetLine(context.Background(), DefaultPath, []Parameter{NewParameter("a", "1")})
	require.NoError(t, err)
	_, err = tr.SendPost(context.Background(), DefaultPath, []Parameter{NewParameter("b", "2")})
	require.NoError(t, err)

	require.Len(t, rt.requests, 2)
	for _, req := range rt.requests {
		assert.Equal(t, "no-cache,max-age=0", req.Header.Get("Cache-Control"))
		assert.Equal(t, "no-cache", req.Header.Get("Pragma"))

		auth := req.Header.Get("Proxy-Authorization")
		require.True(t, strings.HasPrefix(auth, "Basic "))
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
		require.NoError(t, err)
		assert.Equal(t, "user:pass", string(decoded))
	}

	get, post := rt.requests[0], rt.requests[1]
	assert.Equal(t, http.MethodGet, get.Method)
	assert.Equal(t, "a=1", get.URL.RawQuery)

	assert.Equal(t, http.MethodPost, post.Method)
	assert.Empty(t, post.URL.RawQuery)
	assert.Equal(t, "application/x-www-form-urlencoded", post.Header.Get("Content-Type"))
	assert.Equal(t, int64(3), post.ContentLength)
	require.NotEmpty(t, rt.reqBody)
	assert.Equal(t, "b=2", rt.reqBody[len(rt.reqBody)-1])
}

func TestRecoverStatus(t *testing.T) {
	logger := zerolog.Nop()

	resp, err := recoverStatus(logger, nil, errors.New("read: connection reset"))
	assert.Nil(t, resp)
	assert.Error(t, err)

	failed := &http.Response{StatusCode: http.StatusMovedPermanently, Status: "301 Moved Permanently", Body: io.NopCloser(strings.NewReader("gone"))}
	resp, err = recoverStatus(logger, failed, errors.New("stopped after 10 redirects"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, http.NoBody, resp.Body)

	ok := &http.Response{StatusCode: http.StatusOK}
	resp, err = recoverStatus(logger, ok, nil)
	require.NoError(t, err)
	assert.Same(t, ok, resp)
}
