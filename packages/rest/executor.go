package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerCacheControl       = "Cache-Control"
	headerPragma             = "Pragma"
	headerContentType        = "Content-Type"
	headerUserAgent          = "User-Agent"
	headerProxyAuthorization = "Proxy-Authorization"

	cacheControlNoCache = "no-cache,max-age=0"
	pragmaNoCache       = "no-cache"
	contentTypeForm     = "application/x-www-form-urlencoded"
)

func (t *Transport) callLogger(method string) zerolog.Logger {
	return t.logger.With().
		Str("request_id", uuid.NewString()).
		Str("method", method).
		Logger()
}

// openGet sends a GET request. On success the caller owns resp.Body and must
// close it.
func (t *Transport) openGet(ctx context.Context, logger zerolog.Logger, path string, params []Parameter) (*http.Response, error) {
	u, err := BuildURL(t.host, t.port, path, params)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("url", u.String()).Msg("GET URL")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return t.do(logger, req)
}

// sendPost sends params form-encoded in the body and returns the response
// text with surrounding whitespace trimmed.
func (t *Transport) sendPost(ctx context.Context, logger zerolog.Logger, path string, params []Parameter) (string, error) {
	u, err := BuildPostURL(t.host, t.port, path)
	if err != nil {
		return "", err
	}
	logger.Debug().Str("url", u.String()).Msg("POST URL")

	body := []byte(EncodeParameters(params))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set(headerContentType, contentTypeForm)

	resp, err := t.do(logger, req)
	if err != nil {
		return "", err
	}
	defer t.closeBody(logger, resp.Body)

	text, err := readText(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// do dispatches req and checks the status. Only a 200 response is returned,
// with its body still open; every other outcome closes the body first.
func (t *Transport) do(logger zerolog.Logger, req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnection, err)
		}
	}

	req.Header.Set(headerCacheControl, cacheControlNoCache)
	req.Header.Set(headerPragma, pragmaNoCache)
	if t.userAgent != "" {
		req.Header.Set(headerUserAgent, t.userAgent)
	}
	// https targets authenticate on the CONNECT tunnel instead, see Proxy.apply
	if t.proxy.IsAuth() && req.URL.Scheme == "http" {
		req.Header.Set(headerProxyAuthorization, t.proxy.AuthorizationHeader())
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	resp, err = recoverStatus(logger, resp, err)
	requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(req.Method, codeLabel(0)).Inc()
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	requestsTotal.WithLabelValues(req.Method, codeLabel(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		defer t.closeBody(logger, resp.Body)
		return nil, statusError(resp)
	}
	return resp, nil
}

// recoverStatus handles a dispatch error. When the client still handed back a
// response (net/http does so for redirect policy failures, with the body
// already closed) its status is used as-is. Without a response there is no
// status to fall back on and the error stands.
func recoverStatus(logger zerolog.Logger, resp *http.Response, err error) (*http.Response, error) {
	if err == nil {
		return resp, nil
	}
	logger.Error().Err(err).Msg("failed to get the response code")
	if resp == nil {
		return nil, err
	}
	recovered := *resp
	recovered.Body = http.NoBody
	return &recovered, nil
}

// statusError reads the error body best-effort; a missing or unreadable body
// is reported as "".
func statusError(resp *http.Response) *StatusError {
	se := &StatusError{
		Code:    resp.StatusCode,
		Message: statusMessage(resp),
	}
	if resp.Body != nil && resp.Body != http.NoBody {
		if text, err := readText(resp); err == nil {
			se.Body = text
		}
	}
	return se
}

func statusMessage(resp *http.Response) string {
	msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}

// readText reads the whole body as text in its declared charset
func readText(resp *http.Response) (string, error) {
	src := &sourceReader{r: resp.Body}
	r, err := textReader(src, resp.Header.Get(headerContentType))
	if err != nil {
		return "", err
	}
	text, err := ReadLines(r)
	if err != nil {
		return "", src.classify(err)
	}
	return text, nil
}

// sourceReader remembers the last failure of the underlying body so read
// errors can be split into transport and charset conversion failures.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

// classify wraps err as ErrConnection when the body itself failed and as
// ErrDecode otherwise.
func (s *sourceReader) classify(err error) error {
	if s.err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return fmt.Errorf("%w: %v", ErrDecode, err)
}

// closeBody releases the body and with it the connection. Close failures are
// logged and dropped so they never mask the call's own result.
func (t *Transport) closeBody(logger zerolog.Logger, body io.Closer) {
	if body == nil {
		return
	}
	if err := body.Close(); err != nil && !errors.Is(err, http.ErrBodyReadAfterClose) {
		logger.Debug().Err(err).Msg("failed to close response body")
	}
}
