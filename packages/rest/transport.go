package rest

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultHost is the photo service API host
	DefaultHost = "api.flickr.com"
	// DefaultPath is the REST endpoint path
	DefaultPath = "/services/rest/"
	// DefaultTimeout bounds a whole request, connect to last byte
	DefaultTimeout = 30 * time.Second
	// DefaultConnectTimeout bounds the TCP dial
	DefaultConnectTimeout = 10 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
)

// Transport issues GET and POST requests against the REST endpoint.
type Transport struct {
	host           string
	port           int
	path           string
	proxy          *Proxy
	timeout        time.Duration
	connectTimeout time.Duration
	readTimeout    time.Duration
	maxRedirects   int
	userAgent      string
	limiter        *rate.Limiter
	logger         zerolog.Logger
	roundTripper   http.RoundTripper
	httpClient     *http.Client
}

type Option func(*Transport)

// New creates a Transport for host. host may include a scheme and a port.
func New(host string, opts ...Option) (*Transport, error) {
	t := &Transport{
		host:           host,
		path:           DefaultPath,
		timeout:        DefaultTimeout,
		connectTimeout: DefaultConnectTimeout,
		maxRedirects:   DefaultMaxRedirects,
		logger:         log.Logger,
	}

	for _, opt := range opts {
		opt(t)
	}

	if _, err := BuildPostURL(t.host, t.port, t.path); err != nil {
		return nil, err
	}
	if err := t.buildClient(); err != nil {
		return nil, err
	}
	return t, nil
}

// buildClient creates the http.Client. Keep-alives are off so that closing a
// response body also tears the connection down.
func (t *Transport) buildClient() error {
	rt := t.roundTripper
	if rt == nil {
		dialer := &net.Dialer{Timeout: t.connectTimeout}
		transport := &http.Transport{
			Proxy:                 nil,
			DialContext:           dialer.DialContext,
			DisableKeepAlives:     true,
			ResponseHeaderTimeout: t.readTimeout,
		}

		if t.proxy != nil {
			if err := t.proxy.apply(transport); err != nil {
				return err
			}
		}
		rt = transport
	}

	maxRedirects := t.maxRedirects
	t.httpClient = &http.Client{
		Transport: rt,
		Timeout:   t.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return nil
}

func WithPort(port int) Option {
	return func(t *Transport) {
		t.port = port
	}
}

// WithPath overrides DefaultPath
func WithPath(path string) Option {
	return func(t *Transport) {
		t.path = path
	}
}

// WithTimeout bounds each request as a whole. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.timeout = d
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.connectTimeout = d
	}
}

// WithReadTimeout bounds the wait for response headers once the request is written
func WithReadTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.readTimeout = d
	}
}

func WithMaxRedirects(max int) Option {
	return func(t *Transport) {
		t.maxRedirects = max
	}
}

func WithUserAgent(ua string) Option {
	return func(t *Transport) {
		t.userAgent = ua
	}
}

// WithProxy routes every request through an unauthenticated proxy
func WithProxy(host string, port int) Option {
	return func(t *Transport) {
		t.proxy = &Proxy{Host: host, Port: port}
	}
}

// WithProxyAuth routes every request through a proxy and attaches
// Proxy-Authorization: Basic base64(username:password).
func WithProxyAuth(host string, port int, username, password string) Option {
	return func(t *Transport) {
		t.proxy = &Proxy{Host: host, Port: port, Username: username, Password: password, Auth: true}
	}
}

// WithRateLimit spaces requests to at most perSecond, allowing bursts of burst.
// Callers wait for a slot; nothing is retried.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(t *Transport) {
		if perSecond <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(t *Transport) {
		t.logger = l
	}
}

// WithRoundTripper replaces the network layer, mainly for tests. Proxy
// routing is then up to rt; the Proxy-Authorization header is still sent.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(t *Transport) {
		t.roundTripper = rt
	}
}

// WithProxy returns a copy of t routed through p. t itself is left untouched.
// A nil p removes the proxy.
func (t *Transport) WithProxy(p *Proxy) (*Transport, error) {
	clone := *t
	if p != nil {
		cp := *p
		clone.proxy = &cp
	} else {
		clone.proxy = nil
	}
	if err := clone.buildClient(); err != nil {
		return nil, err
	}
	return &clone, nil
}

func (t *Transport) Host() string {
	return t.host
}

func (t *Transport) Port() int {
	return t.port
}

func (t *Transport) Path() string {
	return t.path
}

// Proxy returns a copy of the proxy settings, nil when none are configured
func (t *Transport) Proxy() *Proxy {
	if t.proxy == nil {
		return nil
	}
	p := *t.proxy
	return &p
}

// IsProxyAuth reports whether requests carry proxy authorization
func (t *Transport) IsProxyAuth() bool {
	return t.proxy.IsAuth()
}

// ProxyCredentials returns base64("user:pass") of the configured proxy
func (t *Transport) ProxyCredentials() string {
	return t.proxy.Credentials()
}

// Get sends a GET request with the implicit JSON parameters appended and
// wraps the body. params is not modified.
func (t *Transport) Get(ctx context.Context, path string, params []Parameter) (*Response, error) {
	data, err := t.GetLine(ctx, path, WithImplicitGetParameters(params))
	if err != nil {
		return nil, err
	}
	return NewResponse(data), nil
}

// Post sends a POST request and wraps the decoded body
func (t *Transport) Post(ctx context.Context, path string, params []Parameter) (*Response, error) {
	data, err := t.SendPost(ctx, path, params)
	if err != nil {
		return nil, err
	}
	return NewResponse(data), nil
}

// GetLine sends a GET request and returns the body with line breaks removed.
// No implicit parameters are added.
func (t *Transport) GetLine(ctx context.Context, path string, params []Parameter) (string, error) {
	logger := t.callLogger(http.MethodGet)
	resp, err := t.openGet(ctx, logger, path, params)
	if err != nil {
		return "", err
	}
	defer t.closeBody(logger, resp.Body)

	return readText(resp)
}

// SendPost sends a POST request and returns the body, trimmed and
// URL-decoded once.
func (t *Transport) SendPost(ctx context.Context, path string, params []Parameter) (string, error) {
	logger := t.callLogger(http.MethodPost)
	logger.Debug().Str("path", path).Stringer("parameters", parameterList(params)).Msg("send post input params")

	var data string
	defer func() {
		logger.Debug().Str("result", data).Msg("send post result")
	}()

	raw, err := t.sendPost(ctx, logger, path, params)
	if err != nil {
		return "", err
	}
	data, err = DecodeBody(raw)
	if err != nil {
		return "", err
	}
	return data, nil
}

// GetMapData fetches a key/value payload with GET (useGet) or POST and
// decodes it into a map. The payload must be "k=v&k2=v2" shaped; anything
// else is silently dropped.
func (t *Transport) GetMapData(ctx context.Context, useGet bool, path string, params []Parameter) (map[string]string, error) {
	var (
		data string
		err  error
	)
	if useGet {
		data, err = t.GetLine(ctx, path, params)
	} else {
		data, err = t.SendPost(ctx, path, params)
	}
	if err != nil {
		return nil, err
	}

	decoded, err := DecodeBody(data)
	if err != nil {
		return nil, err
	}
	return DataAsMap(decoded), nil
}

type parameterList []Parameter

func (l parameterList) String() string {
	return EncodeParametersQuoted(l, ", ", false)
}
