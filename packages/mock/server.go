// Package mock provides a fake photo REST service for local development and tests.
//
// Requests to the REST path are dispatched on their "method" parameter. GET
// calls answer with JSON envelopes ({"stat":"ok",...}); POST calls and the
// OAuth token endpoints answer with form-encoded "k=v&k2=v2" bodies, the way
// the real service does.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultPath is the REST endpoint served by the mock
	DefaultPath = "/services/rest/"
	// RequestTokenPath and AccessTokenPath serve fixed OAuth token responses
	RequestTokenPath = "/services/oauth/request_token"
	AccessTokenPath  = "/services/oauth/access_token"

	// CodeMethodNotFound is the service's error code for unknown methods
	CodeMethodNotFound = 112

	contentTypeJSON = "application/json"
	contentTypeText = "text/plain; charset=utf-8"
)

// RecordedRequest is a request the server has seen
type RecordedRequest struct {
	Method string
	Path   string
	Params url.Values
	Header http.Header
}

// Server is a fake photo REST service
type Server struct {
	router     *Router
	port       int
	path       string
	delay      time.Duration
	verbose    bool
	failStatus int
	failBody   string
	metrics    bool
	logger     zerolog.Logger

	mu       sync.Mutex
	requests []RecordedRequest
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithPath sets the REST path, DefaultPath otherwise
func WithPath(path string) Option {
	return func(s *Server) {
		s.path = path
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithVerbose logs every request
func WithVerbose(verbose bool) Option {
	return func(s *Server) {
		s.verbose = verbose
	}
}

// WithFailure makes every request fail with status and body. An empty body
// sends no error body at all.
func WithFailure(status int, body string) Option {
	return func(s *Server) {
		s.failStatus = status
		s.failBody = body
	}
}

// WithMetrics exposes the process's Prometheus registry on /metrics
func WithMetrics(enabled bool) Option {
	return func(s *Server) {
		s.metrics = enabled
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a mock server with the built-in test and OAuth routes
func NewServer(opts ...Option) *Server {
	s := &Server{
		router: NewRouter(),
		port:   3000,
		path:   DefaultPath,
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerDefaults()
	return s
}

func (s *Server) registerDefaults() {
	s.HandleMethod(http.MethodGet, "flickr.test.echo", echoJSON)
	s.HandleMethod(http.MethodPost, "flickr.test.echo", echoForm)
	s.HandleMethod(http.MethodGet, "flickr.test.null", func(url.Values) *MockResponse {
		return JSONResponse(map[string]any{"stat": "ok"})
	})
	login := func(url.Values) *MockResponse {
		return JSONResponse(map[string]any{
			"user": map[string]any{
				"id":       "12037949754@N01",
				"username": map[string]any{"_content": "mock"},
			},
			"stat": "ok",
		})
	}
	s.HandleMethod(http.MethodGet, "flickr.test.login", login)
	s.HandleMethod(http.MethodPost, "flickr.test.login", login)

	requestToken := func(url.Values) *MockResponse {
		return FormResponse(url.Values{
			"oauth_callback_confirmed": {"true"},
			"oauth_token":              {uuid.NewString()},
			"oauth_token_secret":       {uuid.NewString()},
		})
	}
	accessToken := func(url.Values) *MockResponse {
		return FormResponse(url.Values{
			"fullname":           {"Mock User"},
			"oauth_token":        {uuid.NewString()},
			"oauth_token_secret": {uuid.NewString()},
			"user_nsid":          {"12037949754@N01"},
			"username":           {"mock"},
		})
	}
	for _, m := range []string{http.MethodGet, http.MethodPost} {
		s.HandlePath(m, RequestTokenPath, requestToken)
		s.HandlePath(m, AccessTokenPath, accessToken)
	}
}

// HandleMethod registers a handler for an API method on the REST path
func (s *Server) HandleMethod(httpMethod, apiMethod string, h HandlerFunc) {
	s.router.AddRoute(&Route{HTTPMethod: httpMethod, APIMethod: apiMethod, Handler: h})
}

// HandlePath registers a handler for a fixed path
func (s *Server) HandlePath(httpMethod, path string, h HandlerFunc) {
	s.router.AddRoute(&Route{HTTPMethod: httpMethod, Path: path, Handler: h})
}

// JSONResponse encodes v as a 200 JSON response
func JSONResponse(v any) *MockResponse {
	data, err := json.Marshal(v)
	if err != nil {
		return &MockResponse{StatusCode: http.StatusInternalServerError, ContentType: contentTypeText, Body: err.Error()}
	}
	return &MockResponse{StatusCode: http.StatusOK, ContentType: contentTypeJSON, Body: string(data)}
}

// FormResponse encodes values as a 200 form-encoded text response
func FormResponse(values url.Values) *MockResponse {
	return &MockResponse{StatusCode: http.StatusOK, ContentType: contentTypeText, Body: values.Encode()}
}

// FailResponse is the service's error envelope. Failures still answer 200.
func FailResponse(code int, message string) *MockResponse {
	return JSONResponse(map[string]any{"stat": "fail", "code": code, "message": message})
}

func echoJSON(params url.Values) *MockResponse {
	body := map[string]any{"stat": "ok"}
	for k, v := range params {
		if len(v) > 0 {
			body[k] = map[string]any{"_content": v[len(v)-1]}
		}
	}
	return JSONResponse(body)
}

func echoForm(params url.Values) *MockResponse {
	return FormResponse(params)
}

// Handler returns the server's HTTP handler, e.g. for httptest.NewServer
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.HandleFunc("/", s.handleRequest)
	return mux
}

// Start starts the mock server
func (s *Server) Start() error {
	return s.StartWithContext(context.Background())
}

// StartWithContext starts the server with context for graceful shutdown
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Str("path", s.path).Int("routes", len(s.router.routes)).Msg("mock server starting")
	if s.verbose {
		for _, route := range s.router.Routes() {
			s.logger.Info().Str("http_method", route.HTTPMethod).Str("api_method", route.APIMethod).Str("path", route.Path).Msg("route")
		}
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	if err := r.ParseForm(); err != nil {
		s.write(w, r, start, &MockResponse{StatusCode: http.StatusBadRequest, ContentType: contentTypeText, Body: err.Error()})
		return
	}
	s.record(r)

	if s.failStatus != 0 {
		s.write(w, r, start, &MockResponse{StatusCode: s.failStatus, ContentType: contentTypeText, Body: s.failBody})
		return
	}

	var route *Route
	if normalizePath(r.URL.Path) == normalizePath(s.path) {
		apiMethod := r.Form.Get(MethodParam)
		route = s.router.MatchMethod(r.Method, apiMethod)
		if route == nil {
			s.write(w, r, start, FailResponse(CodeMethodNotFound, fmt.Sprintf("Method %q not found", apiMethod)))
			return
		}
	} else {
		route = s.router.MatchPath(r.Method, r.URL.Path)
	}

	if route == nil {
		s.write(w, r, start, &MockResponse{StatusCode: http.StatusNotFound, ContentType: contentTypeText, Body: "404 page not found"})
		return
	}

	s.write(w, r, start, route.Handler(r.Form))
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, start time.Time, resp *MockResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write([]byte(resp.Body))

	if s.verbose {
		s.logger.Info().
			Str("http_method", r.Method).
			Str("path", r.URL.Path).
			Str("api_method", r.Form.Get(MethodParam)).
			Int("status", resp.StatusCode).
			Dur("duration", time.Since(start)).
			Msg("mock request")
	}
}

func (s *Server) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Params: r.Form,
		Header: r.Header.Clone(),
	})
}

// Requests returns the requests seen so far
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// GetRoutes returns all registered routes
func (s *Server) GetRoutes() []*Route {
	return s.router.Routes()
}
