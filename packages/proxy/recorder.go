// Package proxy provides a forward HTTP proxy that records the calls passing
// through it and can require Basic proxy authentication.
//
// Plain http targets are forwarded with a reverse proxy; https targets are
// tunneled with CONNECT. Authentication is checked on both, so a client that
// only authenticates one of them shows up in the recordings as a 407.
package proxy

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Realm is sent in the Proxy-Authenticate challenge
const Realm = "photorest"

// Recording is one call seen by the proxy
type Recording struct {
	Timestamp     time.Time     `json:"timestamp"`
	Method        string        `json:"method"`
	URL           string        `json:"url"`
	Host          string        `json:"host"`
	User          string        `json:"user,omitempty"`
	Authenticated bool          `json:"authenticated"`
	StatusCode    int           `json:"statusCode"`
	Duration      time.Duration `json:"duration"`
}

// Recorder is a forward proxy that records requests
type Recorder struct {
	port        int
	username    string
	password    string
	auth        bool
	verbose     bool
	exclude     []string
	dialTimeout time.Duration
	transport   http.RoundTripper
	store       *Store
	logger      zerolog.Logger

	recordings []Recording
	mutex      sync.Mutex
}

// Option is a functional option for Recorder
type Option func(*Recorder)

// WithPort sets the proxy port
func WithPort(port int) Option {
	return func(r *Recorder) {
		r.port = port
	}
}

// WithAuth requires Basic proxy credentials on every request
func WithAuth(username, password string) Option {
	return func(r *Recorder) {
		r.username = username
		r.password = password
		r.auth = true
	}
}

// WithVerbose enables verbose logging
func WithVerbose(verbose bool) Option {
	return func(r *Recorder) {
		r.verbose = verbose
	}
}

// WithExclude sets target hosts that are forwarded but not recorded
func WithExclude(hosts []string) Option {
	return func(r *Recorder) {
		r.exclude = hosts
	}
}

// WithTransport sets the round tripper used for plain http targets
func WithTransport(rt http.RoundTripper) Option {
	return func(r *Recorder) {
		r.transport = rt
	}
}

// WithStore also persists every recording to store
func WithStore(store *Store) Option {
	return func(r *Recorder) {
		r.store = store
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Recorder) {
		r.logger = l
	}
}

// NewRecorder creates a new recording proxy
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		port:        8888,
		dialTimeout: 10 * time.Second,
		recordings:  make([]Recording, 0),
		logger:      log.Logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start starts the recording proxy
func (r *Recorder) Start() error {
	return r.StartWithContext(context.Background())
}

// StartWithContext starts the proxy with context for graceful shutdown
func (r *Recorder) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", r.port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	r.logger.Info().Int("port", r.port).Bool("auth", r.auth).Msg("recording proxy starting")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler
func (r *Recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rec := Recording{
		Timestamp: time.Now(),
		Method:    req.Method,
		URL:       req.URL.String(),
		Host:      req.URL.Host,
	}
	if req.Method == http.MethodConnect {
		rec.Host = req.Host
		rec.URL = req.Host
	}

	user, ok := r.authenticate(req)
	rec.User = user
	rec.Authenticated = ok
	if !ok {
		w.Header().Set("Proxy-Authenticate", fmt.Sprintf("Basic realm=%q", Realm))
		http.Error(w, "proxy authentication required", http.StatusProxyAuthRequired)
		r.finish(rec, http.StatusProxyAuthRequired)
		return
	}

	if req.Method == http.MethodConnect {
		r.finish(rec, r.tunnel(w, req))
		return
	}

	if !req.URL.IsAbs() {
		http.Error(w, "not a proxy request", http.StatusBadRequest)
		r.finish(rec, http.StatusBadRequest)
		return
	}

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	r.forward().ServeHTTP(sw, req)
	r.finish(rec, sw.status)
}

// authenticate reports the user named in Proxy-Authorization and whether the
// request may pass. Without configured credentials every request passes.
func (r *Recorder) authenticate(req *http.Request) (string, bool) {
	user, pass, found := parseProxyAuth(req.Header.Get("Proxy-Authorization"))
	if !r.auth {
		return user, true
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(r.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(r.password)) == 1
	return user, found && userOK && passOK
}

func parseProxyAuth(header string) (string, string, bool) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	return strings.Cut(string(decoded), ":")
}

func (r *Recorder) forward() *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.Host = ""
		},
		Transport: r.transport,
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			r.logger.Debug().Err(err).Str("url", req.URL.String()).Msg("upstream failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}

// tunnel serves CONNECT by splicing the client connection to the target
func (r *Recorder) tunnel(w http.ResponseWriter, req *http.Request) int {
	upstream, err := net.DialTimeout("tcp", req.Host, r.dialTimeout)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return http.StatusBadGateway
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		upstream.Close()
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return http.StatusInternalServerError
	}
	client, buf, err := hijacker.Hijack()
	if err != nil {
		upstream.Close()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return http.StatusInternalServerError
	}

	if _, err := client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		client.Close()
		upstream.Close()
		return http.StatusOK
	}

	// either side finishing closes the other
	go func() {
		// bytes the client sent after the CONNECT line are already buffered
		_, _ = io.Copy(upstream, buf.Reader)
		upstream.Close()
	}()
	go func() {
		_, _ = io.Copy(client, upstream)
		client.Close()
	}()
	return http.StatusOK
}

func (r *Recorder) finish(rec Recording, status int) {
	rec.StatusCode = status
	rec.Duration = time.Since(rec.Timestamp)

	if r.verbose {
		r.logger.Info().
			Str("method", rec.Method).
			Str("url", rec.URL).
			Str("user", rec.User).
			Int("status", status).
			Dur("duration", rec.Duration).
			Msg("proxied")
	}

	if r.shouldExclude(rec.Host) {
		return
	}
	r.mutex.Lock()
	r.recordings = append(r.recordings, rec)
	r.mutex.Unlock()

	if r.store != nil {
		if err := r.store.Save(context.Background(), rec); err != nil {
			r.logger.Error().Err(err).Str("url", rec.URL).Msg("failed to store recording")
		}
	}
}

func (r *Recorder) shouldExclude(host string) bool {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	for _, exclude := range r.exclude {
		if strings.EqualFold(host, exclude) || strings.EqualFold(hostname, exclude) {
			return true
		}
	}
	return false
}

// GetRecordings returns all recorded requests
func (r *Recorder) GetRecordings() []Recording {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	result := make([]Recording, len(r.recordings))
	copy(result, r.recordings)
	return result
}

// Clear clears all recordings
func (r *Recorder) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.recordings = make([]Recording, 0)
}

// ExportToJSON exports recordings to JSON format
func (r *Recorder) ExportToJSON() ([]byte, error) {
	return json.MarshalIndent(r.GetRecordings(), "", "  ")
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
