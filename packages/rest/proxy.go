package rest

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
)

// Proxy routes requests through an HTTP proxy. When Auth is set every
// request carries Basic proxy authorization, even with an empty Username.
type Proxy struct {
	Host     string
	Port     int
	Username string
	Password string
	Auth     bool
}

// IsAuth reports whether proxy authorization is attached to requests
func (p *Proxy) IsAuth() bool {
	return p != nil && p.Auth
}

// Credentials returns base64("user:pass") for the Proxy-Authorization header
func (p *Proxy) Credentials() string {
	if p == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(p.Username + ":" + p.Password))
}

// AuthorizationHeader returns the full Proxy-Authorization value, or "" when
// no credentials are configured.
func (p *Proxy) AuthorizationHeader() string {
	if !p.IsAuth() {
		return ""
	}
	return "Basic " + p.Credentials()
}

// URL returns the proxy address as an http URL
func (p *Proxy) URL() (*url.URL, error) {
	if p.Host == "" {
		return nil, fmt.Errorf("%w: empty proxy host", ErrInvalidURL)
	}
	if p.Port <= 0 || p.Port > 65535 {
		return nil, fmt.Errorf("%w: proxy port %d out of range", ErrInvalidURL, p.Port)
	}
	return &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
	}, nil
}

// apply routes t through the proxy. For HTTPS targets the tunnel request
// carries the authorization; plain HTTP requests get the header per request.
func (p *Proxy) apply(t *http.Transport) error {
	u, err := p.URL()
	if err != nil {
		return err
	}
	t.Proxy = http.ProxyURL(u)
	if p.IsAuth() {
		t.ProxyConnectHeader = http.Header{}
		t.ProxyConnectHeader.Set(headerProxyAuthorization, p.AuthorizationHeader())
	}
	return nil
}
