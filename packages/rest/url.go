package rest

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// BuildURL builds a GET URL with params encoded into the query string.
// host may carry a scheme ("https://api.example.com"); http is assumed
// otherwise. port is omitted when zero or the scheme default.
func BuildURL(host string, port int, path string, params []Parameter) (*url.URL, error) {
	u, err := baseURL(host, port, path)
	if err != nil {
		return nil, err
	}
	u.RawQuery = EncodeParameters(params)
	return u, nil
}

// BuildPostURL builds a POST target URL. Parameters travel in the body.
func BuildPostURL(host string, port int, path string) (*url.URL, error) {
	return baseURL(host, port, path)
}

func baseURL(host string, port int, path string) (*url.URL, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: empty host", ErrInvalidURL)
	}
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrInvalidURL, port)
	}

	raw := host
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, host)
	}

	if port != 0 && !isDefaultPort(u.Scheme, port) {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	}

	if path == "" {
		path = "/"
	} else if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func isDefaultPort(scheme string, port int) bool {
	return (scheme == "http" && port == 80) || (scheme == "https" && port == 443)
}
