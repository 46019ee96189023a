package config

import (
	"github.com/rs/zerolog"

	"github.com/abdul-hamid-achik/photorest/packages/rest"
)

// TransportOptions maps the config onto rest options. Zero values keep the
// transport defaults.
func (c *Config) TransportOptions(logger zerolog.Logger) []rest.Option {
	opts := []rest.Option{rest.WithLogger(logger)}

	if c.Port != 0 {
		opts = append(opts, rest.WithPort(c.Port))
	}
	if c.Path != "" {
		opts = append(opts, rest.WithPath(c.Path))
	}
	if c.Timeout > 0 {
		opts = append(opts, rest.WithTimeout(c.TimeoutDuration()))
	}
	if c.ConnectTimeout > 0 {
		opts = append(opts, rest.WithConnectTimeout(c.ConnectTimeoutDuration()))
	}
	if c.ReadTimeout > 0 {
		opts = append(opts, rest.WithReadTimeout(c.ReadTimeoutDuration()))
	}
	if c.MaxRedirects > 0 {
		opts = append(opts, rest.WithMaxRedirects(c.MaxRedirects))
	}
	if c.RateLimit > 0 {
		opts = append(opts, rest.WithRateLimit(c.RateLimit, c.RateBurst))
	}
	if c.UserAgent != "" {
		opts = append(opts, rest.WithUserAgent(c.UserAgent))
	}
	if p := c.Proxy; p != nil {
		if p.HasCredentials() {
			opts = append(opts, rest.WithProxyAuth(p.Host, p.Port, p.Username, p.Password))
		} else {
			opts = append(opts, rest.WithProxy(p.Host, p.Port))
		}
	}
	return opts
}

// NewTransport validates the config and builds a transport from it
func (c *Config) NewTransport(logger zerolog.Logger) (*rest.Transport, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return rest.New(c.Host, c.TransportOptions(logger)...)
}

// Level parses LogLevel, falling back to info
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}
