package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Host:           "https://api.flickr.com",
		Port:           0,
		Path:           "/services/rest/",
		Proxy:          nil,
		Timeout:        30000, // 30 seconds
		ConnectTimeout: 10000, // 10 seconds
		ReadTimeout:    0,
		MaxRedirects:   10,
		RateLimit:      0,
		RateBurst:      1,
		UserAgent:      "",
		LogLevel:       "info",
		Verbose:        BoolPtr(false),
		NoColor:        BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Host == defaults.Host &&
		c.Port == defaults.Port &&
		c.Path == defaults.Path &&
		c.Proxy == nil &&
		c.Timeout == defaults.Timeout &&
		c.ConnectTimeout == defaults.ConnectTimeout &&
		c.ReadTimeout == defaults.ReadTimeout &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.RateLimit == defaults.RateLimit &&
		c.RateBurst == defaults.RateBurst &&
		c.UserAgent == defaults.UserAgent &&
		c.LogLevel == defaults.LogLevel &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
