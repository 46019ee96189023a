package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the photorest configuration
type Config struct {
	Host           string       `json:"host,omitempty" yaml:"host,omitempty"`
	Port           int          `json:"port,omitempty" yaml:"port,omitempty"`
	Path           string       `json:"path,omitempty" yaml:"path,omitempty"`
	Proxy          *ProxyConfig `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Timeout        int          `json:"timeout,omitempty" yaml:"timeout,omitempty"`               // milliseconds
	ConnectTimeout int          `json:"connectTimeout,omitempty" yaml:"connectTimeout,omitempty"` // milliseconds
	ReadTimeout    int          `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`       // milliseconds
	MaxRedirects   int          `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	RateLimit      float64      `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"` // requests per second, 0 = unlimited
	RateBurst      int          `json:"rateBurst,omitempty" yaml:"rateBurst,omitempty"`
	UserAgent      string       `json:"userAgent,omitempty" yaml:"userAgent,omitempty"`
	LogLevel       string       `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	Verbose        *bool        `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor        *bool        `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

// ProxyConfig routes requests through an HTTP proxy. Username enables
// Basic proxy authorization.
type ProxyConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// HasCredentials reports whether either half of the Basic credentials is set
func (p *ProxyConfig) HasCredentials() bool {
	return p.Username != "" || p.Password != ""
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

func (c *Config) ConnectTimeoutDuration() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Millisecond
}

func (c *Config) ReadTimeoutDuration() time.Duration {
	return time.Duration(c.ReadTimeout) * time.Millisecond
}

// Validate checks ranges and required proxy fields
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Timeout < 0 || c.ConnectTimeout < 0 || c.ReadTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("maxRedirects must not be negative")
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("rateLimit and rateBurst must not be negative")
	}
	if c.Proxy != nil {
		if c.Proxy.Host == "" {
			return fmt.Errorf("proxy host is required")
		}
		if c.Proxy.Port <= 0 || c.Proxy.Port > 65535 {
			return fmt.Errorf("proxy port %d out of range", c.Proxy.Port)
		}
	}
	return nil
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".photorest.json",
	"photorest.json",
	".photorest.yaml",
	".photorest.yml",
}

// Load reads the config file (or searches for one when path is empty) and
// applies PHOTOREST_* environment overrides on top.
func Load(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.Host != "" {
		result.Host = other.Host
	}
	if other.Port > 0 {
		result.Port = other.Port
	}
	if other.Path != "" {
		result.Path = other.Path
	}
	if other.Proxy != nil {
		p := *other.Proxy
		result.Proxy = &p
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.ConnectTimeout > 0 {
		result.ConnectTimeout = other.ConnectTimeout
	}
	if other.ReadTimeout > 0 {
		result.ReadTimeout = other.ReadTimeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.RateBurst > 0 {
		result.RateBurst = other.RateBurst
	}
	if other.UserAgent != "" {
		result.UserAgent = other.UserAgent
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	return &result
}

// SaveConfig saves the configuration to a file, as YAML when the extension
// says so and as JSON otherwise.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
