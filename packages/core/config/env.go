package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. PHOTOREST_HOST
const EnvPrefix = "PHOTOREST"

// optionalBool distinguishes an unset variable from an explicit false
type optionalBool struct {
	set   bool
	value bool
}

func (b *optionalBool) Decode(value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	b.set = true
	b.value = v
	return nil
}

// No envconfig tags here: a tagged key falls back to the unprefixed
// variable, which would pick up PATH or HOST.
type envOverrides struct {
	Host           string       `split_words:"true"`
	Port           int          `split_words:"true"`
	Path           string       `split_words:"true"`
	ProxyHost      string       `split_words:"true"`
	ProxyPort      int          `split_words:"true"`
	ProxyUsername  string       `split_words:"true"`
	ProxyPassword  string       `split_words:"true"`
	Timeout        int          `split_words:"true"`
	ConnectTimeout int          `split_words:"true"`
	ReadTimeout    int          `split_words:"true"`
	RateLimit      float64      `split_words:"true"`
	RateBurst      int          `split_words:"true"`
	UserAgent      string       `split_words:"true"`
	LogLevel       string       `split_words:"true"`
	Verbose        optionalBool `split_words:"true"`
	NoColor        optionalBool `split_words:"true"`
}

// ApplyEnv overrides fields from PHOTOREST_* environment variables. Unset
// variables leave the current values alone.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	other := &Config{
		Host:           env.Host,
		Port:           env.Port,
		Path:           env.Path,
		Timeout:        env.Timeout,
		ConnectTimeout: env.ConnectTimeout,
		ReadTimeout:    env.ReadTimeout,
		RateLimit:      env.RateLimit,
		RateBurst:      env.RateBurst,
		UserAgent:      env.UserAgent,
		LogLevel:       env.LogLevel,
	}
	if env.Verbose.set {
		other.Verbose = BoolPtr(env.Verbose.value)
	}
	if env.NoColor.set {
		other.NoColor = BoolPtr(env.NoColor.value)
	}

	if env.ProxyHost != "" || env.ProxyPort != 0 || env.ProxyUsername != "" || env.ProxyPassword != "" {
		proxy := ProxyConfig{}
		if c.Proxy != nil {
			proxy = *c.Proxy
		}
		if env.ProxyHost != "" {
			proxy.Host = env.ProxyHost
		}
		if env.ProxyPort != 0 {
			proxy.Port = env.ProxyPort
		}
		if env.ProxyUsername != "" {
			proxy.Username = env.ProxyUsername
		}
		if env.ProxyPassword != "" {
			proxy.Password = env.ProxyPassword
		}
		other.Proxy = &proxy
	}

	*c = *c.Merge(other)
	return nil
}

// LoadEnvFile parses a dotenv file and exports every key that is not already
// set, so values from the real environment win. Supports KEY=value,
// quoted values, "export KEY=value" and # comments.
func LoadEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	vars := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("%s:%d: expected KEY=value", path, lineNo)
		}
		vars[key] = unquoteEnvValue(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	for k, v := range vars {
		if _, ok := os.LookupEnv(k); !ok {
			if err := os.Setenv(k, v); err != nil {
				return nil, fmt.Errorf("exporting %s: %w", k, err)
			}
		}
	}
	return vars, nil
}

func unquoteEnvValue(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1]
		}
	}
	// unquoted values may carry a trailing comment
	if i := strings.Index(value, " #"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return value
}
