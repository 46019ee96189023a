package cmd

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/photorest/packages/core/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag        string
	envFileFlag       string
	verboseFlag       bool
	noColorFlag       bool
	outputFlag        string
	hostFlag          string
	portFlag          int
	pathFlag          string
	timeoutFlag       time.Duration
	rateFlag          float64
	proxyFlag         string
	proxyUserFlag     string
	proxyPasswordFlag string

	// cfg is the effective configuration, loaded before every command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "photorest",
	Short: "Call a photo-sharing REST API from the command line.",
	Long: `photorest sends GET and POST calls to a photo-sharing REST API,
optionally through an authenticating HTTP proxy, and prints the decoded
responses.

Settings are read from .photorest.json or .photorest.yaml, then from
PHOTOREST_* environment variables, then from flags.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || !ee.reported {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
		}
		os.Exit(exitCode(err))
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", "", "Path to config file (default: search the current directory)")
	flags.StringVar(&envFileFlag, "env-file", "", "Path to .env file exported before PHOTOREST_* variables are read")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output and debug logging")
	flags.BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	flags.StringVarP(&outputFlag, "output", "o", "console", "Output format: console, json")
	flags.StringVar(&hostFlag, "host", "", "API host, optionally with scheme and port")
	flags.IntVar(&portFlag, "port", 0, "API port (0 keeps the scheme default)")
	flags.StringVar(&pathFlag, "path", "", "REST endpoint path")
	flags.DurationVar(&timeoutFlag, "timeout", 0, "Overall request timeout (e.g., 30s, 1m)")
	flags.Float64Var(&rateFlag, "rate", 0, "Maximum requests per second, 0 for unlimited")
	flags.StringVar(&proxyFlag, "proxy", "", "HTTP proxy as host:port")
	flags.StringVar(&proxyUserFlag, "proxy-user", "", "Proxy username for Basic authorization")
	flags.StringVar(&proxyPasswordFlag, "proxy-password", "", "Proxy password")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadSettings(cmd *cobra.Command, args []string) error {
	if envFileFlag != "" {
		if _, err := config.LoadEnvFile(envFileFlag); err != nil {
			return configError(err)
		}
	}

	loaded, err := config.Load(configFlag)
	if err != nil {
		return configError(err)
	}
	if err := applyFlags(cmd, loaded); err != nil {
		return usageError(err)
	}
	cfg = loaded

	setupLogging(cfg)
	return nil
}

// applyFlags overrides c with every flag the user set explicitly
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("host") {
		c.Host = hostFlag
	}
	if changed("port") {
		c.Port = portFlag
	}
	if changed("path") {
		c.Path = pathFlag
	}
	if changed("timeout") {
		c.Timeout = int(timeoutFlag.Milliseconds())
	}
	if changed("rate") {
		c.RateLimit = rateFlag
	}
	if changed("verbose") {
		c.Verbose = config.BoolPtr(verboseFlag)
	}
	if changed("no-color") {
		c.NoColor = config.BoolPtr(noColorFlag)
	}

	if changed("proxy") {
		host, portStr, err := net.SplitHostPort(proxyFlag)
		if err != nil {
			return fmt.Errorf("invalid --proxy %q: %w", proxyFlag, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid --proxy port %q", portStr)
		}
		c.Proxy = &config.ProxyConfig{Host: host, Port: port}
	}
	if changed("proxy-user") || changed("proxy-password") {
		if c.Proxy == nil {
			return fmt.Errorf("--proxy-user and --proxy-password need a proxy (--proxy or config)")
		}
		proxy := *c.Proxy
		if changed("proxy-user") {
			proxy.Username = proxyUserFlag
		}
		if changed("proxy-password") {
			proxy.Password = proxyPasswordFlag
		}
		c.Proxy = &proxy
	}
	return nil
}

// setupLogging points the global zerolog logger at stderr. Verbose forces
// debug level so request URLs and POST bodies are shown.
func setupLogging(c *config.Config) {
	level := c.Level()
	if c.GetVerbose() {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    c.GetNoColor(),
		TimeFormat: time.Kitchen,
	}
	log.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	if c.GetNoColor() {
		color.NoColor = true
	}
}
