package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/photorest/packages/mock"
)

var (
	mockPortFlag       int
	mockDelayFlag      string
	mockPathFlag       string
	mockFailStatusFlag int
	mockFailBodyFlag   string
	mockMetricsFlag    bool
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start a fake photo REST service",
	Long: `Start an HTTP server that imitates the photo REST service.

The mock server:
- Answers flickr.test.echo, flickr.test.null and flickr.test.login
- Answers GET calls with JSON envelopes and POST calls with k=v&k2=v2 bodies
- Answers unknown methods with {"stat":"fail","code":112,...}
- Serves fixed OAuth request and access tokens
- Can fail every request with a given status, or add artificial delays

Examples:
  photorest mock
  photorest mock --port 3000 --delay 100ms
  photorest mock --fail-status 503 --fail-body "down for maintenance"
  photorest mock --metrics -v`,
	Args: cobra.NoArgs,
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "listen", "l", 3000, "Port to run the mock server on")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().StringVar(&mockPathFlag, "rest-path", mock.DefaultPath, "REST endpoint path")
	mockCmd.Flags().IntVar(&mockFailStatusFlag, "fail-status", 0, "Fail every request with this HTTP status")
	mockCmd.Flags().StringVar(&mockFailBodyFlag, "fail-body", "", "Body sent with --fail-status")
	mockCmd.Flags().BoolVar(&mockMetricsFlag, "metrics", false, "Expose Prometheus metrics on /metrics")
}

func newMockServer() (*mock.Server, error) {
	delay, err := parseDuration(mockDelayFlag)
	if err != nil {
		return nil, err
	}
	if mockFailStatusFlag != 0 && (mockFailStatusFlag < 100 || mockFailStatusFlag > 599) {
		return nil, fmt.Errorf("invalid --fail-status %d", mockFailStatusFlag)
	}

	opts := []mock.Option{
		mock.WithPort(mockPortFlag),
		mock.WithPath(mockPathFlag),
		mock.WithDelay(delay),
		mock.WithVerbose(cfg.GetVerbose()),
		mock.WithMetrics(mockMetricsFlag),
		mock.WithLogger(log.Logger),
	}
	if mockFailStatusFlag != 0 {
		opts = append(opts, mock.WithFailure(mockFailStatusFlag, mockFailBodyFlag))
	}
	return mock.NewServer(opts...), nil
}

func mockCommand(cmd *cobra.Command, args []string) error {
	server, err := newMockServer()
	if err != nil {
		return usageError(err)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Mock server listening on http://localhost:%d%s (%d routes)\n",
		mockPortFlag, mockPathFlag, len(server.GetRoutes()))

	return server.StartWithContext(ctx)
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" || value == "0" {
		return 0, nil
	}
	delay, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	return delay, nil
}
