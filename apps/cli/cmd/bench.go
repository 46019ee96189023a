package cmd

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/photorest/packages/bench"
)

var (
	benchPostFlag        bool
	benchDurationFlag    string
	benchRequestsFlag    int64
	benchRPSFlag         float64
	benchConcurrencyFlag int
	benchWarmupFlag      int
	benchThresholdFlag   string
)

var benchCmd = &cobra.Command{
	Use:   "bench <api-method> [name=value...]",
	Short: "Call an API method repeatedly and report latency",
	Long: `Call an API method at a fixed rate and report throughput, latency
percentiles and failures grouped by kind (status, api, decode, connection).

Calls stop being issued after --duration or --requests, whichever comes
first. The global --rate flag still throttles the underlying transport.

Examples:
  photorest bench flickr.test.null --duration 30s --rps 50
  photorest bench flickr.test.echo a=1 --post -n 500 -c 20
  photorest bench flickr.test.null -d 1m --rps 100 --threshold "p95<200ms,errors<0.1%"`,
	Args: cobra.MinimumNArgs(1),
	RunE: benchCommand,
}

func init() {
	benchCmd.Flags().BoolVar(&benchPostFlag, "post", false, "Use POST instead of GET")
	benchCmd.Flags().StringVarP(&benchDurationFlag, "duration", "d", "10s", "How long to issue calls (e.g., 30s, 5m), 0 for no limit")
	benchCmd.Flags().Int64VarP(&benchRequestsFlag, "requests", "n", 0, "Stop after this many calls")
	benchCmd.Flags().Float64Var(&benchRPSFlag, "rps", 10, "Target calls per second, 0 for as fast as possible")
	benchCmd.Flags().IntVarP(&benchConcurrencyFlag, "concurrency", "c", 10, "Maximum calls in flight")
	benchCmd.Flags().IntVar(&benchWarmupFlag, "warmup", 0, "Unmeasured calls made before the run")
	benchCmd.Flags().StringVar(&benchThresholdFlag, "threshold", "", `Pass/fail thresholds (e.g., "p95<200ms,errors<0.1%")`)
}

func buildBenchConfig() (*bench.Config, error) {
	duration, err := parseDuration(benchDurationFlag)
	if err != nil {
		return nil, err
	}
	thresholds, err := bench.ParseThresholds(benchThresholdFlag)
	if err != nil {
		return nil, err
	}
	c := &bench.Config{
		Duration:    duration,
		Requests:    benchRequestsFlag,
		Rate:        benchRPSFlag,
		Concurrency: benchConcurrencyFlag,
		Warmup:      benchWarmupFlag,
		Thresholds:  thresholds,
	}
	return c, c.Validate()
}

func benchCommand(cmd *cobra.Command, args []string) error {
	params, err := methodParams(args)
	if err != nil {
		return err
	}
	benchConfig, err := buildBenchConfig()
	if err != nil {
		return usageError(err)
	}
	if outputFlag != "console" && outputFlag != "json" {
		return usageError(errors.New("bench supports console and json output"))
	}

	tr, err := cfg.NewTransport(log.Logger)
	if err != nil {
		return configError(err)
	}

	target := bench.Target{Method: http.MethodGet, Path: tr.Path(), Params: params}
	if benchPostFlag {
		target.Method = http.MethodPost
	}

	reporter := bench.NewReporter(
		bench.WithWriter(cmd.OutOrStdout()),
		bench.WithNoColor(cfg.GetNoColor()),
		bench.WithJSON(outputFlag == "json"),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := bench.NewRunner(benchConfig, tr, target,
		bench.WithReporter(reporter),
		bench.WithLogger(log.Logger),
	).Run(ctx)
	if err != nil {
		return err
	}
	if !result.Passed {
		return &exitError{code: ExitAssertionFailure, err: errors.New("thresholds failed"), reported: true}
	}
	return nil
}
