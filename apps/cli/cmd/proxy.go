package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/photorest/packages/proxy"
)

var (
	proxyPortFlag     int
	proxyAuthUserFlag string
	proxyAuthPassFlag string
	proxyExcludeFlag  []string
	proxyExportFlag   string
	proxyDBFlag       string
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Start an authenticating, recording forward proxy",
	Long: `Start a forward HTTP proxy that records every call passing through.

With --user set, requests without a matching Proxy-Authorization header are
answered with 407. https targets are tunneled with CONNECT.

Examples:
  photorest proxy --listen 8888
  photorest proxy --listen 8888 --user alice --password secret --export calls.json
  photorest proxy --db recordings.db
  photorest get flickr.test.echo --proxy localhost:8888 --proxy-user alice --proxy-password secret`,
	Args: cobra.NoArgs,
	RunE: proxyCommand,
}

func init() {
	proxyCmd.Flags().IntVarP(&proxyPortFlag, "listen", "l", 8888, "Port to run the proxy on")
	proxyCmd.Flags().StringVar(&proxyAuthUserFlag, "user", "", "Require Basic proxy credentials with this username")
	proxyCmd.Flags().StringVar(&proxyAuthPassFlag, "password", "", "Require Basic proxy credentials with this password")
	proxyCmd.Flags().StringSliceVar(&proxyExcludeFlag, "exclude", nil, "Target hosts to forward without recording")
	proxyCmd.Flags().StringVar(&proxyExportFlag, "export", "", "Write recordings as JSON to this file on shutdown")
	proxyCmd.Flags().StringVar(&proxyDBFlag, "db", "", "Also append recordings to this SQLite database")
}

func newRecorder(store *proxy.Store) *proxy.Recorder {
	opts := []proxy.Option{
		proxy.WithPort(proxyPortFlag),
		proxy.WithVerbose(true),
		proxy.WithExclude(proxyExcludeFlag),
		proxy.WithLogger(log.Logger),
	}
	if proxyAuthUserFlag != "" || proxyAuthPassFlag != "" {
		opts = append(opts, proxy.WithAuth(proxyAuthUserFlag, proxyAuthPassFlag))
	}
	if store != nil {
		opts = append(opts, proxy.WithStore(store))
	}
	return proxy.NewRecorder(opts...)
}

func proxyCommand(cmd *cobra.Command, args []string) error {
	var store *proxy.Store
	if proxyDBFlag != "" {
		var err error
		if store, err = proxy.OpenStore(proxyDBFlag); err != nil {
			return configError(err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close recordings database")
			}
		}()
	}
	recorder := newRecorder(store)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Proxy listening on localhost:%d\n", proxyPortFlag)
	if err := recorder.StartWithContext(ctx); err != nil {
		return err
	}

	recordings := recorder.GetRecordings()
	fmt.Fprintf(cmd.OutOrStdout(), "\nRecorded %d calls\n", len(recordings))
	if proxyExportFlag == "" {
		return nil
	}
	data, err := recorder.ExportToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(proxyExportFlag, data, 0644); err != nil {
		return fmt.Errorf("failed to write recordings: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recordings written to %s\n", proxyExportFlag)
	return nil
}
