package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/photorest/packages/assertions"
	"github.com/abdul-hamid-achik/photorest/packages/output"
	"github.com/abdul-hamid-achik/photorest/packages/rest"
)

var (
	rawFlag       bool
	mapGetFlag    bool
	separatorFlag string
	quoteFlag     bool
	expectFlags   []string
	schemaFlag    string
)

var getCmd = &cobra.Command{
	Use:   "get <api-method> [name=value...]",
	Short: "Call an API method over GET",
	Long: `Call an API method over GET. The method is sent as the "method"
parameter; nojsoncallback=1 and format=json are always appended and the
JSON envelope is printed.

Examples:
  photorest get flickr.test.echo foo=bar
  photorest get flickr.photos.search tags=sunset per_page=5 -o json
  photorest get flickr.test.echo --raw
  photorest get flickr.photos.search tags=sunset --expect "stat == ok" --expect "photos.total > 0"
  photorest get flickr.photos.getInfo photo_id=42 --schema ./photo.schema.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: getCommand,
}

var postCmd = &cobra.Command{
	Use:   "post <api-method> [name=value...]",
	Short: "Call an API method over POST",
	Long: `Call an API method over POST with a form-encoded body and print the
URL-decoded response.

Examples:
  photorest post flickr.test.echo title="a b"
  photorest post flickr.photos.addTags photo_id=42 tags=sunset --proxy localhost:8888
  photorest post flickr.test.echo a=1 --expect "body contains a=1"`,
	Args: cobra.MinimumNArgs(1),
	RunE: postCommand,
}

var mapCmd = &cobra.Command{
	Use:   "map <api-method> [name=value...]",
	Short: "Call an API method and print the response as key/value pairs",
	Long: `Call an API method and parse the decoded body as k=v&k2=v2 pairs.
POST is used unless --get is set.

Examples:
  photorest map flickr.test.echo a=1 b=2
  photorest map flickr.test.echo a=1 --get`,
	Args: cobra.MinimumNArgs(1),
	RunE: mapCommand,
}

var encodeCmd = &cobra.Command{
	Use:   "encode [name=value...]",
	Short: "Print parameters form-encoded without sending anything",
	Long: `Print parameters the way a request would carry them.

Examples:
  photorest encode method=flickr.test.echo title="a b"
  photorest encode oauth_token=abc oauth_nonce=42 --separator ", " --quote`,
	RunE: encodeCommand,
}

func init() {
	getCmd.Flags().BoolVar(&rawFlag, "raw", false, "Send only the given parameters and print the body as text")
	for _, c := range []*cobra.Command{getCmd, postCmd} {
		c.Flags().StringArrayVar(&expectFlags, "expect", nil, `Check the response, e.g. "stat == ok" (repeatable)`)
		c.Flags().StringVar(&schemaFlag, "schema", "", "Validate the response body against a JSON schema file")
	}
	mapCmd.Flags().BoolVar(&mapGetFlag, "get", false, "Use GET instead of POST")
	encodeCmd.Flags().StringVar(&separatorFlag, "separator", "&", "Separator between pairs")
	encodeCmd.Flags().BoolVar(&quoteFlag, "quote", false, "Wrap every value in double quotes")
}

// parseParams turns name=value arguments into parameters, keeping order
func parseParams(args []string) ([]rest.Parameter, error) {
	params := make([]rest.Parameter, 0, len(args))
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", arg)
		}
		params = append(params, rest.NewParameter(name, value))
	}
	return params, nil
}

// methodParams prepends the API method to the remaining name=value args
func methodParams(args []string) ([]rest.Parameter, error) {
	params, err := parseParams(args[1:])
	if err != nil {
		return nil, usageError(err)
	}
	return append([]rest.Parameter{rest.NewParameter("method", args[0])}, params...), nil
}

func getCommand(cmd *cobra.Command, args []string) error {
	params, err := methodParams(args)
	if err != nil {
		return err
	}
	return runCall(cmd, "GET", params, func(ctx context.Context, tr *rest.Transport, r *output.Result) {
		if rawFlag {
			r.Text, r.Err = tr.GetLine(ctx, tr.Path(), params)
			return
		}
		r.Response, r.Err = tr.Get(ctx, tr.Path(), params)
	})
}

func postCommand(cmd *cobra.Command, args []string) error {
	params, err := methodParams(args)
	if err != nil {
		return err
	}
	return runCall(cmd, "POST", params, func(ctx context.Context, tr *rest.Transport, r *output.Result) {
		r.Response, r.Err = tr.Post(ctx, tr.Path(), params)
	})
}

func mapCommand(cmd *cobra.Command, args []string) error {
	params, err := methodParams(args)
	if err != nil {
		return err
	}
	method := "POST"
	if mapGetFlag {
		method = "GET"
	}
	return runCall(cmd, method, params, func(ctx context.Context, tr *rest.Transport, r *output.Result) {
		r.Data, r.Err = tr.GetMapData(ctx, mapGetFlag, tr.Path(), params)
	})
}

func encodeCommand(cmd *cobra.Command, args []string) error {
	params, err := parseParams(args)
	if err != nil {
		return usageError(err)
	}
	if separatorFlag == "&" && !quoteFlag {
		fmt.Fprintln(cmd.OutOrStdout(), rest.EncodeParameters(params))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), rest.EncodeParametersQuoted(params, separatorFlag, quoteFlag))
	return nil
}

// runCall builds a transport from the loaded config, runs call with a
// context cancelled on SIGINT/SIGTERM and prints the result.
func runCall(cmd *cobra.Command, method string, params []rest.Parameter, call func(context.Context, *rest.Transport, *output.Result)) error {
	formatter, err := output.NewFormatter(outputFlag, cmd.OutOrStdout(), cfg.GetVerbose(), cfg.GetNoColor())
	if err != nil {
		return usageError(err)
	}

	checks, err := expectations()
	if err != nil {
		return usageError(err)
	}

	tr, err := cfg.NewTransport(log.Logger)
	if err != nil {
		return configError(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := &output.Result{Method: method, Path: tr.Path(), Params: params}
	start := time.Now()
	call(ctx, tr, result)
	result.Duration = time.Since(start)

	if result.Err == nil && len(checks) > 0 {
		resp := result.Response
		if resp == nil {
			resp = rest.NewResponse(result.Text)
		}
		result.Assertions = assertions.EvaluateAll(resp, checks)
	}

	formatter.FormatResult(result)

	switch {
	case result.Err != nil:
		return &exitError{code: exitCode(result.Err), err: result.Err, reported: true}
	case result.Response != nil && result.Response.IsFail():
		return &exitError{code: ExitAPIFailure, err: result.Response.Err(), reported: true}
	case result.AssertionsFailed():
		return &exitError{code: ExitAssertionFailure, err: errors.New("response did not meet expectations"), reported: true}
	}
	return nil
}

// expectations parses --expect and turns --schema into a schema check on
// the whole body.
func expectations() ([]*assertions.Assertion, error) {
	exprs := expectFlags
	if schemaFlag != "" {
		exprs = append(exprs[:len(exprs):len(exprs)], "body schema "+schemaFlag)
	}
	return assertions.ParseAll(exprs)
}
