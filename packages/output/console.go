package output

import (
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/photorest/packages/rest"
	"github.com/fatih/color"
)

// truncate shortens long values such as error bodies
func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(r *Result) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	if f.verbose {
		symbol := green("✓")
		if r.Failed() {
			symbol = red("✗")
		}
		fmt.Fprintf(f.writer, "%s %s %s %s\n", symbol, bold(r.Method), r.Path, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))
		if len(r.Params) > 0 {
			fmt.Fprintf(f.writer, "  %s\n", rest.EncodeParametersQuoted(r.Params, ", ", false))
		}
	}

	if r.Err != nil {
		f.FormatError(r.Err)
		return
	}

	switch {
	case r.Response != nil:
		fmt.Fprintln(f.writer, r.Response.Pretty())
		if r.Response.IsFail() {
			fmt.Fprintf(f.writer, "%s %s\n", red("API error:"), fmt.Sprintf("%d %s", r.Response.ErrorCode(), r.Response.ErrorMessage()))
		}
	case r.Data != nil:
		for _, key := range sortedKeys(r.Data) {
			fmt.Fprintf(f.writer, "%s = %s\n", cyan(key), r.Data[key])
		}
	default:
		fmt.Fprintln(f.writer, r.Text)
	}

	for _, a := range r.Assertions {
		if a.Passed {
			fmt.Fprintf(f.writer, "  %s %s\n", green("✓"), a.Assertion)
			continue
		}
		fmt.Fprintf(f.writer, "  %s %s\n", red("✗"), a.Assertion)
		if a.Message != "" {
			fmt.Fprintf(f.writer, "      %s\n", truncate(a.Message, 200))
		}
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	if se, ok := rest.IsStatusError(err); ok {
		fmt.Fprintf(f.writer, "%s %d %s\n", red("Error: HTTP"), se.Code, se.Message)
		if se.Body != "" {
			fmt.Fprintf(f.writer, "  %s\n", truncate(se.Body, 500))
		}
		return
	}
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("photorest"), version)
}
