package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Reporter prints the run header and final summary
type Reporter struct {
	writer  io.Writer
	noColor bool
	json    bool

	green *color.Color
	red   *color.Color
	cyan  *color.Color
	bold  *color.Color
}

// ReporterOption configures the reporter
type ReporterOption func(*Reporter)

func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

// WithJSON prints the result as a single JSON document and skips the header
func WithJSON(enabled bool) ReporterOption {
	return func(r *Reporter) {
		r.json = enabled
	}
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.green = color.New(color.FgGreen)
	r.red = color.New(color.FgRed)
	r.cyan = color.New(color.FgCyan)
	r.bold = color.New(color.Bold)
	if r.noColor {
		for _, c := range []*color.Color{r.green, r.red, r.cyan, r.bold} {
			c.DisableColor()
		}
	}
	return r
}

func (r *Reporter) Header(target Target, config *Config) {
	if r.json {
		return
	}
	r.cyan.Fprintf(r.writer, "Benchmarking: %s\n", target)

	var details []string
	if config.Rate > 0 {
		details = append(details, fmt.Sprintf("Target: %s req/s", formatFloat(config.Rate)))
	} else {
		details = append(details, "Target: unlimited")
	}
	if config.Duration > 0 {
		details = append(details, fmt.Sprintf("Duration: %s", config.Duration))
	}
	if config.Requests > 0 {
		details = append(details, fmt.Sprintf("Requests: %d", config.Requests))
	}
	details = append(details, fmt.Sprintf("Concurrency: %d", config.Concurrency))
	fmt.Fprintf(r.writer, "%s\n\n", strings.Join(details, " | "))
}

func (r *Reporter) Summary(result *Result) {
	if r.json {
		encoder := json.NewEncoder(r.writer)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(result)
		return
	}

	s := result.Summary
	r.bold.Fprintln(r.writer, "SUMMARY")
	fmt.Fprintln(r.writer, strings.Repeat("─", 40))
	fmt.Fprintf(r.writer, "Duration:   %s\n", formatDuration(s.Duration))
	fmt.Fprintf(r.writer, "Total:      %s requests (%.1f req/s)\n", formatNumber(s.TotalRequests), s.RPS)
	fmt.Fprintf(r.writer, "Success:    %s\n", r.green.Sprint(formatNumber(s.SuccessCount)))

	failed := formatNumber(s.ErrorCount)
	if s.ErrorCount > 0 {
		failed = r.red.Sprint(failed)
	}
	fmt.Fprintf(r.writer, "Failed:     %s (%.1f%%)\n", failed, s.ErrorRate*100)
	for _, kind := range s.ErrorKinds() {
		fmt.Fprintf(r.writer, "  %-10s %s\n", kind+":", formatNumber(s.ErrorsByKind[kind]))
	}

	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "LATENCY (ms)")
	fmt.Fprintf(r.writer, "  p50: %-6s | p90: %-6s | p95: %-6s | p99: %s\n",
		formatLatencyMs(s.P50), formatLatencyMs(s.P90), formatLatencyMs(s.P95), formatLatencyMs(s.P99))
	fmt.Fprintf(r.writer, "  min: %-6s | max: %-6s | mean: %-5s | stddev: %s\n",
		formatLatencyMs(s.Min), formatLatencyMs(s.Max), formatLatencyMs(s.Mean), formatLatencyMs(s.StdDev))

	if len(result.Thresholds) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "THRESHOLDS")
		for _, tr := range result.Thresholds {
			mark := r.green.Sprint("✓")
			if !tr.Passed {
				mark = r.red.Sprint("✗")
			}
			fmt.Fprintf(r.writer, "  %s %s %s    (actual: %s)\n", mark, tr.Name, tr.Expected, tr.Actual)
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm %02ds", minutes, seconds)
}

func formatLatencyMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000
	switch {
	case ms < 1:
		return fmt.Sprintf("%.2f", ms)
	case ms < 10:
		return fmt.Sprintf("%.1f", ms)
	default:
		return fmt.Sprintf("%.0f", ms)
	}
}

// formatNumber formats a number with thousands separators
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 1000 {
		return s
	}
	start := len(s) % 3
	if start == 0 {
		start = 3
	}
	out := []byte(s[:start])
	for i := start; i < len(s); i += 3 {
		out = append(out, ',')
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
