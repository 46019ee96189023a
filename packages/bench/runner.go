package bench

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/abdul-hamid-achik/photorest/packages/output"
	"github.com/abdul-hamid-achik/photorest/packages/rest"
)

// Caller is the part of rest.Transport a benchmark drives
type Caller interface {
	Get(ctx context.Context, path string, params []rest.Parameter) (*rest.Response, error)
	Post(ctx context.Context, path string, params []rest.Parameter) (*rest.Response, error)
}

// Target is the call repeated by a run
type Target struct {
	Method string // GET or POST
	Path   string
	Params []rest.Parameter
}

func (t Target) String() string {
	return fmt.Sprintf("%s %s %s", t.Method, t.Path, rest.EncodeParameters(t.Params))
}

// Runner executes benchmark runs
type Runner struct {
	config    *Config
	caller    Caller
	target    Target
	scheduler *Scheduler
	metrics   *Metrics
	reporter  *Reporter
	logger    zerolog.Logger
}

// RunnerOption configures the runner
type RunnerOption func(*Runner)

func WithReporter(reporter *Reporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

func WithLogger(l zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

func NewRunner(config *Config, caller Caller, target Target, opts ...RunnerOption) *Runner {
	r := &Runner{
		config:    config,
		caller:    caller,
		target:    target,
		scheduler: NewScheduler(config),
		metrics:   NewMetrics(),
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reporter == nil {
		r.reporter = NewReporter()
	}
	return r
}

// Result holds the final result of a run
type Result struct {
	Target     string            `json:"target"`
	Summary    *Summary          `json:"summary"`
	Thresholds []ThresholdResult `json:"thresholds,omitempty"`
	Passed     bool              `json:"passed"`
}

// Run executes the benchmark. Calls stop being issued once Duration has
// elapsed or Requests calls were made; in-flight calls are allowed to
// finish. Cancelling ctx aborts everything.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if r.target.Method != http.MethodGet && r.target.Method != http.MethodPost {
		return nil, fmt.Errorf("unsupported method %q", r.target.Method)
	}

	r.reporter.Header(r.target, r.config)

	for i := 0; i < r.config.Warmup; i++ {
		if _, err := r.call(ctx); err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	issueCtx := ctx
	if r.config.Duration > 0 {
		var cancel context.CancelFunc
		issueCtx, cancel = context.WithTimeout(ctx, r.config.Duration)
		defer cancel()
	}

	r.metrics.Start()
	r.issue(ctx, issueCtx)
	r.metrics.Stop()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := r.metrics.GetSummary()
	result := &Result{Target: r.target.String(), Summary: summary, Passed: true}
	if r.config.Thresholds.HasThresholds() {
		result.Thresholds = EvaluateThresholds(summary, r.config.Thresholds)
		for _, tr := range result.Thresholds {
			if !tr.Passed {
				result.Passed = false
			}
		}
	}

	r.reporter.Summary(result)
	return result, nil
}

// issue sends calls until issueCtx is done or the request budget is spent
func (r *Runner) issue(ctx, issueCtx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for sent := int64(0); r.config.Requests == 0 || sent < r.config.Requests; sent++ {
		if err := r.scheduler.Wait(issueCtx); err != nil {
			return
		}
		if err := r.scheduler.Acquire(issueCtx); err != nil {
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer r.scheduler.Release()

			start := time.Now()
			kind, err := r.call(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				r.logger.Debug().Err(err).Str("kind", kind).Msg("call failed")
			}
			r.metrics.Record(time.Since(start), kind)
		}()
	}
}

// call makes one call and classifies its outcome. API-level failures
// count as errors of kind "api".
func (r *Runner) call(ctx context.Context) (string, error) {
	var (
		resp *rest.Response
		err  error
	)
	if r.target.Method == http.MethodPost {
		resp, err = r.caller.Post(ctx, r.target.Path, r.target.Params)
	} else {
		resp, err = r.caller.Get(ctx, r.target.Path, r.target.Params)
	}
	if err == nil && resp != nil {
		err = resp.Err()
	}
	return output.ErrorKind(err), err
}
