package bench

import (
	"context"

	"golang.org/x/time/rate"
)

// Scheduler paces calls with a token bucket and caps in-flight calls with
// a semaphore.
type Scheduler struct {
	limiter *rate.Limiter
	sem     chan struct{}
}

func NewScheduler(config *Config) *Scheduler {
	s := &Scheduler{}
	if config.Rate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(config.Rate), 1)
	}
	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	s.sem = make(chan struct{}, concurrency)
	return s
}

// Wait blocks until the rate limiter allows the next call
func (s *Scheduler) Wait(ctx context.Context) error {
	if s.limiter != nil {
		return s.limiter.Wait(ctx)
	}
	return ctx.Err()
}

// Acquire acquires a slot from the concurrency semaphore
func (s *Scheduler) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a slot back to the semaphore
func (s *Scheduler) Release() {
	<-s.sem
}
