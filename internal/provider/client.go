// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider wraps the provider query capability with per-provider
// rate limiting, a per-provider concurrency cap, per-attempt timeouts, and
// retry with exponential backoff.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/bibtools/internal/observability"
	"github.com/pdiddy/bibtools/pkg/types"
)

// Querier asks one named provider for candidate records. Implementations
// report failures by wrapping a provider sentinel from pkg/types.
type Querier interface {
	Query(ctx context.Context, provider string, q types.Query) ([]types.CandidateRecord, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, provider string, q types.Query) ([]types.CandidateRecord, error)

// Query implements Querier.
func (f QuerierFunc) Query(ctx context.Context, provider string, q types.Query) ([]types.CandidateRecord, error) {
	return f(ctx, provider, q)
}

// Outcome labels for metrics.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeRejected  = "rejected"
	OutcomeExhausted = "exhausted"
	OutcomeCancelled = "cancelled"
)

// ExhaustedError reports that every allowed attempt failed with a
// retryable error.
type ExhaustedError struct {
	Provider string
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %v after %d attempts: %v", e.Provider, types.ErrQueriesExhausted, e.Attempts, e.Last)
}

// Unwrap exposes both ErrQueriesExhausted and the last failure.
func (e *ExhaustedError) Unwrap() []error {
	return []error{types.ErrQueriesExhausted, e.Last}
}

// sleep waits for d or until ctx is done. Tests replace it.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// jitter returns the extra delay added to a backoff. Tests replace it.
var jitter = defaultJitter

// defaultJitter returns a random duration in [0, d/2).
func defaultJitter(d time.Duration) time.Duration {
	if d < 2 {
		return 0
	}
	return rand.N(d / 2)
}

// lane is the shared per-provider state: a token bucket and a semaphore.
type lane struct {
	limiter *rate.Limiter
	slots   chan struct{}
}

// Client issues queries through a Querier under a retry and rate policy.
// It is safe for concurrent use.
type Client struct {
	q       Querier
	retry   types.RetryConfig
	rate    types.RateConfig
	logger  zerolog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	lanes map[string]*lane
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for retry diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records attempts, retries and outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient wraps q with the given retry and rate policy.
func NewClient(q Querier, retry types.RetryConfig, rl types.RateConfig, opts ...Option) *Client {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	c := &Client{
		q:      q,
		retry:  retry,
		rate:   rl,
		logger: zerolog.Nop(),
		lanes:  make(map[string]*lane),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) lane(provider string) *lane {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.lanes[provider]; ok {
		return l
	}
	l := &lane{}
	if c.rate.RatePerSecond > 0 {
		burst := c.rate.Burst
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(c.rate.RatePerSecond), burst)
	}
	if c.rate.ProviderConcurrency > 0 {
		l.slots = make(chan struct{}, c.rate.ProviderConcurrency)
	}
	c.lanes[provider] = l
	return l
}

// Query asks provider for candidates matching q. A NotFound answer is an
// empty result. Rejected queries fail at once; rate-limited and unavailable
// ones are retried until MaxAttempts, after which an *ExhaustedError is
// returned. Cancelling ctx aborts with ctx.Err().
func (c *Client) Query(ctx context.Context, provider string, q types.Query) ([]types.CandidateRecord, error) {
	log := c.logger.With().Str("provider", provider).Str("query", q.CacheKey()).Logger()
	l := c.lane(provider)

	var last error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			d := c.backoff(attempt-1, last)
			c.metrics.RecordRetry(provider)
			log.Debug().Int("attempt", attempt).Dur("delay", d).Err(last).Msg("retrying provider query")
			if err := sleep(ctx, d); err != nil {
				c.metrics.RecordOutcome(provider, OutcomeCancelled)
				return nil, err
			}
		}

		records, err := c.attempt(ctx, l, provider, q)
		switch {
		case err == nil:
			c.metrics.RecordOutcome(provider, OutcomeOK)
			return tag(records, provider), nil
		case ctx.Err() != nil:
			c.metrics.RecordOutcome(provider, OutcomeCancelled)
			return nil, ctx.Err()
		case errors.Is(err, types.ErrNotFound):
			c.metrics.RecordOutcome(provider, OutcomeNotFound)
			return nil, nil
		case !types.Retryable(err):
			c.metrics.RecordOutcome(provider, OutcomeRejected)
			return nil, err
		}
		last = err
	}

	c.metrics.RecordOutcome(provider, OutcomeExhausted)
	log.Warn().Int("attempts", c.retry.MaxAttempts).Err(last).Msg("provider query exhausted")
	return nil, &ExhaustedError{Provider: provider, Attempts: c.retry.MaxAttempts, Last: last}
}

// attempt runs one rate-limited, slot-bounded call under the per-attempt
// timeout. A timeout counts as the provider being unavailable.
func (c *Client) attempt(ctx context.Context, l *lane, provider string, q types.Query) ([]types.CandidateRecord, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %w", types.ErrProviderUnavailable, err)
		}
	}
	if l.slots != nil {
		select {
		case l.slots <- struct{}{}:
			defer func() { <-l.slots }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	actx := ctx
	if c.retry.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, c.retry.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	records, err := c.q.Query(actx, provider, q)
	c.metrics.RecordAttempt(provider, time.Since(start))

	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return nil, &types.ProviderError{
			Provider: provider,
			Err:      fmt.Errorf("%w: attempt timed out after %v", types.ErrProviderUnavailable, c.retry.AttemptTimeout),
		}
	}
	return records, err
}

// backoff returns the delay before retry n (1-based): base·2^(n-1) capped at
// BackoffMax, plus jitter. A Retry-After hint raises the delay, up to
// BackoffMax.
func (c *Client) backoff(n int, last error) time.Duration {
	maxDelay := c.retry.BackoffMax
	d := c.retry.BackoffBase
	for i := 1; i < n; i++ {
		d *= 2
		if maxDelay > 0 && d >= maxDelay {
			break
		}
	}
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	d += jitter(d)

	var pe *types.ProviderError
	if errors.As(last, &pe) && pe.RetryAfter > d {
		d = pe.RetryAfter
		if maxDelay > 0 && d > maxDelay {
			d = maxDelay
		}
	}
	return d
}

// tag fills in the provider name on records the adapter left unlabeled.
func tag(records []types.CandidateRecord, provider string) []types.CandidateRecord {
	for i := range records {
		if records[i].Provider == "" {
			records[i].Provider = provider
		}
	}
	return records
}
