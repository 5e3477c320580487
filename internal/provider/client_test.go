// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bibtools/internal/observability"
	"github.com/pdiddy/bibtools/pkg/types"
)

func init() {
	// Deterministic backoff so delays can be asserted.
	jitter = func(time.Duration) time.Duration { return 0 }
}

// --- test helpers ---

var testQuery = types.Query{Kind: types.QueryDOI, Key: "10.1/x", Text: "10.1/x"}

// scripted returns the scripted errors in order, then records.
type scripted struct {
	calls   atomic.Int32
	errs    []error
	records []types.CandidateRecord
}

func (s *scripted) Query(context.Context, string, types.Query) ([]types.CandidateRecord, error) {
	n := int(s.calls.Add(1))
	if n <= len(s.errs) {
		return nil, s.errs[n-1]
	}
	return s.records, nil
}

func fastRetry(attempts int) types.RetryConfig {
	return types.RetryConfig{MaxAttempts: attempts, BackoffBase: time.Millisecond, BackoffMax: 4 * time.Millisecond}
}

func rateLimited() error {
	return &types.ProviderError{Provider: "crossref", StatusCode: 429, Err: types.ErrRateLimited}
}

// --- tests ---

func TestQuerySuccessTagsProvider(t *testing.T) {
	q := &scripted{records: []types.CandidateRecord{{Title: "A"}, {Title: "B", Provider: "mirror"}}}
	c := NewClient(q, fastRetry(3), types.RateConfig{})

	got, err := c.Query(context.Background(), "crossref", testQuery)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "crossref", got[0].Provider)
	assert.Equal(t, "mirror", got[1].Provider)
	assert.Equal(t, "A", got[0].Title, "native order kept")
}

func TestQueryRetriesThenSucceeds(t *testing.T) {
	q := &scripted{
		errs:    []error{rateLimited(), &types.ProviderError{Provider: "crossref", StatusCode: 503, Err: types.ErrProviderUnavailable}},
		records: []types.CandidateRecord{{Title: "A"}},
	}
	m := observability.NewMetrics()
	c := NewClient(q, fastRetry(3), types.RateConfig{}, WithMetrics(m))

	got, err := c.Query(context.Background(), "crossref", testQuery)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(3), q.calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderRetries.WithLabelValues("crossref")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ProviderAttempts.WithLabelValues("crossref")))
}

func TestQueryExhaustsAfterCeiling(t *testing.T) {
	q := &scripted{errs: []error{rateLimited(), rateLimited(), rateLimited()}}
	m := observability.NewMetrics()
	c := NewClient(q, fastRetry(3), types.RateConfig{}, WithMetrics(m))

	_, err := c.Query(context.Background(), "crossref", testQuery)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrQueriesExhausted)
	assert.ErrorIs(t, err, types.ErrRateLimited)

	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, 3, ex.Attempts)
	assert.Equal(t, "crossref", ex.Provider)
	assert.Equal(t, int32(3), q.calls.Load(), "never exceeds the ceiling")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderOutcomes.WithLabelValues("crossref", OutcomeExhausted)))
}

func TestQueryRejectedIsNotRetried(t *testing.T) {
	q := &scripted{errs: []error{&types.ProviderError{Provider: "hal", StatusCode: 400, Err: types.ErrProviderRejected}}}
	c := NewClient(q, fastRetry(5), types.RateConfig{})

	_, err := c.Query(context.Background(), "hal", testQuery)
	assert.ErrorIs(t, err, types.ErrProviderRejected)
	assert.NotErrorIs(t, err, types.ErrQueriesExhausted)
	assert.Equal(t, int32(1), q.calls.Load())
}

func TestQueryNotFoundIsEmpty(t *testing.T) {
	q := &scripted{errs: []error{&types.ProviderError{Provider: "hal", StatusCode: 404, Err: types.ErrNotFound}}}
	c := NewClient(q, fastRetry(3), types.RateConfig{})

	got, err := c.Query(context.Background(), "hal", testQuery)
	assert.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(1), q.calls.Load())
}

func TestQueryCancelledDuringBackoff(t *testing.T) {
	q := &scripted{errs: []error{rateLimited(), rateLimited(), rateLimited()}}
	retry := types.RetryConfig{MaxAttempts: 3, BackoffBase: time.Hour, BackoffMax: time.Hour}
	c := NewClient(q, retry, types.RateConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := c.Query(ctx, "crossref", testQuery)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), q.calls.Load())
}

func TestQueryAttemptTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	q := QuerierFunc(func(ctx context.Context, _ string, _ types.Query) ([]types.CandidateRecord, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []types.CandidateRecord{{Title: "late"}}, nil
	})
	retry := fastRetry(2)
	retry.AttemptTimeout = 10 * time.Millisecond
	c := NewClient(q, retry, types.RateConfig{})

	got, err := c.Query(context.Background(), "openalex", testQuery)
	require.NoError(t, err)
	assert.Equal(t, "late", got[0].Title)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueryAttemptTimeoutExhausts(t *testing.T) {
	q := QuerierFunc(func(ctx context.Context, _ string, _ types.Query) ([]types.CandidateRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	retry := fastRetry(2)
	retry.AttemptTimeout = 5 * time.Millisecond
	c := NewClient(q, retry, types.RateConfig{})

	_, err := c.Query(context.Background(), "openalex", testQuery)
	assert.ErrorIs(t, err, types.ErrQueriesExhausted)
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)
}

func TestBackoff(t *testing.T) {
	c := NewClient(nil, types.RetryConfig{MaxAttempts: 6, BackoffBase: time.Second, BackoffMax: 5 * time.Second}, types.RateConfig{})

	assert.Equal(t, 1*time.Second, c.backoff(1, nil))
	assert.Equal(t, 2*time.Second, c.backoff(2, nil))
	assert.Equal(t, 4*time.Second, c.backoff(3, nil))
	assert.Equal(t, 5*time.Second, c.backoff(4, nil), "capped")
	assert.Equal(t, 5*time.Second, c.backoff(40, nil), "no overflow")

	hint := &types.ProviderError{Err: types.ErrRateLimited, RetryAfter: 3 * time.Second}
	assert.Equal(t, 3*time.Second, c.backoff(1, hint), "Retry-After raises the delay")
	hint.RetryAfter = time.Minute
	assert.Equal(t, 5*time.Second, c.backoff(1, hint), "Retry-After is capped")
}

func TestDefaultJitterBounds(t *testing.T) {
	d := 100 * time.Millisecond
	for range 100 {
		got := defaultJitter(d)
		assert.GreaterOrEqual(t, got, time.Duration(0))
		assert.Less(t, got, d/2)
	}
	assert.Zero(t, defaultJitter(1))
}

func TestProviderConcurrencyCap(t *testing.T) {
	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	q := QuerierFunc(func(context.Context, string, types.Query) ([]types.CandidateRecord, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return nil, nil
	})
	c := NewClient(q, fastRetry(1), types.RateConfig{ProviderConcurrency: 2})

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Query(context.Background(), "crossref", testQuery)
		}()
	}
	// A different provider has its own lane.
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Query(context.Background(), "hal", testQuery)
	}()

	require.Eventually(t, func() bool { return inFlight.Load() == 3 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(3), peak.Load())
}

func TestRateLimiterSpacesRequests(t *testing.T) {
	q := &scripted{}
	c := NewClient(q, fastRetry(1), types.RateConfig{RatePerSecond: 50, Burst: 1})

	start := time.Now()
	for range 4 {
		_, err := c.Query(context.Background(), "crossref", testQuery)
		require.NoError(t, err)
	}
	// Burst 1 at 50/s: the 2nd..4th calls wait about 20ms each.
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}
