// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns raw citations into match results. Each citation is
// parsed into a query, looked up at every configured provider in priority
// order (through the identifier cache), scored, and either resolved to its
// best candidate or reported unresolved with a reason.
package resolve

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pdiddy/bibtools/internal/cache"
	"github.com/pdiddy/bibtools/internal/citation"
	"github.com/pdiddy/bibtools/internal/match"
	"github.com/pdiddy/bibtools/internal/observability"
	"github.com/pdiddy/bibtools/internal/provider"
	"github.com/pdiddy/bibtools/pkg/types"
)

// progressEvery controls how often batch progress is printed.
const progressEvery = 10

// Resolver resolves citations against a set of providers. It is safe for
// concurrent use; identical in-flight provider queries are issued once.
type Resolver struct {
	querier  provider.Querier
	scorer   *match.Scorer
	cfg      types.ResolveConfig
	cache    *cache.Cache
	logger   zerolog.Logger
	metrics  *observability.Metrics
	progress io.Writer

	flight singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache reads and writes provider answers through c.
func WithCache(c *cache.Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithLogger sets the logger for state transitions.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMetrics records citation outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithProgress prints batch progress lines to w.
func WithProgress(w io.Writer) Option {
	return func(r *Resolver) { r.progress = w }
}

// New returns a Resolver querying cfg.Providers through q. A nil scorer
// uses the default scoring policy.
func New(q provider.Querier, scorer *match.Scorer, cfg types.ResolveConfig, opts ...Option) (*Resolver, error) {
	if len(cfg.Providers) == 0 {
		return nil, types.ErrNoProviders
	}
	if q == nil {
		return nil, fmt.Errorf("%w: nil provider querier", types.ErrInvalidConfig)
	}
	if scorer == nil {
		scorer = match.DefaultScorer()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	r := &Resolver{
		querier: q,
		scorer:  scorer,
		cfg:     cfg,
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// candidate is a scored provider record with its tie-break keys.
type candidate struct {
	record   types.CandidateRecord
	result   match.Result
	priority int
	native   int
}

// Resolve resolves one citation. Provider failures never fail the call;
// they degrade the result to unresolved. The only error is ctx's, when the
// resolution was interrupted.
func (r *Resolver) Resolve(ctx context.Context, c types.Citation) (types.MatchResult, error) {
	log := observability.WithCitation(r.logger, c.Source, c.Position)

	parsed := citation.Parse(c.Text)
	q := BuildQuery(parsed)
	res := types.MatchResult{Citation: c, Query: q}
	log.Debug().Str("state", "pending").Str("query", q.CacheKey()).Msg("citation parsed")

	if q.IsEmpty() {
		return r.finish(log, r.unresolved(res, types.ReasonLowConfidence)), nil
	}

	var (
		candidates []candidate
		queried    int
		failed     int
	)
	for i, p := range r.cfg.Providers {
		records, err := r.fetch(ctx, p, q)
		queried++
		if err != nil {
			if ctx.Err() != nil {
				return types.MatchResult{}, ctx.Err()
			}
			failed++
			res.Errors = append(res.Errors, err.Error())
			log.Debug().Str("provider", p).Err(err).Msg("provider query failed")
			continue
		}

		high := false
		for j, rec := range records {
			m := r.scorer.Score(parsed, rec)
			candidates = append(candidates, candidate{record: rec, result: m, priority: i, native: j})
			if m.Confidence >= r.cfg.HighConfidenceThreshold {
				high = true
			}
		}
		log.Debug().Str("state", "queried").Str("provider", p).Int("candidates", len(records)).Msg("provider answered")
		if high {
			log.Debug().Str("provider", p).Msg("high confidence candidate, skipping remaining providers")
			break
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.result.Confidence != b.result.Confidence {
			return a.result.Confidence > b.result.Confidence
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		return a.native < b.native
	})
	log.Debug().Str("state", "scored").Int("candidates", len(candidates)).Msg("candidates scored")

	if len(candidates) > 0 && candidates[0].result.Confidence >= r.cfg.AcceptThreshold {
		best := candidates[0]
		rec := best.record
		res.Candidate = &rec
		res.Confidence = best.result.Confidence
		res.Fields = best.result.Fields
		res.Status = types.StatusResolved
		return r.finish(log, res), nil
	}

	reason := types.ReasonLowConfidence
	if failed == queried {
		reason = types.ReasonQueriesExhausted
	}
	return r.finish(log, r.unresolved(res, reason)), nil
}

func (r *Resolver) unresolved(res types.MatchResult, reason string) types.MatchResult {
	res.Status = types.StatusUnresolved
	res.Reason = reason
	res.Candidate = nil
	res.Confidence = 0
	res.Fields = nil
	return res
}

func (r *Resolver) finish(log zerolog.Logger, res types.MatchResult) types.MatchResult {
	r.metrics.RecordCitation(string(res.Status), res.Reason)
	ev := log.Debug().Str("state", string(res.Status)).Float64("confidence", res.Confidence)
	if res.Reason != "" {
		ev = ev.Str("reason", res.Reason)
	}
	ev.Msg("citation finished")
	return res
}

// fetch returns provider's answer for q, from the cache when present. One
// provider call is made per distinct in-flight query; the caller that runs
// it writes the cache before the others are released.
func (r *Resolver) fetch(ctx context.Context, p string, q types.Query) ([]types.CandidateRecord, error) {
	key := q.ProviderKey(p)
	for {
		ch := r.flight.DoChan(key, func() (any, error) {
			if r.cache != nil {
				if records, ok := r.cache.Get(ctx, p, q); ok {
					return records, nil
				}
			}
			records, err := r.querier.Query(ctx, p, q)
			if err != nil {
				return nil, err
			}
			if r.cache != nil {
				r.cache.Put(ctx, p, q, records)
			}
			return records, nil
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// The call ran under another caller's context. If that one was
				// cancelled and ours is still live, run it again.
				if isCancellation(res.Err) && ctx.Err() == nil {
					continue
				}
				return nil, res.Err
			}
			records, _ := res.Val.([]types.CandidateRecord)
			if res.Shared {
				records = clone(records)
			}
			return records, nil
		}
	}
}

// isCancellation matches the bare context errors the provider client
// returns when its caller's context ends. Wrapped deadline errors from a
// single attempt are provider failures, not cancellations.
func isCancellation(err error) bool {
	return err == context.Canceled || err == context.DeadlineExceeded
}

func clone(records []types.CandidateRecord) []types.CandidateRecord {
	if records == nil {
		return nil
	}
	out := make([]types.CandidateRecord, len(records))
	for i, rec := range records {
		rec.Authors = append([]string(nil), rec.Authors...)
		out[i] = rec
	}
	return out
}

// BatchResult is the outcome of resolving a list of citations.
type BatchResult struct {
	// RunID identifies the batch in logs and metrics output.
	RunID string

	// Results holds one result per completed citation, in input order.
	Results []types.MatchResult

	Resolved   int
	Unresolved int

	// Cancelled counts citations dropped because the batch was interrupted.
	Cancelled int
}

// ResolveBatch resolves citations with at most cfg.Concurrency in flight.
// When ctx is cancelled, the citations already finished are returned along
// with ctx.Err(); interrupted ones are dropped rather than reported
// unresolved.
func (r *Resolver) ResolveBatch(ctx context.Context, citations []types.Citation) (BatchResult, error) {
	out := BatchResult{RunID: uuid.NewString()}
	log := r.logger.With().Str("run_id", out.RunID).Logger()
	log.Info().Int("citations", len(citations)).Int("concurrency", r.cfg.Concurrency).Msg("resolving batch")

	results := make([]types.MatchResult, len(citations))
	done := make([]bool, len(citations))

	var (
		mu       sync.Mutex
		finished int
	)
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, c := range citations {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := r.Resolve(ctx, c)
			if err != nil {
				return nil
			}
			results[i] = res
			done[i] = true

			mu.Lock()
			finished++
			n := finished
			mu.Unlock()
			if r.progress != nil && (n%progressEvery == 0 || n == len(citations)) {
				fmt.Fprintf(r.progress, "[%d of %d]\n", n, len(citations))
			}
			return nil
		})
	}
	g.Wait()

	for i, ok := range done {
		if !ok {
			out.Cancelled++
			continue
		}
		out.Results = append(out.Results, results[i])
		if results[i].Resolved() {
			out.Resolved++
		} else {
			out.Unresolved++
		}
	}

	log.Info().
		Int("resolved", out.Resolved).
		Int("unresolved", out.Unresolved).
		Int("cancelled", out.Cancelled).
		Msg("batch finished")
	return out, ctx.Err()
}
