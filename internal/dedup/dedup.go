// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup merges match results that describe the same work into
// canonical records. Records sharing a normalized DOI or HAL ID always merge;
// identifier-less records merge on first-author surname, year, and title
// similarity. Field values are chosen by provider trust.
package dedup

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/pdiddy/bibtools/internal/normalize"
	"github.com/pdiddy/bibtools/internal/observability"
	"github.com/pdiddy/bibtools/pkg/types"
)

// ErrDuplicateIdentifier is returned by Verify when two records share an
// identifier.
var ErrDuplicateIdentifier = errors.New("canonical records share an identifier")

// metadataDiscount scales title similarity into a metadata merge confidence.
const metadataDiscount = 0.9

// mergedFields are the record fields chosen per group, in output order.
var mergedFields = []string{
	types.FieldTitle, types.FieldAuthors, types.FieldYear, types.FieldJournal,
	types.FieldDOI, types.FieldHALID, types.FieldAbstract, types.FieldORCID,
}

// Merger deduplicates records under a provider trust order.
type Merger struct {
	trust     map[string]int
	threshold float64
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// Option configures a Merger.
type Option func(*Merger)

// WithLogger sets the logger for merge diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Merger) { m.logger = l }
}

// WithMetrics counts canonical records by merge basis.
func WithMetrics(mt *observability.Metrics) Option {
	return func(m *Merger) { m.metrics = mt }
}

// NewMerger returns a Merger for cfg.
func NewMerger(cfg types.DedupConfig, opts ...Option) *Merger {
	m := &Merger{
		trust:     make(map[string]int, len(cfg.Trust)),
		threshold: cfg.SecondaryThreshold,
		logger:    zerolog.Nop(),
	}
	for i, p := range cfg.Trust {
		if _, ok := m.trust[p]; !ok {
			m.trust[p] = i
		}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// rank returns the trust rank of provider; unlisted providers rank last.
func (m *Merger) rank(provider string) int {
	if r, ok := m.trust[provider]; ok {
		return r
	}
	return len(m.trust)
}

// Merge turns match results into canonical records. Resolved results are
// grouped and merged; each unresolved result becomes its own placeholder.
// Records come out in order of their first citation.
func (m *Merger) Merge(results []types.MatchResult) []types.CanonicalRecord {
	records := make([]types.CanonicalRecord, 0, len(results))
	for _, res := range results {
		records = append(records, fromResult(res))
	}
	out := m.MergeRecords(records)
	for _, r := range out {
		if r.Unresolved {
			continue
		}
		m.metrics.RecordCanonical(string(r.MergeBasis))
	}
	m.logger.Debug().Int("results", len(results)).Int("records", len(out)).Msg("deduplicated")
	return out
}

// fromResult wraps one match result as a single-member record.
func fromResult(res types.MatchResult) types.CanonicalRecord {
	if !res.Resolved() {
		return types.CanonicalRecord{
			Citations:  []types.Citation{res.Citation},
			Unresolved: true,
			Reason:     res.Reason,
		}
	}
	c := res.Candidate
	r := types.CanonicalRecord{
		Title:           c.Title,
		Authors:         append([]string(nil), c.Authors...),
		Year:            c.Year,
		Journal:         c.Journal,
		Abstract:        c.Abstract,
		ORCID:           c.ORCID,
		Citations:       []types.Citation{res.Citation},
		MergeBasis:      types.MergeSingle,
		MergeConfidence: 1,
		Confidence:      res.Confidence,
	}
	r.DOI, _ = normalize.DOI(c.DOI)
	r.HALID, _ = normalize.HALID(c.HALID)
	if c.Provider != "" {
		r.Sources = []string{c.Provider}
		r.Provenance = make(map[string]string)
		for _, f := range mergedFields {
			if hasField(r, f) {
				r.Provenance[f] = c.Provider
			}
		}
	}
	return r
}

// MergeRecords merges already-canonical records. It repeats merge passes
// until a pass changes nothing, so merging its own output is a no-op.
func (m *Merger) MergeRecords(records []types.CanonicalRecord) []types.CanonicalRecord {
	cur := records
	for {
		next, merged := m.pass(cur)
		cur = next
		if !merged {
			return cur
		}
	}
}

// pass runs one grouping round and reports whether any records merged.
func (m *Merger) pass(records []types.CanonicalRecord) ([]types.CanonicalRecord, bool) {
	uf := newUnionFind(records)

	// Identifier groups: records sharing a DOI or HAL ID.
	owner := make(map[string]int)
	for i, r := range records {
		if r.Unresolved {
			continue
		}
		for _, k := range identifierKeys(r) {
			if j, ok := owner[k.key]; ok {
				uf.union(i, j, k.basis, 1)
			} else {
				owner[k.key] = i
			}
		}
	}

	// Identifier-less records join the first group they match: any
	// identifier-bearing record, or an earlier identifier-less one.
	for i, r := range records {
		if r.Unresolved || len(identifierKeys(r)) > 0 {
			continue
		}
		for j, other := range records {
			if j == i || other.Unresolved {
				continue
			}
			if len(identifierKeys(other)) == 0 && j > i {
				continue
			}
			if sim, ok := m.sameWork(r, other); ok {
				uf.union(i, j, types.MergeMetadata, sim*metadataDiscount)
				break
			}
		}
	}

	groups := make(map[int][]int)
	for i, r := range records {
		if !r.Unresolved {
			root := uf.find(i)
			groups[root] = append(groups[root], i)
		}
	}

	merged := false
	out := make([]types.CanonicalRecord, 0, len(records))
	emitted := make(map[int]bool)
	for i, r := range records {
		if r.Unresolved {
			out = append(out, clonePlaceholder(r))
			continue
		}
		root := uf.find(i)
		if emitted[root] {
			continue
		}
		emitted[root] = true
		members := groups[root]
		if len(members) > 1 {
			merged = true
		}
		out = append(out, m.combine(records, members, uf.basis[root], uf.conf[root]))
	}
	return out, merged
}

// sameWork reports whether two identifier-poor records describe the same
// work, and the title similarity that decided it.
func (m *Merger) sameWork(a, b types.CanonicalRecord) (float64, bool) {
	if a.Year == 0 || a.Year != b.Year {
		return 0, false
	}
	sa, sb := normalize.Surname(a.FirstAuthor()), normalize.Surname(b.FirstAuthor())
	if sa == "" || sa != sb {
		return 0, false
	}
	sim := normalize.Jaccard(normalize.Tokens(a.Title), normalize.Tokens(b.Title))
	if sim < m.threshold || sim == 0 {
		return 0, false
	}
	return sim, true
}

// combine merges the member records into one canonical record.
func (m *Merger) combine(records []types.CanonicalRecord, members []int, basis types.MergeBasis, conf float64) types.CanonicalRecord {
	out := types.CanonicalRecord{
		MergeBasis:      basis,
		MergeConfidence: conf,
		Provenance:      make(map[string]string),
	}

	sources := make(map[string]bool)
	for _, i := range members {
		r := records[i]
		out.Citations = append(out.Citations, r.Citations...)
		for _, s := range r.Sources {
			sources[s] = true
		}
		if r.Confidence > out.Confidence {
			out.Confidence = r.Confidence
		}
	}
	for s := range sources {
		out.Sources = append(out.Sources, s)
	}
	sort.Slice(out.Sources, func(i, j int) bool {
		ri, rj := m.rank(out.Sources[i]), m.rank(out.Sources[j])
		if ri != rj {
			return ri < rj
		}
		return out.Sources[i] < out.Sources[j]
	})

	for _, f := range mergedFields {
		best := -1
		var bestProvider string
		for _, i := range members {
			r := records[i]
			if !hasField(r, f) {
				continue
			}
			p := fieldProvider(r, f)
			if best < 0 || m.better(r, p, records[best], bestProvider, f) {
				best, bestProvider = i, p
			}
		}
		if best < 0 {
			continue
		}
		copyField(&out, records[best], f)
		if bestProvider != "" {
			out.Provenance[f] = bestProvider
		}
	}
	if len(out.Provenance) == 0 {
		out.Provenance = nil
	}
	return out
}

// better reports whether field f of a (from provider pa) beats b's.
func (m *Merger) better(a types.CanonicalRecord, pa string, b types.CanonicalRecord, pb string, f string) bool {
	if ra, rb := m.rank(pa), m.rank(pb); ra != rb {
		return ra < rb
	}
	return completeness(a, f) > completeness(b, f)
}

// completeness orders values of one field: author lists by name count then
// characters, strings by length.
func completeness(r types.CanonicalRecord, f string) int {
	switch f {
	case types.FieldAuthors:
		n := 0
		for _, a := range r.Authors {
			n += utf8.RuneCountInString(a)
		}
		return len(r.Authors)<<20 + n
	case types.FieldYear:
		return 0
	}
	return utf8.RuneCountInString(fieldString(r, f))
}

// fieldProvider returns the provider that supplied field f of r.
func fieldProvider(r types.CanonicalRecord, f string) string {
	if p, ok := r.Provenance[f]; ok {
		return p
	}
	if len(r.Sources) > 0 {
		return r.Sources[0]
	}
	return ""
}

func hasField(r types.CanonicalRecord, f string) bool {
	switch f {
	case types.FieldAuthors:
		return len(r.Authors) > 0
	case types.FieldYear:
		return r.Year > 0
	}
	return strings.TrimSpace(fieldString(r, f)) != ""
}

func fieldString(r types.CanonicalRecord, f string) string {
	switch f {
	case types.FieldTitle:
		return r.Title
	case types.FieldJournal:
		return r.Journal
	case types.FieldDOI:
		return r.DOI
	case types.FieldHALID:
		return r.HALID
	case types.FieldAbstract:
		return r.Abstract
	case types.FieldORCID:
		return r.ORCID
	}
	return ""
}

func copyField(dst *types.CanonicalRecord, src types.CanonicalRecord, f string) {
	switch f {
	case types.FieldTitle:
		dst.Title = src.Title
	case types.FieldAuthors:
		dst.Authors = append([]string(nil), src.Authors...)
	case types.FieldYear:
		dst.Year = src.Year
	case types.FieldJournal:
		dst.Journal = src.Journal
	case types.FieldDOI:
		dst.DOI = src.DOI
	case types.FieldHALID:
		dst.HALID = src.HALID
	case types.FieldAbstract:
		dst.Abstract = src.Abstract
	case types.FieldORCID:
		dst.ORCID = src.ORCID
	}
}

func clonePlaceholder(r types.CanonicalRecord) types.CanonicalRecord {
	r.Citations = append([]types.Citation(nil), r.Citations...)
	return r
}

type idKey struct {
	key   string
	basis types.MergeBasis
}

// identifierKeys returns the normalized identifiers of r.
func identifierKeys(r types.CanonicalRecord) []idKey {
	var keys []idKey
	if doi, ok := normalize.DOI(r.DOI); ok {
		keys = append(keys, idKey{"doi:" + doi, types.MergeDOI})
	}
	if hal, ok := normalize.HALID(r.HALID); ok {
		keys = append(keys, idKey{"hal:" + hal, types.MergeHALID})
	}
	return keys
}

// Verify checks that no two resolved records share a normalized DOI or HAL ID.
func Verify(records []types.CanonicalRecord) error {
	seen := make(map[string]int)
	for i, r := range records {
		if r.Unresolved {
			continue
		}
		for _, k := range identifierKeys(r) {
			if j, ok := seen[k.key]; ok {
				return fmt.Errorf("%w: records %d and %d both carry %s", ErrDuplicateIdentifier, j, i, k.key)
			}
			seen[k.key] = i
		}
	}
	return nil
}
