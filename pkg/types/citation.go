// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures for bibtools: citations,
// queries, provider candidate records, match results, canonical records,
// cache entries, configuration, and the error taxonomy.
package types

import "strings"

// Citation is a raw citation fragment and the place it was read from.
// Citations are immutable once a reader has produced them.
type Citation struct {
	// Text is the citation exactly as it appeared in the input.
	Text string `json:"text" yaml:"text"`

	// Position is the 1-based line or row the citation was read from.
	Position int `json:"position" yaml:"position"`

	// Source labels the input the citation came from (usually a file name).
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// QueryKind tells providers how to interpret a Query.
type QueryKind string

const (
	QueryText  QueryKind = "text"
	QueryDOI   QueryKind = "doi"
	QueryHALID QueryKind = "hal_id"
)

// Query is a normalized search key derived from a Citation. Two queries are
// the same query when their kind and key are equal, regardless of the
// original citation text.
type Query struct {
	Kind QueryKind `json:"kind" yaml:"kind"`

	// Key is the normalized form used for equality and caching.
	Key string `json:"key" yaml:"key"`

	// Text is the payload sent to providers: the bare identifier for
	// identifier queries, a condensed author/title/year string otherwise.
	Text string `json:"text" yaml:"text"`
}

// IsEmpty reports whether the query has nothing to search for.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Key) == ""
}

// IsIdentifier reports whether the query looks up a DOI or HAL ID.
func (q Query) IsIdentifier() bool {
	return q.Kind == QueryDOI || q.Kind == QueryHALID
}

// CacheKey returns the key under which results for q are cached.
func (q Query) CacheKey() string {
	return string(q.Kind) + ":" + q.Key
}

// ProviderKey scopes the cache key to one provider. Providers answer the same
// query differently, so their results are cached separately.
func (q Query) ProviderKey(provider string) string {
	return provider + "|" + q.CacheKey()
}
