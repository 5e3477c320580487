// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source holds the concrete bibliographic providers (Crossref, HAL,
// OpenAlex, Semantic Scholar, DataCite) and a Registry that dispatches
// provider queries to them by name.
package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/bibtools/internal/httputil"
	"github.com/pdiddy/bibtools/pkg/types"
)

// Source looks up candidate records for a query at one provider. A source
// that cannot answer a query kind returns an empty result, not an error.
type Source interface {
	Name() string
	Lookup(ctx context.Context, q types.Query) ([]types.CandidateRecord, error)
}

// DefaultRows is the number of candidates requested from a text search.
const DefaultRows = 5

// Options configures the shipped sources.
type Options struct {
	Client    *http.Client
	UserAgent string

	// CrossrefEmail and OpenAlexEmail join the providers' polite pools.
	CrossrefEmail string
	OpenAlexEmail string

	SemanticScholarKey string

	// HALBase overrides the HAL search endpoint.
	HALBase string

	// Rows bounds text search results per provider.
	Rows int
}

func (o Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (o Options) rows() int {
	if o.Rows > 0 {
		return o.Rows
	}
	return DefaultRows
}

// New returns the named source, or an error for an unknown name.
func New(name string, o Options) (Source, error) {
	switch name {
	case "crossref":
		return &Crossref{Client: o.client(), UserAgent: httputil.UserAgent(o.UserAgent, o.CrossrefEmail), Rows: o.rows()}, nil
	case "hal":
		return &HAL{Client: o.client(), UserAgent: o.UserAgent, Base: o.HALBase, Rows: o.rows()}, nil
	case "openalex":
		return &OpenAlex{Client: o.client(), UserAgent: httputil.UserAgent(o.UserAgent, o.OpenAlexEmail), Email: o.OpenAlexEmail, Rows: o.rows()}, nil
	case "semanticscholar":
		return &SemanticScholar{Client: o.client(), UserAgent: o.UserAgent, APIKey: o.SemanticScholarKey, Rows: o.rows()}, nil
	case "datacite":
		return &DataCite{Client: o.client(), UserAgent: httputil.UserAgent(o.UserAgent, o.CrossrefEmail)}, nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", types.ErrInvalidConfig, name)
}

// Known lists the provider names New accepts.
func Known() []string {
	return []string{"crossref", "datacite", "hal", "openalex", "semanticscholar"}
}

// Registry dispatches queries to sources by provider name. It implements
// provider.Querier.
type Registry struct {
	sources map[string]Source
}

// NewRegistry registers the given sources under their names. A later source
// with the same name replaces an earlier one.
func NewRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		r.sources[s.Name()] = s
	}
	return r
}

// Build constructs a registry holding the named providers.
func Build(names []string, o Options) (*Registry, error) {
	r := NewRegistry()
	for _, n := range names {
		s, err := New(n, o)
		if err != nil {
			return nil, err
		}
		r.sources[n] = s
	}
	return r, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Query implements provider.Querier. An unregistered provider rejects the query.
func (r *Registry) Query(ctx context.Context, provider string, q types.Query) ([]types.CandidateRecord, error) {
	s, ok := r.sources[provider]
	if !ok {
		return nil, &types.ProviderError{Provider: provider, Err: fmt.Errorf("%w: provider not registered", types.ErrProviderRejected)}
	}
	if q.IsEmpty() {
		return nil, nil
	}
	return s.Lookup(ctx, q)
}

// --- shared record helpers ---

var (
	markupTag  = regexp.MustCompile(`<[^>]+>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// cleanText drops JATS/HTML markup and collapses whitespace.
func cleanText(s string) string {
	s = markupTag.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// personName formats an author as "Family, Given" so surname extraction is
// unambiguous for multi-word family names.
func personName(given, family, full string) string {
	given, family = strings.TrimSpace(given), strings.TrimSpace(family)
	switch {
	case family != "" && given != "":
		return family + ", " + given
	case family != "":
		return family
	}
	return strings.TrimSpace(full)
}

func first(ss []string) string {
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			return cleanText(s)
		}
	}
	return ""
}

// doiPath escapes a DOI for use as URL path segments, keeping its slashes.
func doiPath(doi string) string {
	parts := strings.Split(doi, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func header(userAgent string) http.Header {
	h := http.Header{}
	if userAgent != "" {
		h.Set("User-Agent", userAgent)
	}
	return h
}
