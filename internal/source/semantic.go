// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/bibtools/internal/httputil"
	"github.com/pdiddy/bibtools/internal/normalize"
	"github.com/pdiddy/bibtools/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper endpoint. Declared as a var
// so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper"

const semanticFields = "title,abstract,authors,externalIds,year,venue,journal"

// SemanticScholar queries the Semantic Scholar Graph API.
type SemanticScholar struct {
	Client    *http.Client
	UserAgent string

	// APIKey is optional; unauthenticated requests share a lower rate limit.
	APIKey string
	Rows   int
}

// Name returns the provider identifier.
func (s *SemanticScholar) Name() string { return "semanticscholar" }

// Lookup fetches a paper by DOI or runs a relevance search.
func (s *SemanticScholar) Lookup(ctx context.Context, q types.Query) ([]types.CandidateRecord, error) {
	h := header(s.UserAgent)
	if s.APIKey != "" {
		h.Set("x-api-key", s.APIKey)
	}

	switch q.Kind {
	case types.QueryDOI:
		var paper semanticPaper
		u := semanticAPIBase + "/DOI:" + doiPath(q.Text) + "?" + url.Values{"fields": {semanticFields}}.Encode()
		if err := httputil.GetJSON(ctx, s.Client, s.Name(), u, h, &paper); err != nil {
			return nil, err
		}
		return []types.CandidateRecord{paper.record()}, nil

	case types.QueryText:
		params := url.Values{
			"query":  {q.Text},
			"limit":  {strconv.Itoa(s.Rows)},
			"fields": {semanticFields},
		}
		var resp struct {
			Data []semanticPaper `json:"data"`
		}
		if err := httputil.GetJSON(ctx, s.Client, s.Name(), semanticAPIBase+"/search?"+params.Encode(), h, &resp); err != nil {
			return nil, err
		}
		records := make([]types.CandidateRecord, 0, len(resp.Data))
		for _, p := range resp.Data {
			records = append(records, p.record())
		}
		return records, nil
	}
	return nil, nil
}

// Semantic Scholar API JSON structures.
type semanticPaper struct {
	PaperID     string              `json:"paperId"`
	Title       string              `json:"title"`
	Abstract    string              `json:"abstract"`
	Year        int                 `json:"year"`
	Venue       string              `json:"venue"`
	Journal     *semanticJournal    `json:"journal"`
	Authors     []semanticAuthor    `json:"authors"`
	ExternalIDs semanticExternalIDs `json:"externalIds"`
}

type semanticJournal struct {
	Name string `json:"name"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

func (p semanticPaper) record() types.CandidateRecord {
	r := types.CandidateRecord{
		Title:    cleanText(p.Title),
		Abstract: cleanText(p.Abstract),
		Year:     p.Year,
		Journal:  cleanText(p.Venue),
		Provider: "semanticscholar",
	}
	if p.Journal != nil && p.Journal.Name != "" {
		r.Journal = cleanText(p.Journal.Name)
	}
	if doi, ok := normalize.DOI(p.ExternalIDs.DOI); ok {
		r.DOI = doi
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			r.Authors = append(r.Authors, a.Name)
		}
	}
	return r
}
