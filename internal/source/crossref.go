// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/bibtools/internal/httputil"
	"github.com/pdiddy/bibtools/internal/normalize"
	"github.com/pdiddy/bibtools/pkg/types"
)

// crossrefBase is the Crossref works endpoint. Declared as a var so tests
// can substitute an httptest server.
var crossrefBase = "https://api.crossref.org/works"

// Crossref queries the Crossref REST API.
type Crossref struct {
	Client *http.Client

	// UserAgent should carry a mailto address for the polite pool.
	UserAgent string
	Rows      int
}

// Name returns the provider identifier.
func (c *Crossref) Name() string { return "crossref" }

// Lookup fetches a work by DOI or runs a bibliographic search.
func (c *Crossref) Lookup(ctx context.Context, q types.Query) ([]types.CandidateRecord, error) {
	switch q.Kind {
	case types.QueryDOI:
		var resp struct {
			Message crossrefWork `json:"message"`
		}
		u := crossrefBase + "/" + doiPath(q.Text)
		if err := httputil.GetJSON(ctx, c.Client, c.Name(), u, header(c.UserAgent), &resp); err != nil {
			return nil, err
		}
		return []types.CandidateRecord{resp.Message.record()}, nil

	case types.QueryText:
		params := url.Values{
			"query.bibliographic": {q.Text},
			"rows":                {strconv.Itoa(c.Rows)},
		}
		var resp struct {
			Message struct {
				Items []crossrefWork `json:"items"`
			} `json:"message"`
		}
		if err := httputil.GetJSON(ctx, c.Client, c.Name(), crossrefBase+"?"+params.Encode(), header(c.UserAgent), &resp); err != nil {
			return nil, err
		}
		records := make([]types.CandidateRecord, 0, len(resp.Message.Items))
		for _, w := range resp.Message.Items {
			records = append(records, w.record())
		}
		return records, nil
	}
	return nil, nil
}

// Crossref API JSON structures.
type crossrefWork struct {
	DOI            string           `json:"DOI"`
	Title          []string         `json:"title"`
	Author         []crossrefAuthor `json:"author"`
	ContainerTitle []string         `json:"container-title"`
	Abstract       string           `json:"abstract"`
	Issued         crossrefDate     `json:"issued"`
	PublishedPrint crossrefDate     `json:"published-print"`
	Score          float64          `json:"score"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
	ORCID  string `json:"ORCID"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossrefDate) year() int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}

func (w crossrefWork) record() types.CandidateRecord {
	r := types.CandidateRecord{
		Title:         first(w.Title),
		Journal:       first(w.ContainerTitle),
		Abstract:      cleanText(w.Abstract),
		Year:          w.Issued.year(),
		Provider:      "crossref",
		ProviderScore: w.Score,
	}
	if r.Year == 0 {
		r.Year = w.PublishedPrint.year()
	}
	if doi, ok := normalize.DOI(w.DOI); ok {
		r.DOI = doi
	}
	for _, a := range w.Author {
		if n := personName(a.Given, a.Family, a.Name); n != "" {
			r.Authors = append(r.Authors, n)
		}
	}
	if len(w.Author) > 0 {
		r.ORCID = orcid(w.Author[0].ORCID)
	}
	return r
}

// orcid strips the resolver prefix from an ORCID link.
func orcid(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range []string{"https://orcid.org/", "http://orcid.org/"} {
		s = strings.TrimPrefix(s, p)
	}
	return s
}
