// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/bibtools/internal/httputil"
	"github.com/pdiddy/bibtools/internal/normalize"
	"github.com/pdiddy/bibtools/pkg/types"
)

// openAlexBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexBase = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex API.
type OpenAlex struct {
	Client    *http.Client
	UserAgent string

	// Email is sent as the mailto parameter for polite pool access.
	Email string
	Rows  int
}

// Name returns the provider identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// Lookup fetches a work by DOI or runs a full-text search.
func (o *OpenAlex) Lookup(ctx context.Context, q types.Query) ([]types.CandidateRecord, error) {
	params := url.Values{}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	switch q.Kind {
	case types.QueryDOI:
		var work openAlexWork
		u := openAlexBase + "/doi:" + doiPath(q.Text)
		if len(params) > 0 {
			u += "?" + params.Encode()
		}
		if err := httputil.GetJSON(ctx, o.Client, o.Name(), u, header(o.UserAgent), &work); err != nil {
			return nil, err
		}
		return []types.CandidateRecord{work.record()}, nil

	case types.QueryText:
		params.Set("search", q.Text)
		params.Set("per_page", strconv.Itoa(o.Rows))
		var resp struct {
			Results []openAlexWork `json:"results"`
		}
		if err := httputil.GetJSON(ctx, o.Client, o.Name(), openAlexBase+"?"+params.Encode(), header(o.UserAgent), &resp); err != nil {
			return nil, err
		}
		records := make([]types.CandidateRecord, 0, len(resp.Results))
		for _, w := range resp.Results {
			records = append(records, w.record())
		}
		return records, nil
	}
	return nil, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexWork struct {
	ID                    string               `json:"id"`
	DOI                   string               `json:"doi"`
	Title                 string               `json:"title"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	RelevanceScore        float64              `json:"relevance_score"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
	ORCID       string `json:"orcid"`
}

type openAlexLocation struct {
	Source *struct {
		DisplayName string `json:"display_name"`
	} `json:"source"`
}

func (w openAlexWork) record() types.CandidateRecord {
	r := types.CandidateRecord{
		Title:         cleanText(w.Title),
		Year:          w.PublicationYear,
		Abstract:      reconstructAbstract(w.AbstractInvertedIndex),
		Provider:      "openalex",
		ProviderScore: w.RelevanceScore,
	}
	if doi, ok := normalize.DOI(w.DOI); ok {
		r.DOI = doi
	}
	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		r.Journal = cleanText(w.PrimaryLocation.Source.DisplayName)
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			r.Authors = append(r.Authors, a.Author.DisplayName)
		}
	}
	if len(w.Authorships) > 0 {
		r.ORCID = orcid(w.Authorships[0].Author.ORCID)
	}
	return r
}
