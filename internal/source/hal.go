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

// halBase is the HAL search endpoint. Declared as a var so tests can
// substitute an httptest server.
var halBase = "https://api.archives-ouvertes.fr/search/"

const halFields = "doiId_s,halId_s,authFirstName_s,authLastName_s,producedDateY_i,title_s,journalTitle_s,abstract_s,score"

// HAL queries the HAL open archive search API.
type HAL struct {
	Client    *http.Client
	UserAgent string

	// Base overrides halBase when set.
	Base string
	Rows int
}

// Name returns the provider identifier.
func (h *HAL) Name() string { return "hal" }

// Lookup searches HAL by HAL ID, DOI, or free text.
func (h *HAL) Lookup(ctx context.Context, q types.Query) ([]types.CandidateRecord, error) {
	params := url.Values{
		"fl": {halFields},
		"wt": {"json"},
	}
	switch q.Kind {
	case types.QueryHALID:
		// A bare ID searches every ID field; one record can carry several
		// HAL IDs and halId_s only holds the primary one.
		params.Set("q", q.Text)
		params.Set("rows", "1")
	case types.QueryDOI:
		params.Set("q", `doiId_s:"`+q.Text+`"`)
		params.Set("rows", "1")
	case types.QueryText:
		params.Set("q", solrEscape(q.Text))
		params.Set("rows", strconv.Itoa(h.Rows))
	default:
		return nil, nil
	}

	base := halBase
	if h.Base != "" {
		base = h.Base
	}
	var resp struct {
		Response struct {
			NumFound int      `json:"numFound"`
			Docs     []halDoc `json:"docs"`
		} `json:"response"`
	}
	if err := httputil.GetJSON(ctx, h.Client, h.Name(), base+"?"+params.Encode(), header(h.UserAgent), &resp); err != nil {
		return nil, err
	}

	records := make([]types.CandidateRecord, 0, len(resp.Response.Docs))
	for _, d := range resp.Response.Docs {
		records = append(records, d.record())
	}
	return records, nil
}

// solrEscape neutralizes Solr query syntax in free text.
func solrEscape(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`+-&|!(){}[]^"~*?:\/`, r) {
			return ' '
		}
		return r
	}, s)
}

// HAL API JSON structures.
type halDoc struct {
	DOI          string   `json:"doiId_s"`
	HALID        string   `json:"halId_s"`
	FirstNames   []string `json:"authFirstName_s"`
	LastNames    []string `json:"authLastName_s"`
	Year         int      `json:"producedDateY_i"`
	Title        []string `json:"title_s"`
	JournalTitle string   `json:"journalTitle_s"`
	Abstract     []string `json:"abstract_s"`
	Score        float64  `json:"score"`
}

func (d halDoc) record() types.CandidateRecord {
	r := types.CandidateRecord{
		Title:         first(d.Title),
		Year:          d.Year,
		Journal:       cleanText(d.JournalTitle),
		Abstract:      first(d.Abstract),
		Provider:      "hal",
		ProviderScore: d.Score,
	}
	if doi, ok := normalize.DOI(d.DOI); ok {
		r.DOI = doi
	}
	if id, ok := normalize.HALID(d.HALID); ok {
		r.HALID = id
	}
	for i, last := range d.LastNames {
		var given string
		if i < len(d.FirstNames) {
			given = d.FirstNames[i]
		}
		if n := personName(given, last, ""); n != "" {
			r.Authors = append(r.Authors, n)
		}
	}
	return r
}
