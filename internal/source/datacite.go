// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pdiddy/bibtools/internal/httputil"
	"github.com/pdiddy/bibtools/internal/normalize"
	"github.com/pdiddy/bibtools/pkg/types"
)

// dataCiteBase is the DataCite DOI endpoint. Declared as a var so tests can
// substitute an httptest server.
var dataCiteBase = "https://api.datacite.org/dois"

// DataCite resolves DOIs registered outside Crossref (datasets, theses,
// preprint servers). It only answers DOI queries.
type DataCite struct {
	Client    *http.Client
	UserAgent string
}

// Name returns the provider identifier.
func (d *DataCite) Name() string { return "datacite" }

// Lookup fetches the DOI's metadata. Text queries return no records.
func (d *DataCite) Lookup(ctx context.Context, q types.Query) ([]types.CandidateRecord, error) {
	if q.Kind != types.QueryDOI {
		return nil, nil
	}
	var resp struct {
		Data struct {
			Attributes dataCiteAttributes `json:"attributes"`
		} `json:"data"`
	}
	if err := httputil.GetJSON(ctx, d.Client, d.Name(), dataCiteBase+"/"+doiPath(q.Text), header(d.UserAgent), &resp); err != nil {
		return nil, err
	}
	return []types.CandidateRecord{resp.Data.Attributes.record()}, nil
}

// DataCite API JSON structures.
type dataCiteAttributes struct {
	DOI      string `json:"doi"`
	Creators []struct {
		Name       string `json:"name"`
		GivenName  string `json:"givenName"`
		FamilyName string `json:"familyName"`
	} `json:"creators"`
	Titles []struct {
		Title string `json:"title"`
	} `json:"titles"`
	// PublicationYear arrives as a number or a string depending on the record.
	PublicationYear json.RawMessage `json:"publicationYear"`
	Container       struct {
		Title string `json:"title"`
	} `json:"container"`
	Descriptions []struct {
		Description     string `json:"description"`
		DescriptionType string `json:"descriptionType"`
	} `json:"descriptions"`
}

func (a dataCiteAttributes) record() types.CandidateRecord {
	r := types.CandidateRecord{
		Journal:  cleanText(a.Container.Title),
		Year:     flexibleYear(a.PublicationYear),
		Provider: "datacite",
	}
	if doi, ok := normalize.DOI(a.DOI); ok {
		r.DOI = doi
	}
	for _, t := range a.Titles {
		if t.Title != "" {
			r.Title = cleanText(t.Title)
			break
		}
	}
	for _, c := range a.Creators {
		if n := personName(c.GivenName, c.FamilyName, c.Name); n != "" {
			r.Authors = append(r.Authors, n)
		}
	}
	for _, desc := range a.Descriptions {
		if desc.DescriptionType == "Abstract" {
			r.Abstract = cleanText(desc.Description)
			break
		}
	}
	return r
}

func flexibleYear(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}
