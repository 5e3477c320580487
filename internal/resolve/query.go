// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"strconv"
	"strings"

	"github.com/pdiddy/bibtools/internal/citation"
	"github.com/pdiddy/bibtools/internal/normalize"
	"github.com/pdiddy/bibtools/pkg/types"
)

// BuildQuery derives the provider query for a parsed citation. A DOI wins
// over a HAL ID; without either, the query is the first author's surname,
// the normalized title, and the year. A citation the parser could not split
// falls back to its whole normalized text.
func BuildQuery(p citation.Parsed) types.Query {
	if p.DOI != "" {
		return types.Query{Kind: types.QueryDOI, Key: p.DOI, Text: p.DOI}
	}
	if p.HALID != "" {
		return types.Query{Kind: types.QueryHALID, Key: p.HALID, Text: p.HALID}
	}

	var parts []string
	if title := normalize.Title(p.Title); title != "" {
		if surnames := p.Surnames(); len(surnames) > 0 {
			parts = append(parts, surnames[0])
		}
		parts = append(parts, title)
		if p.Year > 0 {
			parts = append(parts, strconv.Itoa(p.Year))
		}
	} else {
		parts = append(parts, normalize.Text(p.Raw))
	}

	key := strings.Join(parts, " ")
	return types.Query{Kind: types.QueryText, Key: key, Text: key}
}
