// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibtools/internal/normalize"
	"github.com/pdiddy/bibtools/pkg/types"
)

// CSLItem is a bibliographic entry in CSL-YAML, the form Pandoc and
// reference managers read.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Note           string    `yaml:"note,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a CSL date using date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL writes resolved records as a CSL-YAML list. Unresolved
// placeholders have no bibliographic data and are skipped.
func WriteCSL(w io.Writer, records []types.CanonicalRecord) error {
	items := make([]CSLItem, 0, len(records))
	keys := newKeySet()
	for _, r := range records {
		if r.Unresolved {
			continue
		}
		item := toCSLItem(r)
		item.ID = keys.unique(item.ID)
		items = append(items, item)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encoding csl: %w", err)
	}
	return enc.Close()
}

func toCSLItem(r types.CanonicalRecord) CSLItem {
	item := CSLItem{
		ID:             citeKey(r),
		Type:           "article",
		Title:          r.Title,
		ContainerTitle: r.Journal,
		Abstract:       r.Abstract,
		DOI:            r.DOI,
	}
	if r.Journal != "" {
		item.Type = "article-journal"
	}
	for _, a := range r.Authors {
		if n := parseAuthorName(a); n != (CSLName{}) {
			item.Author = append(item.Author, n)
		}
	}
	if r.Year > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{r.Year}}}
	}
	if r.HALID != "" {
		item.URL = "https://hal.science/" + r.HALID
		if r.DOI == "" {
			item.Note = "HAL: " + r.HALID
		}
	}
	return item
}

// citeKey builds a key like "smith2020" from the first author and year,
// falling back to the record's identifier.
func citeKey(r types.CanonicalRecord) string {
	key := strings.ReplaceAll(normalize.Surname(r.FirstAuthor()), " ", "")
	if key != "" {
		if r.Year > 0 {
			key += strconv.Itoa(r.Year)
		}
		return key
	}
	switch {
	case r.DOI != "":
		return r.DOI
	case r.HALID != "":
		return r.HALID
	}
	return "untitled"
}

// keySet hands out citation keys unique within one bibliography: the second
// "smith2020" becomes "smith2020b", the third "smith2020c".
type keySet map[string]int

func newKeySet() keySet { return make(keySet) }

func (k keySet) unique(key string) string {
	n := k[key]
	k[key] = n + 1
	if n == 0 {
		return key
	}
	return key + string(rune('a'+n))
}

// parseAuthorName splits a name into CSL family and given parts. "Family,
// Given" splits on the comma; otherwise the last space separates given
// names from the family name. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		family, given = strings.TrimSpace(family), strings.TrimSpace(given)
		if family != "" {
			return CSLName{Family: family, Given: given}
		}
		name = given
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  strings.TrimSpace(name[:idx]),
		Family: name[idx+1:],
	}
}
