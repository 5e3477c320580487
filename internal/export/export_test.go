// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibtools/pkg/types"
)

func sampleRecords() []types.CanonicalRecord {
	return []types.CanonicalRecord{
		{
			Title:           "Deep Learning Basics",
			Authors:         []string{"Smith, John", "Doe, Jane"},
			Year:            2020,
			Journal:         "Journal of ML Research",
			DOI:             "10.1000/x",
			HALID:           "hal-01234567",
			ORCID:           "0000-0002-1825-0097",
			Abstract:        "We survey, with \"quotes\", the basics.",
			Sources:         []string{"crossref", "hal"},
			Citations:       []types.Citation{{Text: "Smith (2020) Deep learning", Position: 1}, {Text: "J. Smith, DL basics", Position: 3}},
			Provenance:      map[string]string{"title": "crossref", "abstract": "hal"},
			MergeBasis:      types.MergeDOI,
			MergeConfidence: 1,
			Confidence:      0.9234,
		},
		{
			Citations:  []types.Citation{{Text: "garbled entry", Position: 2}},
			Unresolved: true,
			Reason:     types.ReasonLowConfidence,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVColumns, rows[0])

	assert.Equal(t, []string{
		"resolved", "10.1000/x", "hal-01234567", "Smith, John", "2020",
		"Deep Learning Basics", "Journal of ML Research", "0000-0002-1825-0097",
		"We survey, with \"quotes\", the basics.", "crossref;hal", "0.923", "doi", "",
		"Smith (2020) Deep learning | J. Smith, DL basics",
	}, rows[1])

	assert.Equal(t, []string{
		"unresolved", "", "", "", "", "", "", "", "", "", "", "", "low confidence", "garbled entry",
	}, rows[2])
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, sampleRecords()))

	var got []types.CanonicalRecord
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "hal", got[0].Provenance["abstract"])
	assert.Equal(t, types.MergeDOI, got[0].MergeBasis)
	assert.True(t, got[1].Unresolved)

	buf.Reset()
	require.NoError(t, WriteYAML(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteCSL(t *testing.T) {
	records := sampleRecords()
	records = append(records, types.CanonicalRecord{
		Title:     "Deep Learning Basics II",
		Authors:   []string{"John Smith"},
		Year:      2020,
		HALID:     "hal-07654321",
		Citations: []types.Citation{{Text: "Smith 2020b", Position: 4}},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSL(&buf, records))

	var items []CSLItem
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2, "unresolved placeholders are skipped")

	first := items[0]
	assert.Equal(t, "smith2020", first.ID)
	assert.Equal(t, "article-journal", first.Type)
	assert.Equal(t, "Journal of ML Research", first.ContainerTitle)
	assert.Equal(t, "10.1000/x", first.DOI)
	assert.Equal(t, []CSLName{{Family: "Smith", Given: "John"}, {Family: "Doe", Given: "Jane"}}, first.Author)
	require.NotNil(t, first.Issued)
	assert.Equal(t, [][]int{{2020}}, first.Issued.DateParts)
	assert.Equal(t, "https://hal.science/hal-01234567", first.URL)
	assert.Empty(t, first.Note)

	second := items[1]
	assert.Equal(t, "smith2020b", second.ID)
	assert.Equal(t, "article", second.Type)
	assert.Equal(t, "HAL: hal-07654321", second.Note)
	assert.Equal(t, []CSLName{{Family: "Smith", Given: "John"}}, second.Author)
}

func TestWriteBibTeX(t *testing.T) {
	records := sampleRecords()
	records = append(records, types.CanonicalRecord{
		Title:     "Deep Learning Basics II & {More}",
		Authors:   []string{"John Smith"},
		Year:      2020,
		HALID:     "hal-07654321",
		Citations: []types.Citation{{Text: "Smith 2020b", Position: 4}},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteBibTeX(&buf, records))

	want := `@article{smith2020,
  author = {Smith, John and Doe, Jane},
  title = {Deep Learning Basics},
  journal = {Journal of ML Research},
  year = {2020},
  doi = {10.1000/x},
  hal_id = {hal-01234567},
  url = {https://hal.science/hal-01234567},
  abstract = {We survey, with "quotes", the basics.},
}

% Error: low confidence: garbled entry

@misc{smith2020b,
  author = {John Smith},
  title = {Deep Learning Basics II \& More},
  year = {2020},
  hal_id = {hal-07654321},
  url = {https://hal.science/hal-07654321},
}
`
	assert.Equal(t, want, buf.String())
}

func TestKeySetSuffixes(t *testing.T) {
	keys := newKeySet()
	assert.Equal(t, "smith2020", keys.unique("smith2020"))
	assert.Equal(t, "smith2020b", keys.unique("smith2020"))
	assert.Equal(t, "smith2020c", keys.unique("smith2020"))
	assert.Equal(t, "doe2019", keys.unique("doe2019"))
}

func TestParseAuthorName(t *testing.T) {
	tests := []struct {
		in   string
		want CSLName
	}{
		{"Smith, John", CSLName{Family: "Smith", Given: "John"}},
		{"Smith,", CSLName{Family: "Smith"}},
		{"John Ronald Tolkien", CSLName{Family: "Tolkien", Given: "John Ronald"}},
		{"Aristotle", CSLName{Literal: "Aristotle"}},
		{", Plato", CSLName{Literal: "Plato"}},
		{"   ", CSLName{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseAuthorName(tt.in))
		})
	}
}

func TestCiteKeyFallbacks(t *testing.T) {
	assert.Equal(t, "smith", citeKey(types.CanonicalRecord{Authors: []string{"Smith, J."}}))
	assert.Equal(t, "10.1000/x", citeKey(types.CanonicalRecord{DOI: "10.1000/x"}))
	assert.Equal(t, "hal-1", citeKey(types.CanonicalRecord{HALID: "hal-1"}))
	assert.Equal(t, "untitled", citeKey(types.CanonicalRecord{}))
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, "docx", nil)
	require.ErrorIs(t, err, types.ErrInvalidConfig)

	for _, f := range Formats {
		buf.Reset()
		require.NoError(t, Write(&buf, f, sampleRecords()), f)
		assert.NotEmpty(t, buf.String(), f)
	}
}
