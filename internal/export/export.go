// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export writes canonical records as CSV, YAML, CSL-YAML, or BibTeX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/bibtools/pkg/types"
)

// Output formats accepted by Write.
const (
	FormatCSV    = "csv"
	FormatYAML   = "yaml"
	FormatCSL    = "csl"
	FormatBibTeX = "bibtex"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatCSV, FormatYAML, FormatCSL, FormatBibTeX}

// CSVColumns is the header row written by WriteCSV.
var CSVColumns = []string{
	"status", "doi", "hal_id", "author", "year", "title", "journal", "orcid",
	"abstract", "sources", "confidence", "merge_basis", "reason", "query_text",
}

// Write dispatches on format.
func Write(w io.Writer, format string, records []types.CanonicalRecord) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatYAML:
		return WriteYAML(w, records)
	case FormatCSL:
		return WriteCSL(w, records)
	case FormatBibTeX:
		return WriteBibTeX(w, records)
	}
	return fmt.Errorf("%w: unknown output format %q (want one of %s)",
		types.ErrInvalidConfig, format, strings.Join(Formats, ", "))
}

// WriteCSV writes one row per record. Unresolved placeholders keep their
// citation text in query_text so they can be fixed by hand.
func WriteCSV(w io.Writer, records []types.CanonicalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r types.CanonicalRecord) []string {
	status := string(types.StatusResolved)
	if r.Unresolved {
		status = string(types.StatusUnresolved)
	}
	year := ""
	if r.Year > 0 {
		year = strconv.Itoa(r.Year)
	}
	confidence := ""
	if !r.Unresolved {
		confidence = strconv.FormatFloat(r.Confidence, 'f', 3, 64)
	}
	texts := make([]string, 0, len(r.Citations))
	for _, c := range r.Citations {
		texts = append(texts, c.Text)
	}
	return []string{
		status,
		r.DOI,
		r.HALID,
		r.FirstAuthor(),
		year,
		r.Title,
		r.Journal,
		r.ORCID,
		r.Abstract,
		strings.Join(r.Sources, ";"),
		confidence,
		string(r.MergeBasis),
		r.Reason,
		strings.Join(texts, " | "),
	}
}

// WriteYAML writes the records as a YAML list, provenance included.
func WriteYAML(w io.Writer, records []types.CanonicalRecord) error {
	if records == nil {
		records = []types.CanonicalRecord{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
