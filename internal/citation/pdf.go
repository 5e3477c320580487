// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/bibtools/pkg/types"
)

// plainHeadingRe matches a bare reference list heading as it appears in text
// extracted from a paper: "References", "7 References", "VII. BIBLIOGRAPHY".
var plainHeadingRe = regexp.MustCompile(`(?i)^(?:[0-9ivxlc]+\.?\s+)?(references|bibliography|works cited|literature cited)$`)

// ReadPDF extracts the text of the PDF at path and reads its reference list.
func ReadPDF(path string) ([]types.Citation, error) {
	text, err := pdfText(path)
	if err != nil {
		return nil, err
	}
	return ReadReferences(text, filepath.Base(path)), nil
}

// ReadReferences reads the reference list that follows the last bare
// "References" heading of plain text. Markdown headings are accepted too.
func ReadReferences(text, source string) []types.Citation {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if plainHeadingRe.MatchString(trimmed) {
			start = i + 1
		}
	}
	if start < 0 {
		return nil
	}
	return parseEntries(lines[start:], start, source)
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}
