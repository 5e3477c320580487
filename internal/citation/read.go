// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/bibtools/pkg/types"
)

// ErrColumnNotFound is returned when a CSV input lacks the requested column.
var ErrColumnNotFound = errors.New("column not found")

// maxLineBytes bounds a single citation line.
const maxLineBytes = 1 << 20

// ReadLines reads one citation per non-blank line. Lines starting with "#"
// are comments.
func ReadLines(r io.Reader, source string) ([]types.Citation, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var out []types.Citation
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out = append(out, types.Citation{Text: text, Position: line, Source: source})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return out, nil
}

// ReadCSVColumn reads citations from the named column of a CSV file with a
// header row. The column name is matched case-insensitively. Position is the
// line the row starts on.
func ReadCSVColumn(r io.Reader, column, source string) ([]types.Citation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", source, err)
	}
	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%s: %w: %q", source, ErrColumnNotFound, column)
	}

	var out []types.Citation
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", source, err)
		}
		if idx >= len(rec) {
			continue
		}
		text := strings.TrimSpace(rec[idx])
		if text == "" {
			continue
		}
		line, _ := cr.FieldPos(idx)
		out = append(out, types.Citation{Text: text, Position: line, Source: source})
	}
	return out, nil
}

var (
	// bibEntryRe matches numbered bibliography entries like "[1] Authors. Title."
	bibEntryRe = regexp.MustCompile(`^\[(\d+)\]\s+(.+)$`)

	// numberedEntryRe matches "1. Authors. Title." list items.
	numberedEntryRe = regexp.MustCompile(`^(\d+)[.)]\s+(.+)$`)

	// bulletEntryRe matches "- Authors. Title." list items.
	bulletEntryRe = regexp.MustCompile(`^[-*]\s+(.+)$`)
)

// ReadBibliography extracts the entries under a "References" or
// "Bibliography" heading of a Markdown document. Entries may be "[N] ...",
// "N. ..." or bulleted. Continuation lines are joined to the entry above.
func ReadBibliography(content, source string) []types.Citation {
	lines, offset := findReferencesSection(content)
	return parseEntries(lines, offset, source)
}

// parseEntries turns reference list lines into citations. offset is the
// 0-based index of lines[0] in the source document.
func parseEntries(lines []string, offset int, source string) []types.Citation {
	var out []types.Citation
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		var text string
		if m := bibEntryRe.FindStringSubmatch(trimmed); m != nil {
			text = m[2]
		} else if m := numberedEntryRe.FindStringSubmatch(trimmed); m != nil {
			text = m[2]
		} else if m := bulletEntryRe.FindStringSubmatch(trimmed); m != nil {
			text = m[1]
		} else if len(out) > 0 {
			out[len(out)-1].Text += " " + trimmed
			continue
		} else {
			continue
		}
		out = append(out, types.Citation{
			Text:     strings.TrimSpace(text),
			Position: offset + i + 1,
			Source:   source,
		})
	}
	return out
}

// findReferencesSection returns the lines under a "References" or
// "Bibliography" heading and the 0-based line index of the first of them.
func findReferencesSection(content string) ([]string, int) {
	lines := strings.Split(content, "\n")
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		heading := strings.ToLower(strings.TrimSpace(strings.TrimLeft(trimmed, "#")))
		if start >= 0 {
			return lines[start:i], start
		}
		if strings.Contains(heading, "references") || strings.Contains(heading, "bibliography") {
			start = i + 1
		}
	}
	if start < 0 {
		return nil, 0
	}
	return lines[start:], start
}

// ReadFile reads citations from path, choosing the reader by extension:
// ".csv" reads column, ".md" reads the references section, ".pdf" reads the
// reference list of the extracted text, anything else is one citation per
// line.
func ReadFile(path, column string) ([]types.Citation, error) {
	source := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return ReadBibliography(string(data), source), nil
	case ".pdf":
		return ReadPDF(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		if column == "" {
			column = "citation"
		}
		return ReadCSVColumn(f, column, source)
	}
	return ReadLines(f, source)
}
