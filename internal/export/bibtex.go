// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/bibtools/pkg/types"
)

// bibEscaper escapes the characters LaTeX treats as commands and drops
// braces so a stray one cannot unbalance the entry.
var bibEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	"&", `\&`, "%", `\%`, "$", `\$`, "#", `\#`, "_", `\_`,
	"{", "", "}", "",
)

// WriteBibTeX writes resolved records as BibTeX entries keyed like
// WriteCSL. An unresolved placeholder becomes a "% Error:" comment that
// keeps its citation text so it can be fixed by hand.
func WriteBibTeX(w io.Writer, records []types.CanonicalRecord) error {
	bw := bufio.NewWriter(w)
	keys := newKeySet()
	for i, r := range records {
		if i > 0 {
			bw.WriteString("\n")
		}
		if r.Unresolved {
			writeBibError(bw, r)
			continue
		}
		writeBibEntry(bw, keys.unique(citeKey(r)), r)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing bibtex: %w", err)
	}
	return nil
}

func writeBibError(w *bufio.Writer, r types.CanonicalRecord) {
	reason := r.Reason
	if reason == "" {
		reason = "unresolved"
	}
	for _, c := range r.Citations {
		fmt.Fprintf(w, "%% Error: %s: %s\n", reason, oneLine(c.Text))
	}
	if len(r.Citations) == 0 {
		fmt.Fprintf(w, "%% Error: %s\n", reason)
	}
}

func writeBibEntry(w *bufio.Writer, key string, r types.CanonicalRecord) {
	kind := "misc"
	if r.Journal != "" {
		kind = "article"
	}
	fields := [][2]string{
		{"author", bibEscaper.Replace(strings.Join(r.Authors, " and "))},
		{"title", bibEscaper.Replace(r.Title)},
		{"journal", bibEscaper.Replace(r.Journal)},
		{"year", ""},
		{"doi", r.DOI},
		{"hal_id", r.HALID},
		{"url", ""},
		{"abstract", bibEscaper.Replace(oneLine(r.Abstract))},
	}
	if r.Year > 0 {
		fields[3][1] = strconv.Itoa(r.Year)
	}
	if r.HALID != "" {
		fields[6][1] = "https://hal.science/" + r.HALID
	}

	fmt.Fprintf(w, "@%s{%s,\n", kind, key)
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		fmt.Fprintf(w, "  %s = {%s},\n", f[0], f[1])
	}
	w.WriteString("}\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
