// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation reads raw citations from input files and parses a
// free-text citation into its author, year, title, and venue parts.
package citation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pdiddy/bibtools/internal/normalize"
)

// Parsed holds the fields recovered from a free-text citation. Any field may
// be empty when the citation does not carry it or the parser cannot find it.
type Parsed struct {
	Raw string

	// Authors are the author names as written ("Smith, J.").
	Authors []string

	// EtAl is set when the author list is truncated.
	EtAl bool

	Year    int
	Title   string
	Journal string
	DOI     string
	HALID   string
}

// Surnames returns the normalized family names of the parsed authors.
func (p Parsed) Surnames() []string {
	return normalize.Surnames(p.Authors)
}

var (
	// parenYearRe matches "(2020)", "(2020a)" and "(n.d.)".
	parenYearRe = regexp.MustCompile(`\(\s*(?:(?:1[5-9]|20)\d{2}[a-z]?|n\.\s?d\.)\s*\)`)

	urlRe      = regexp.MustCompile(`(?i)\bhttps?://\S+`)
	doiTokenRe = regexp.MustCompile(`(?i)\b(?:doi:\s*)?10\.\d{4,9}/[^\s"<>]+`)
	halTokenRe = regexp.MustCompile(`(?i)\b(?:hal|halshs|tel|inria|insu)-\d{6,}(?:v\d+)?\b`)

	// initialRe matches single-letter initials like "A." so period
	// splitting leaves them alone.
	initialRe = regexp.MustCompile(`\b(\p{Lu})\.`)

	etAlRe = regexp.MustCompile(`(?i),?\s*\bet\s+al\b\.?`)

	authorSepRe  = regexp.MustCompile(`\s*(?:;|,|&|\band\b)\s*`)
	initialsOnly = regexp.MustCompile(`^(?:\p{Lu}\.?\s*-?\s*){1,4}$`)
	initialToken = regexp.MustCompile(`(?:^|\s)\p{Lu}{1,3}(?:\.|\s|$)`)

	// trailingNumRe strips volume, issue, page and year tails from a venue.
	trailingNumRe = regexp.MustCompile(`(?i)(?:[\s,;:]*(?:\b(?:vol|no|pp?)\.?\s*)?\d[\d()\s:;.–-]*)+$`)

	// yearLeadRe matches the Harvard ", 2020." that follows an author list.
	yearLeadRe = regexp.MustCompile(`^[\s,]*(?:1[5-9]|20)\d{2}[a-z]?\.`)

	// initialsLeadRe matches the "A. " that opens an initials-first name.
	initialsLeadRe = regexp.MustCompile(`^\p{Lu}\.`)

	// commaTitleRe matches the IEEE `, "Title` or `, Title` that follows an
	// initials-first author list.
	commaTitleRe = regexp.MustCompile(`^,\s*(?:["“]|\p{Lu})`)
)

// authorBlockRe recognizes a leading author list in surname-first
// ("Smith J, Doe K" / "Smith, J., Doe, K.") or initials-first
// ("J. Smith and K. Doe") form, optionally ending in "et al.".
var authorBlockRe = func() *regexp.Regexp {
	word := `\p{Lu}[\p{L}'’-]+`
	dotted := `\p{Lu}\.(?:\s?-?\p{Lu}\.){0,2}`
	undotted := `\p{Lu}{1,3}\b`
	surnameFirst := word + `(?:\s+` + word + `)*,?\s+(?:` + dotted + `|` + undotted + `)`
	initialsFirst := dotted + `\s+` + word + `(?:\s+` + word + `)?`
	name := `(?:` + surnameFirst + `|` + initialsFirst + `)`
	sep := `(?:,\s*(?:and\s+|&\s*)?|\s+and\s+|\s*&\s*|;\s*)`
	return regexp.MustCompile(`^(` + name + `(?:` + sep + name + `)*(?:,?\s*et\s+al\.?)?)`)
}()

// Parse splits a free-text citation into its parts. It understands the
// APA/Harvard "Authors (Year). Title. Venue." layout, Vancouver style
// "Authors. Title. Venue. Year;vol(issue):pages." and falls back to treating
// the first sentence as the title.
func Parse(text string) Parsed {
	p := Parsed{Raw: strings.TrimSpace(text)}
	p.DOI, _ = normalize.FindDOI(text)
	p.HALID, _ = normalize.FindHALID(text)

	work := urlRe.ReplaceAllString(text, " ")
	work = doiTokenRe.ReplaceAllString(work, " ")
	work = halTokenRe.ReplaceAllString(work, " ")
	work = strings.TrimSpace(collapse(work))
	work = strings.TrimRight(work, " .,;")
	if work == "" {
		return p
	}
	if y, ok := normalize.Year(work); ok {
		p.Year = y
	}

	var rest string
	if loc := parenYearRe.FindStringIndex(work); loc != nil {
		p.setAuthors(work[:loc[0]])
		rest = work[loc[1]:]
	} else if m := authorBlockRe.FindString(work); m != "" && endsAuthorBlock(m, work[len(m):]) {
		p.setAuthors(m)
		rest = yearLeadRe.ReplaceAllString(work[len(m):], "")
	} else {
		rest = work
	}

	rest = strings.TrimLeft(rest, " .,:;")
	if title, tail, ok := splitQuotedTitle(rest); ok {
		p.Title = cleanTitle(title)
		for _, part := range strings.Split(tail, ",") {
			if v := cleanVenue(part); v != "" {
				p.Journal = v
				break
			}
		}
		return p
	}

	parts := splitOnPeriods(rest)
	if len(parts) > 0 {
		p.Title = cleanTitle(parts[0])
	}
	for _, part := range parts[min(1, len(parts)):] {
		if v := cleanVenue(part); v != "" {
			p.Journal = v
			break
		}
	}
	return p
}

// endsAuthorBlock reports whether the author block candidate is followed by a
// sentence boundary, so a capitalized title is not mistaken for names.
func endsAuthorBlock(block, rest string) bool {
	switch {
	case rest == "":
		return false
	case strings.HasSuffix(block, ".") && strings.HasPrefix(rest, " "):
		return true
	case strings.HasPrefix(rest, ". "), strings.HasPrefix(rest, ": "):
		return true
	case strings.HasPrefix(strings.TrimLeft(rest, " ,"), "("):
		return true
	case yearLeadRe.MatchString(rest):
		return true
	case initialsLeadRe.MatchString(block) && commaTitleRe.MatchString(rest):
		return true
	}
	return false
}

// splitQuotedTitle splits IEEE style `"Title," Venue, vol. 1, 2020` into
// the quoted title and the comma-separated tail.
func splitQuotedTitle(s string) (title, tail string, ok bool) {
	var closing string
	switch {
	case strings.HasPrefix(s, `"`):
		s, closing = s[1:], `"`
	case strings.HasPrefix(s, "“"):
		s, closing = s[len("“"):], "”"
	default:
		return "", "", false
	}
	end := strings.Index(s, closing)
	if end < 0 {
		return "", "", false
	}
	return s[:end], s[end+len(closing):], true
}

func (p *Parsed) setAuthors(block string) {
	block = strings.TrimSpace(block)
	if etAlRe.MatchString(block) {
		p.EtAl = true
		block = etAlRe.ReplaceAllString(block, "")
	}
	block = strings.Trim(block, " .,;")
	if block == "" {
		return
	}
	p.Authors = splitAuthors(block)
}

// splitAuthors splits an author list on commas, semicolons, "and" and "&",
// re-attaching initials to the surname they follow ("Smith", "J." →
// "Smith, J.").
func splitAuthors(block string) []string {
	var names []string
	paired := false
	for _, part := range authorSepRe.Split(block, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if initialsOnly.MatchString(part) && len(names) > 0 && !paired {
			names[len(names)-1] += ", " + part
			paired = true
			continue
		}
		names = append(names, part)
		paired = initialToken.MatchString(part)
	}
	return names
}

// splitOnPeriods splits text into sentences at ". " boundaries, leaving
// initials and the common abbreviations "et al.", "e.g." and "i.e." intact.
func splitOnPeriods(text string) []string {
	safe := strings.ReplaceAll(text, "et al.", "et al\x00")
	safe = strings.ReplaceAll(safe, "e.g.", "e\x00g\x00")
	safe = strings.ReplaceAll(safe, "i.e.", "i\x00e\x00")
	safe = initialRe.ReplaceAllString(safe, "${1}\x00")

	var result []string
	for _, part := range sentenceEndRe.Split(safe, -1) {
		part = strings.ReplaceAll(part, "\x00", ".")
		part = strings.TrimSpace(strings.TrimRight(part, "."))
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// sentenceEndRe splits after ".", "?" or "!" followed by whitespace.
var sentenceEndRe = regexp.MustCompile(`[.?!]\s+`)

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"“”'‘’«» `)
	s = strings.TrimRight(s, ".,;:")
	return strings.TrimSpace(s)
}

func cleanVenue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "In: ")
	s = strings.TrimPrefix(s, "In ")
	s = strings.TrimPrefix(s, "in ")
	s = trailingNumRe.ReplaceAllString(s, "")
	s = strings.TrimRight(s, ".,;: ")
	if !hasWord(s) {
		return ""
	}
	return s
}

// hasWord reports whether s keeps a lettered token once volume, issue and
// page markers are normalized away, so "17, pp" is not taken for a venue.
func hasWord(s string) bool {
	for _, tok := range normalize.Tokens(s) {
		if strings.IndexFunc(tok, unicode.IsLetter) >= 0 {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
