// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize canonicalizes citation text and metadata fields into
// comparable forms. Every function is pure: no I/O, and the same input
// always yields the same output.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// volIssueRe matches volume(issue) markers like "12(3)" or "7 (2-3)".
	volIssueRe = regexp.MustCompile(`\d+\s*\(\s*\d+(?:\s*[-–]\s*\d+)?\s*\)`)

	// pageRangeRe matches numeric ranges like "45-67" or "101–110".
	pageRangeRe = regexp.MustCompile(`\d+\s*[-–—]\s*\d+`)

	// yearRe matches a plausible publication year, optionally suffixed ("2020a").
	yearRe = regexp.MustCompile(`(?:^|[^\d])(1[5-9]\d{2}|20\d{2})[a-z]?(?:$|[^\d])`)

	// parenYearRe matches an APA-style "(2020)" year.
	parenYearRe = regexp.MustCompile(`\((1[5-9]\d{2}|20\d{2})[a-z]?\)`)
)

// markerTokens are dropped when followed by a number ("vol 12", "pp 4").
var markerTokens = map[string]bool{
	"vol": true, "vols": true, "volume": true,
	"no": true, "nr": true, "num": true, "issue": true, "iss": true,
	"p": true, "pp": true, "page": true, "pages": true,
}

// bareStopTokens are dropped wherever they appear.
var bareStopTokens = map[string]bool{
	"pp": true, "vol": true, "vols": true,
}

// stripMarks removes combining marks after canonical decomposition, turning
// "é" into "e" and "ü" into "u".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and removes diacritics without touching punctuation.
// Lowercasing runs first because some uppercase letters lower to a letter
// plus a combining mark.
func Fold(s string) string {
	lower := strings.ToLower(s)
	folded, _, err := transform.String(stripMarks, lower)
	if err != nil {
		return lower
	}
	return folded
}

// Text returns the canonical comparable form of a citation fragment: lower
// case, no diacritics, punctuation removed except hyphens inside names,
// stop tokens ("et al.", "pp.", volume and issue markers, page ranges)
// removed, whitespace collapsed. Text is idempotent.
func Text(s string) string {
	s = Fold(s)
	s = volIssueRe.ReplaceAllString(s, " ")
	s = pageRangeRe.ReplaceAllString(s, " ")
	return strings.Join(dropStopTokens(strings.Fields(stripPunct(s))), " ")
}

// Tokens returns the tokens of Text(s).
func Tokens(s string) []string {
	return strings.Fields(Text(s))
}

// Title normalizes a publication title.
func Title(s string) string { return Text(s) }

// Journal normalizes a journal or venue name.
func Journal(s string) string { return Text(s) }

// stripPunct keeps letters, digits, and hyphens that sit between two letters.
// Apostrophes are dropped so "O'Brien" becomes "obrien"; every other rune
// becomes a space.
func stripPunct(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range rs {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
		case r == '-' && i > 0 && i < len(rs)-1 && unicode.IsLetter(rs[i-1]) && unicode.IsLetter(rs[i+1]):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// dropStopTokens removes "et al" pairs, marker+number pairs, and bare stop
// tokens, repeating until nothing changes so the result is a fixed point.
func dropStopTokens(tokens []string) []string {
	for {
		out := make([]string, 0, len(tokens))
		changed := false
		for i := 0; i < len(tokens); i++ {
			tok := tokens[i]
			next := ""
			if i+1 < len(tokens) {
				next = tokens[i+1]
			}
			switch {
			case tok == "et" && next == "al":
				i++
				changed = true
			case markerTokens[tok] && isNumeric(next):
				i++
				changed = true
			case bareStopTokens[tok]:
				changed = true
			default:
				out = append(out, tok)
			}
		}
		tokens = out
		if !changed {
			return tokens
		}
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Year returns the publication year found in s. An APA-style "(2020)" wins
// over a bare year elsewhere in the text.
func Year(s string) (int, bool) {
	if m := parenYearRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, true
	}
	if m := yearRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, true
	}
	return 0, false
}
