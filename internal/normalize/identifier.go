// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

// Absent markers used by spreadsheets that track papers without identifiers.
const (
	NoDOI   = "no doi"
	NoHALID = "no hal id"
)

// doiPrefixes strip the link forms a DOI is commonly pasted in.
var doiPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^doi:\s*`),
	regexp.MustCompile(`^https?://(?:dx\.)?doi\.org/`),
	regexp.MustCompile(`^https?://doi-org\.[\w-]+\.grenet\.fr/`),
	regexp.MustCompile(`^https?://[\w.-]+(?:/[\w.-]+)*?/doi/(?:full/|abs/|pdf/)?`),
}

// doiPattern matches a bare DOI: "10.1145/1234567.1234568". Short
// registrants like "10.1/x" are accepted in identifier fields.
var doiPattern = regexp.MustCompile(`^10\.\d+/\S+$`)

// doiInText finds a DOI embedded in free text. The registrant must have 4-9
// digits.
var doiInText = regexp.MustCompile(`(?i)\b10\.\d{4,9}/[^\s"<>]+`)

// halPrefixes strip HAL portal links.
var halPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(?:[\w-]+\.)?hal\.science/`),
	regexp.MustCompile(`^https?://hal(?:[\w-]*)\.archives-ouvertes\.fr/`),
}

// halPattern matches "<prefix>-<digits>" with an optional "v<n>" version.
var halPattern = regexp.MustCompile(`^([a-z][a-z0-9]*(?:-[a-z][a-z0-9]*)*-\d+)(?:v\d+)?(?:/.*)?$`)

// halInText finds a HAL ID in free text. Only the portal prefixes HAL
// actually issues are accepted so that "covid-19" is not a HAL ID.
var halInText = regexp.MustCompile(`(?i)\b((?:hal|halshs|tel|inria|insu|cea|in2p3|ird|inserm|pasteur|mnhn|sic|edutice|dumas|medihal|lirmm|emse|ineris|hceres)-\d{6,})(?:v\d+)?\b`)

// halLinkInText finds a hal.science link in free text.
var halLinkInText = regexp.MustCompile(`(?i)https?://(?:[\w-]+\.)?hal\.science/([a-z][\w-]*-\d+)`)

// DOI returns the canonical lowercase form of a DOI or DOI link. The second
// result is false when s is empty, marked "no doi", or not a DOI.
func DOI(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == NoDOI {
		return "", false
	}
	for _, p := range doiPrefixes {
		s = p.ReplaceAllString(s, "")
	}
	if strings.Contains(s, "%") {
		if u, err := url.PathUnescape(s); err == nil {
			s = u
		}
	}
	s = trimTrailingPunct(s)
	if !doiPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// FindDOI returns the first DOI embedded in text.
func FindDOI(text string) (string, bool) {
	m := doiInText.FindString(text)
	if m == "" {
		return "", false
	}
	return DOI(m)
}

// HALID returns the canonical lowercase HAL ID without its version suffix.
func HALID(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == NoHALID {
		return "", false
	}
	for _, p := range halPrefixes {
		s = p.ReplaceAllString(s, "")
	}
	s = trimTrailingPunct(s)
	m := halPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FindHALID returns the first HAL ID embedded in text.
func FindHALID(text string) (string, bool) {
	if m := halLinkInText.FindStringSubmatch(text); m != nil {
		return HALID(m[1])
	}
	if m := halInText.FindStringSubmatch(text); m != nil {
		return HALID(m[1])
	}
	return "", false
}

func trimTrailingPunct(s string) string {
	return strings.TrimRight(s, ".,;:)]}>\"'")
}
