// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"
	"unicode"
)

// Surname returns the normalized family name of an author. It accepts
// "Last, First", "First Last", "F. Last", "Last F." and "Given FAMILY"
// (an all-caps family name among mixed-case given names).
func Surname(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if idx := strings.Index(name, ","); idx >= 0 {
		if last := strings.TrimSpace(name[:idx]); last != "" {
			return Text(last)
		}
		name = name[idx+1:]
	}

	fields := strings.Fields(name)
	var words []string
	for _, f := range fields {
		if !isInitials(f) {
			words = append(words, f)
		}
	}
	switch len(words) {
	case 0:
		return Text(fields[len(fields)-1])
	case 1:
		return Text(words[0])
	}

	// "John SMITH" or "SMITH John": a lone all-caps word is the family name.
	var caps []string
	for _, w := range words {
		if isAllCaps(w) {
			caps = append(caps, w)
		}
	}
	if len(caps) > 0 && len(caps) < len(words) {
		return Text(caps[0])
	}
	return Text(words[len(words)-1])
}

// Surnames applies Surname to every name, dropping empty results.
func Surnames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if s := Surname(n); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// isInitials reports whether tok is one or more initials: "J", "J.", "J.-P.", "JR".
func isInitials(tok string) bool {
	letters := 0
	dotted := strings.Contains(tok, ".")
	for _, r := range tok {
		switch {
		case unicode.IsLetter(r):
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	if letters == 0 {
		return false
	}
	return letters == 1 || (dotted && letters <= 3) || (!dotted && letters == 2)
}

func isAllCaps(tok string) bool {
	letters := 0
	for _, r := range tok {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

// Jaccard returns |a ∩ b| / |a ∪ b| over token sets. Two empty sets score 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// Containment returns the fraction of distinct tokens in needle that also
// appear in haystack.
func Containment(needle, haystack []string) float64 {
	if len(needle) == 0 {
		return 0
	}
	hay := make(map[string]struct{}, len(haystack))
	for _, t := range haystack {
		hay[t] = struct{}{}
	}
	seen := make(map[string]struct{}, len(needle))
	hit := 0
	for _, t := range needle {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := hay[t]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(seen))
}
