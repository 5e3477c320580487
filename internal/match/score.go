// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match scores how well a provider record matches a parsed citation.
// Scoring is pure and deterministic: the same citation and candidate always
// produce the same confidence and rationale.
package match

import (
	"strings"

	"github.com/pdiddy/bibtools/internal/citation"
	"github.com/pdiddy/bibtools/internal/normalize"
	"github.com/pdiddy/bibtools/pkg/types"
)

// Status thresholds applied to a field similarity.
const (
	agreeAt   = 0.9
	partialAt = 0.3

	// minContainmentTokens guards the title containment fallback against
	// short titles that appear in most citations by accident.
	minContainmentTokens = 4

	// containmentDiscount scales containment below a parsed-title match.
	containmentDiscount = 0.9
)

// journalStopWords are ignored when comparing venue names.
var journalStopWords = map[string]bool{
	"of": true, "the": true, "and": true, "in": true, "on": true,
	"for": true, "a": true, "an": true, "de": true, "la": true, "le": true,
	"des": true, "du": true, "et": true,
}

// Result is a confidence in [0,1] with its per-field rationale.
type Result struct {
	Confidence float64
	Fields     []types.FieldAgreement
}

// Field returns the agreement recorded for name.
func (r Result) Field(name string) (types.FieldAgreement, bool) {
	for _, f := range r.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return types.FieldAgreement{}, false
}

// Scorer computes match confidence under a fixed weight policy.
type Scorer struct {
	weights types.FieldWeights
	neutral float64
}

// NewScorer returns a Scorer for cfg. Weights are renormalized to sum to 1.
func NewScorer(cfg types.ScoringConfig) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: cfg.Weights.Normalized(), neutral: cfg.NeutralScore}, nil
}

// DefaultScorer returns a Scorer with the default policy.
func DefaultScorer() *Scorer {
	s, _ := NewScorer(types.DefaultScoring())
	return s
}

// Score compares a parsed citation against a candidate record. A citation
// compared with CandidateFromCitation of itself scores at least the neutral
// floor as long as it normalizes to something; when no field can be compared
// on both sides there is no evidence of a match and the confidence is 0.
func (s *Scorer) Score(c citation.Parsed, cand types.CandidateRecord) Result {
	fields := []types.FieldAgreement{
		s.field(types.FieldTitle, s.weights.Title, titleSimilarity(c, cand)),
		s.field(types.FieldAuthors, s.weights.Authors, authorSimilarity(c, cand)),
		s.field(types.FieldYear, s.weights.Year, yearSimilarity(c.Year, cand.Year)),
		s.field(types.FieldJournal, s.weights.Journal, journalSimilarity(c.Journal, cand.Journal)),
	}

	total := 0.0
	for _, f := range fields {
		total += f.Weight * f.Similarity
	}

	idField, idMatch := identifierAgreement(c, cand)
	fields = append(fields, idField)
	switch {
	case idMatch:
		total = 1
	case !anyCompared(fields):
		total = 0
	}

	return Result{Confidence: clamp(total), Fields: fields}
}

// field turns a similarity into an agreement line. A negative similarity
// means the field is missing on one side and earns the neutral score.
func (s *Scorer) field(name string, weight, sim float64) types.FieldAgreement {
	if sim < 0 {
		return types.FieldAgreement{Field: name, Similarity: s.neutral, Weight: weight, Status: types.FieldMissing}
	}
	sim = clamp(sim)
	return types.FieldAgreement{Field: name, Similarity: sim, Weight: weight, Status: status(sim)}
}

func anyCompared(fields []types.FieldAgreement) bool {
	for _, f := range fields {
		if f.Status != types.FieldMissing {
			return true
		}
	}
	return false
}

func status(sim float64) types.AgreementStatus {
	switch {
	case sim >= agreeAt:
		return types.FieldAgree
	case sim >= partialAt:
		return types.FieldPartial
	default:
		return types.FieldDisagree
	}
}

// missing marks a field absent on either side.
const missing = -1.0

func titleSimilarity(c citation.Parsed, cand types.CandidateRecord) float64 {
	candTokens := normalize.Tokens(cand.Title)
	if len(candTokens) == 0 {
		return missing
	}
	citeTokens := normalize.Tokens(c.Title)
	if len(citeTokens) == 0 {
		raw := normalize.Tokens(c.Raw)
		if len(raw) == 0 {
			return missing
		}
		return normalize.Containment(candTokens, raw)
	}
	sim := normalize.Jaccard(citeTokens, candTokens)
	if len(candTokens) >= minContainmentTokens {
		if alt := containmentDiscount * normalize.Containment(candTokens, normalize.Tokens(c.Raw)); alt > sim {
			sim = alt
		}
	}
	return sim
}

// authorSimilarity matches surnames in order: a surname in the same position
// scores 1, one found elsewhere in the list scores 0.5. A truncated citation
// list ("et al.") is scored against its own length.
func authorSimilarity(c citation.Parsed, cand types.CandidateRecord) float64 {
	cite := c.Surnames()
	other := normalize.Surnames(cand.Authors)
	if len(cite) == 0 || len(other) == 0 {
		return missing
	}

	matched := 0.0
	for i, s := range cite {
		if i < len(other) && sameSurname(s, other[i]) {
			matched++
			continue
		}
		for _, o := range other {
			if sameSurname(s, o) {
				matched += 0.5
				break
			}
		}
	}

	denom := len(cite)
	if !c.EtAl && len(other) > denom {
		denom = len(other)
	}
	return matched / float64(denom)
}

// sameSurname treats "garcia" and "garcia-lopez" as the same family name.
func sameSurname(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+"-") || strings.HasPrefix(b, a+"-") ||
		strings.HasPrefix(a, b+" ") || strings.HasPrefix(b, a+" ")
}

func yearSimilarity(a, b int) float64 {
	if a == 0 || b == 0 {
		return missing
	}
	switch d := a - b; {
	case d == 0:
		return 1
	case d == 1 || d == -1:
		return 0.5
	default:
		return 0
	}
}

// journalSimilarity credits containment of one venue in the other, then falls
// back to token overlap where an abbreviation matches the word it prefixes.
func journalSimilarity(a, b string) float64 {
	na, nb := normalize.Journal(a), normalize.Journal(b)
	if na == "" || nb == "" {
		return missing
	}
	if containsPhrase(na, nb) || containsPhrase(nb, na) {
		return 1
	}

	ta, tb := venueTokens(na), venueTokens(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	if acronymOf(ta, tb) || acronymOf(tb, ta) {
		return 1
	}

	used := make([]bool, len(tb))
	hit := 0
	for _, x := range ta {
		for j, y := range tb {
			if !used[j] && abbreviates(x, y) {
				used[j] = true
				hit++
				break
			}
		}
	}
	return float64(hit) / float64(max(len(ta), len(tb)))
}

// containsPhrase reports whether b occurs in a on token boundaries.
func containsPhrase(a, b string) bool {
	return strings.Contains(" "+a+" ", " "+b+" ")
}

func venueTokens(s string) []string {
	var out []string
	for _, t := range strings.Fields(s) {
		if !journalStopWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// abbreviates reports whether one token is a prefix of the other: "j" and
// "journal", "proc" and "proceedings".
func abbreviates(a, b string) bool {
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// acronymOf reports whether short is a single token spelling the initials of
// long ("jmlr" and "journal machine learning research").
func acronymOf(short, long []string) bool {
	if len(short) != 1 || len(long) < 2 || len(short[0]) != len(long) {
		return false
	}
	var b strings.Builder
	for _, t := range long {
		b.WriteByte(t[0])
	}
	return b.String() == short[0]
}

// identifierAgreement compares DOIs and HAL IDs. A shared identifier pins the
// confidence to 1; the line itself carries no weight.
func identifierAgreement(c citation.Parsed, cand types.CandidateRecord) (types.FieldAgreement, bool) {
	f := types.FieldAgreement{Field: types.FieldIdentifier, Status: types.FieldMissing}

	compared := false
	if c.DOI != "" && cand.DOI != "" {
		compared = true
		a, _ := normalize.DOI(c.DOI)
		b, _ := normalize.DOI(cand.DOI)
		if a != "" && a == b {
			f.Similarity, f.Status = 1, types.FieldAgree
			return f, true
		}
	}
	if c.HALID != "" && cand.HALID != "" {
		compared = true
		a, _ := normalize.HALID(c.HALID)
		b, _ := normalize.HALID(cand.HALID)
		if a != "" && a == b {
			f.Similarity, f.Status = 1, types.FieldAgree
			return f, true
		}
	}
	if compared {
		f.Status = types.FieldDisagree
	}
	return f, false
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// CandidateFromCitation builds the record a perfect provider would return
// for c. Useful as a self-match baseline.
func CandidateFromCitation(c citation.Parsed, provider string) types.CandidateRecord {
	return types.CandidateRecord{
		Title:    c.Title,
		Authors:  append([]string(nil), c.Authors...),
		Year:     c.Year,
		Journal:  c.Journal,
		DOI:      c.DOI,
		HALID:    c.HALID,
		Provider: provider,
	}
}
