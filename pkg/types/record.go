// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CandidateRecord is a metadata record returned by a provider. Every metadata
// field is optional: the zero value means the provider did not supply it.
type CandidateRecord struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Authors lists author names in provider order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	Year     int    `json:"year,omitempty" yaml:"year,omitempty"`
	Journal  string `json:"journal,omitempty" yaml:"journal,omitempty"`
	DOI      string `json:"doi,omitempty" yaml:"doi,omitempty"`
	HALID    string `json:"hal_id,omitempty" yaml:"hal_id,omitempty"`
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// ORCID of the first author, when the provider knows it.
	ORCID string `json:"orcid,omitempty" yaml:"orcid,omitempty"`

	// Provider names the source that returned the record (e.g. "crossref").
	Provider string `json:"provider" yaml:"provider"`

	// ProviderScore is the provider's own relevance score, if any.
	ProviderScore float64 `json:"provider_score,omitempty" yaml:"provider_score,omitempty"`
}

// FirstAuthor returns the first listed author or "".
func (c CandidateRecord) FirstAuthor() string {
	if len(c.Authors) == 0 {
		return ""
	}
	return c.Authors[0]
}

// AgreementStatus summarizes how one field compared.
type AgreementStatus string

const (
	FieldAgree    AgreementStatus = "agree"
	FieldPartial  AgreementStatus = "partial"
	FieldDisagree AgreementStatus = "disagree"
	FieldMissing  AgreementStatus = "missing"
)

// Scored field names.
const (
	FieldTitle      = "title"
	FieldAuthors    = "authors"
	FieldYear       = "year"
	FieldJournal    = "journal"
	FieldIdentifier = "identifier"
	FieldDOI        = "doi"
	FieldHALID      = "hal_id"
	FieldAbstract   = "abstract"
	FieldORCID      = "orcid"
)

// FieldAgreement is one line of a match rationale.
type FieldAgreement struct {
	Field      string          `json:"field" yaml:"field"`
	Similarity float64         `json:"similarity" yaml:"similarity"`
	Weight     float64         `json:"weight" yaml:"weight"`
	Status     AgreementStatus `json:"status" yaml:"status"`
}

// MatchStatus is the terminal state of a citation's resolution.
type MatchStatus string

const (
	StatusResolved   MatchStatus = "resolved"
	StatusUnresolved MatchStatus = "unresolved"
)

// Unresolved reasons.
const (
	ReasonQueriesExhausted = "queries exhausted"
	ReasonLowConfidence    = "low confidence"
)

// MatchResult pairs a Citation with the chosen candidate, or none. A result is
// never modified after the resolver emits it.
type MatchResult struct {
	Citation   Citation         `json:"citation" yaml:"citation"`
	Query      Query            `json:"query" yaml:"query"`
	Candidate  *CandidateRecord `json:"candidate,omitempty" yaml:"candidate,omitempty"`
	Confidence float64          `json:"confidence" yaml:"confidence"`
	Fields     []FieldAgreement `json:"fields,omitempty" yaml:"fields,omitempty"`
	Status     MatchStatus      `json:"status" yaml:"status"`

	// Reason explains an unresolved result; empty when resolved.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Errors lists provider failures seen while resolving, for diagnostics.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Resolved reports whether the result references a candidate.
func (m MatchResult) Resolved() bool {
	return m.Status == StatusResolved && m.Candidate != nil
}

// MergeBasis records why records were grouped into one CanonicalRecord.
type MergeBasis string

const (
	MergeSingle   MergeBasis = "single"
	MergeDOI      MergeBasis = "doi"
	MergeHALID    MergeBasis = "hal_id"
	MergeMetadata MergeBasis = "metadata"
)

// CanonicalRecord is the deduplicated view of one or more resolved records
// describing the same work. Unresolved citations pass through as placeholder
// records with Unresolved set.
type CanonicalRecord struct {
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Authors  []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Journal  string   `json:"journal,omitempty" yaml:"journal,omitempty"`
	DOI      string   `json:"doi,omitempty" yaml:"doi,omitempty"`
	HALID    string   `json:"hal_id,omitempty" yaml:"hal_id,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	ORCID    string   `json:"orcid,omitempty" yaml:"orcid,omitempty"`

	// Sources lists every provider that contributed a member record.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`

	// Citations lists the original citations that resolved to this record.
	Citations []Citation `json:"citations" yaml:"citations"`

	// Provenance maps a field name to the provider whose value was kept.
	Provenance map[string]string `json:"provenance,omitempty" yaml:"provenance,omitempty"`

	MergeBasis MergeBasis `json:"merge_basis,omitempty" yaml:"merge_basis,omitempty"`

	// MergeConfidence is 1.0 for identifier merges and lower for metadata merges.
	MergeConfidence float64 `json:"merge_confidence,omitempty" yaml:"merge_confidence,omitempty"`

	// Confidence is the best match confidence among member citations.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	Unresolved bool   `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// FirstAuthor returns the first listed author or "".
func (r CanonicalRecord) FirstAuthor() string {
	if len(r.Authors) == 0 {
		return ""
	}
	return r.Authors[0]
}

// CacheEntry is a cached provider answer for one query.
type CacheEntry struct {
	// Key is the provider-scoped cache key (see Query.ProviderKey).
	Key      string            `json:"key" yaml:"key"`
	Query    Query             `json:"query" yaml:"query"`
	Records  []CandidateRecord `json:"records" yaml:"records"`
	StoredAt time.Time         `json:"stored_at" yaml:"stored_at"`
}
