// -----------------------------------------------------------------------
// Verification - Authority responses and the failure taxonomy
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
)

// Verification sources, recorded on citations that passed the acceptance
// filter. Alternate sources use the alternate_source_<name> form.
const (
	SourceBatchLookup     = "batch_lookup"
	SourceSearchAPI       = "search_api"
	SourceAlternatePrefix = "alternate_source_"
)

// AlternateSourceName builds the verification_source label for a configured
// alternate public source.
func AlternateSourceName(name string) string {
	return SourceAlternatePrefix + name
}

// VerificationResult is the authority's answer for one citation, owned by
// the verifier until its canonical fields are merged into the citation.
type VerificationResult struct {
	CitationText  string `json:"citation_text"`
	Found         bool   `json:"found"`
	CanonicalName string `json:"canonical_name,omitempty"`
	CanonicalDate string `json:"canonical_date,omitempty"`
	CanonicalURL  string `json:"canonical_url,omitempty"`
	Jurisdiction  string `json:"jurisdiction,omitempty"`
	Source        string `json:"source,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Validate enforces the found/canonical coupling: a not-found result never
// carries canonical data.
func (v *VerificationResult) Validate() error {
	if !v.Found && (v.CanonicalName != "" || v.CanonicalDate != "" || v.CanonicalURL != "") {
		return fmt.Errorf("verification result for %q carries canonical data but found=false", v.CitationText)
	}
	return nil
}

// FailureKind classifies a verification failure. The kind decides whether
// the verifier retries, falls back, or surfaces the failure.
type FailureKind string

const (
	FailureRateLimited          FailureKind = "rate_limited"
	FailureNotFound             FailureKind = "not_found"
	FailureJurisdictionMismatch FailureKind = "jurisdiction_mismatch"
	FailureNameMismatch         FailureKind = "name_mismatch"
	FailureDateMismatch         FailureKind = "date_mismatch"
	FailureTransport            FailureKind = "transport_error"
)

// VerificationFailure is the typed error for a citation the authority could
// not confirm. Failures never fail the job; the citation stays unverified.
type VerificationFailure struct {
	Kind         FailureKind
	CitationText string
	Detail       string
}

func (f *VerificationFailure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("verification failed for %q: %s", f.CitationText, f.Kind)
	}
	return fmt.Sprintf("verification failed for %q: %s (%s)", f.CitationText, f.Kind, f.Detail)
}

// NewFailure builds a typed verification failure.
func NewFailure(kind FailureKind, citationText, detail string) *VerificationFailure {
	return &VerificationFailure{Kind: kind, CitationText: citationText, Detail: detail}
}

// FailureKindOf extracts the failure kind from an error chain. Returns
// FailureTransport for unrecognized errors, which is the conservative
// retry-then-fallback bucket.
func FailureKindOf(err error) FailureKind {
	var vf *VerificationFailure
	if errors.As(err, &vf) {
		return vf.Kind
	}
	return FailureTransport
}
