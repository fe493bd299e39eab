// -----------------------------------------------------------------------
// Citation - One occurrence of a legal citation in source text
// -----------------------------------------------------------------------

package models

import (
	"fmt"
)

// VerifiedState is the verification tri-state of a citation.
type VerifiedState string

const (
	// VerifiedNone means no authority confirmed this citation.
	VerifiedNone VerifiedState = "unverified"
	// VerifiedDirect means the authority confirmed this citation itself.
	VerifiedDirect VerifiedState = "verified"
	// VerifiedByParallel means a parallel citation in the same cluster was
	// confirmed and this citation inherited its canonical data.
	VerifiedByParallel VerifiedState = "verified_by_parallel"
)

// Span is a half-open byte range [Start, End) into the ORIGINAL input text.
// Spans are never indices into a normalized or whitespace-collapsed copy.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the byte length of the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Distance returns the gap in bytes between two non-overlapping spans.
// Overlapping spans have distance 0.
func (s Span) Distance(o Span) int {
	if s.Overlaps(o) {
		return 0
	}
	if s.End <= o.Start {
		return o.Start - s.End
	}
	return s.Start - o.End
}

// Citation is a single citation occurrence recovered from the input document.
//
// Field ownership is strict: Extracted* fields come exclusively from the input
// document and are written only by the extractor/propagator. Canonical* fields
// come exclusively from the external authority and are written only by the
// verifier. The two sets are never mixed, even when one is empty.
type Citation struct {
	ID   string `json:"id"`
	Text string `json:"text"` // canonical string form, e.g. "183 Wn.2d 649"
	Span Span   `json:"span"`

	Reporter       string `json:"reporter"`        // series tag, e.g. "Wn.2d", "P.3d", "WL", "NM"
	ReporterFamily string `json:"reporter_family"` // family key; members of one family are never parallel
	Volume         int    `json:"volume"`
	Page           int    `json:"page"`
	Pincite        int    `json:"pincite,omitempty"` // 0 = none

	// Document-sourced context. Empty string means not recovered.
	ExtractedCaseName string `json:"extracted_case_name,omitempty"`
	ExtractedDate     string `json:"extracted_date,omitempty"` // four-digit year

	// Derived from the reporter tag at extraction time.
	JurisdictionHint string `json:"jurisdiction_hint,omitempty"`

	// Authority-sourced data, populated only after verification.
	CanonicalName      string `json:"canonical_name,omitempty"`
	CanonicalDate      string `json:"canonical_date,omitempty"` // YYYY-MM-DD
	CanonicalURL       string `json:"canonical_url,omitempty"`
	VerificationSource string `json:"verification_source,omitempty"`

	Verified  VerifiedState `json:"verified"`
	ClusterID string        `json:"cluster_id,omitempty"`
}

// Validate checks structural integrity of an extracted citation.
func (c *Citation) Validate() error {
	if c.Text == "" {
		return fmt.Errorf("citation text is required")
	}
	if c.Span.End <= c.Span.Start {
		return fmt.Errorf("citation span [%d,%d) is empty or inverted", c.Span.Start, c.Span.End)
	}
	if c.Reporter == "" {
		return fmt.Errorf("citation reporter is required")
	}
	if c.Volume < 0 || c.Page < 0 {
		return fmt.Errorf("citation volume/page cannot be negative")
	}
	switch c.Verified {
	case VerifiedNone, VerifiedDirect, VerifiedByParallel:
	default:
		return fmt.Errorf("invalid verified state %q", c.Verified)
	}
	return nil
}

// IsVerified reports whether the citation carries accepted canonical data,
// directly or inherited from a parallel citation.
func (c *Citation) IsVerified() bool {
	return c.Verified == VerifiedDirect || c.Verified == VerifiedByParallel
}

// Clone returns a deep copy. Citations are single-owner within a job; cloning
// is for handing snapshots across that boundary (partial results, tests).
func (c *Citation) Clone() *Citation {
	cp := *c
	return &cp
}

// YearFromCanonicalDate parses the year from a canonical YYYY-MM-DD date.
// Returns 0 when no date is set or the date is malformed.
func (c *Citation) YearFromCanonicalDate() int {
	if len(c.CanonicalDate) < 4 {
		return 0
	}
	var year int
	if _, err := fmt.Sscanf(c.CanonicalDate[:4], "%d", &year); err != nil {
		return 0
	}
	return year
}
