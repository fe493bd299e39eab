// Package authority provides a client for the citation authority API: batch
// citation lookup, full-text search, a process-wide rate limiter, and a
// circuit breaker that opens on the authority's rate-limit signal.
package authority

import (
	"net/http"
	"strconv"
	"strings"
)

// LookupEntry is one element of the batch lookup response. Entries come back
// in the order the citations were submitted. Deployments disagree on field
// casing (snake_case vs camelCase), so both spellings are accepted on every
// field and merged by the accessor methods.
type LookupEntry struct {
	Citation string `json:"citation"`

	NormalizedSnake []string `json:"normalized_citations"`
	NormalizedCamel []string `json:"normalizedCitations"`

	Status int `json:"status"`

	ErrorSnake string `json:"error_message"`
	ErrorCamel string `json:"errorMessage"`

	Clusters []CaseCandidate `json:"clusters"`
}

// Normalized returns the authority's normalized forms of the citation.
func (e *LookupEntry) Normalized() []string {
	if len(e.NormalizedSnake) > 0 {
		return e.NormalizedSnake
	}
	return e.NormalizedCamel
}

// Message returns the entry-level error message, if any.
func (e *LookupEntry) Message() string {
	return coalesce(e.ErrorSnake, e.ErrorCamel)
}

// Found reports whether the authority matched the citation to at least one
// case. The candidates still have to pass the acceptance filter.
func (e *LookupEntry) Found() bool {
	return e.Status == http.StatusOK && len(e.Clusters) > 0
}

// RateLimited reports whether this entry failed on the authority's rate
// limit rather than a lookup miss.
func (e *LookupEntry) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests || RateLimitMarker(e.Message())
}

// CaseCandidate is one case the authority proposes for a citation. The
// acceptance filter decides whether it becomes the citation's canonical data.
type CaseCandidate struct {
	NameSnake string `json:"case_name"`
	NameCamel string `json:"caseName"`

	FiledSnake string `json:"date_filed"`
	FiledCamel string `json:"dateFiled"`

	URLSnake string `json:"absolute_url"`
	URLCamel string `json:"absoluteUrl"`

	Court        string `json:"court"`
	CourtIDSnake string `json:"court_id"`
	CourtIDCamel string `json:"courtId"`
	Jurisdiction string `json:"jurisdiction"`
}

// Name returns the candidate's canonical case name.
func (c *CaseCandidate) Name() string {
	return coalesce(c.NameSnake, c.NameCamel)
}

// DateFiled returns the candidate's filing date, normally YYYY-MM-DD.
func (c *CaseCandidate) DateFiled() string {
	return coalesce(c.FiledSnake, c.FiledCamel)
}

// URL returns the candidate's absolute URL at the authority.
func (c *CaseCandidate) URL() string {
	return coalesce(c.URLSnake, c.URLCamel)
}

// CourtString merges whatever court identity the authority sent into one
// string for jurisdiction matching.
func (c *CaseCandidate) CourtString() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Court, coalesce(c.CourtIDSnake, c.CourtIDCamel), c.Jurisdiction} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Year parses the filing year. Returns 0 when the date is absent or malformed.
func (c *CaseCandidate) Year() int {
	d := c.DateFiled()
	if len(d) < 4 {
		return 0
	}
	y, err := strconv.Atoi(d[:4])
	if err != nil {
		return 0
	}
	return y
}

// SearchResult is one ranked hit from the full-text search endpoint. It
// carries the same case identity fields as a lookup candidate plus the
// citation strings the authority knows for the case.
type SearchResult struct {
	CaseCandidate
	CitationStrings []string `json:"citation"`
}

type searchResponse struct {
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
