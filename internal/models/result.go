// -----------------------------------------------------------------------
// Result - Stable output payload of a completed job
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
)

// Result is the bit-stable payload returned for a completed job. Nullable
// fields marshal as JSON null, never as empty strings, so pollers can
// distinguish "not recovered" from "recovered empty".
type Result struct {
	Clusters []ResultCluster `json:"clusters"`
	Stats    ResultStats     `json:"stats"`
}

// ResultCluster is one cluster in the output payload.
type ResultCluster struct {
	ClusterID     string           `json:"cluster_id"`
	ClusterType   string           `json:"cluster_type"`
	CanonicalName *string          `json:"canonical_name"`
	CanonicalDate *string          `json:"canonical_date"`
	CanonicalURL  *string          `json:"canonical_url"`
	Citations     []ResultCitation `json:"citations"`
}

// ResultCitation is one citation in the output payload with extracted and
// canonical fields kept apart.
type ResultCitation struct {
	Text               string  `json:"text"`
	Reporter           string  `json:"reporter"`
	Volume             int     `json:"volume"`
	Page               int     `json:"page"`
	SpanStart          int     `json:"span_start"`
	SpanEnd            int     `json:"span_end"`
	ExtractedCaseName  *string `json:"extracted_case_name"`
	ExtractedDate      *string `json:"extracted_date"`
	CanonicalName      *string `json:"canonical_name"`
	CanonicalDate      *string `json:"canonical_date"`
	CanonicalURL       *string `json:"canonical_url"`
	Verified           string  `json:"verified"`
	VerificationSource *string `json:"verification_source"`
}

// ResultStats summarizes a completed job.
type ResultStats struct {
	TotalCitations int `json:"total_citations"`
	Verified       int `json:"verified"`
	Clusters       int `json:"clusters"`
}

// optString returns nil for empty strings so they marshal as JSON null.
func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BuildResult assembles the output payload from finished clusters. Clusters
// must already be sorted and renumbered (SortClusters).
func BuildResult(clusters []*Cluster) *Result {
	out := &Result{Clusters: make([]ResultCluster, 0, len(clusters))}
	for _, cl := range clusters {
		rc := ResultCluster{
			ClusterID:     cl.ID,
			ClusterType:   string(cl.Type),
			CanonicalName: optString(cl.CanonicalName),
			CanonicalDate: optString(cl.CanonicalDate),
			CanonicalURL:  optString(cl.CanonicalURL),
			Citations:     make([]ResultCitation, 0, len(cl.Members)),
		}
		for _, m := range cl.Members {
			rc.Citations = append(rc.Citations, ResultCitation{
				Text:               m.Text,
				Reporter:           m.Reporter,
				Volume:             m.Volume,
				Page:               m.Page,
				SpanStart:          m.Span.Start,
				SpanEnd:            m.Span.End,
				ExtractedCaseName:  optString(m.ExtractedCaseName),
				ExtractedDate:      optString(m.ExtractedDate),
				CanonicalName:      optString(m.CanonicalName),
				CanonicalDate:      optString(m.CanonicalDate),
				CanonicalURL:       optString(m.CanonicalURL),
				Verified:           string(m.Verified),
				VerificationSource: optString(m.VerificationSource),
			})
			out.Stats.TotalCitations++
			if m.IsVerified() {
				out.Stats.Verified++
			}
		}
		out.Clusters = append(out.Clusters, rc)
	}
	out.Stats.Clusters = len(out.Clusters)
	return out
}

// Clone returns a deep copy. Safe on nil receivers.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	var cp Result
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil
	}
	return &cp
}

// ToJSON serializes the result payload.
func (r *Result) ToJSON() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return data, nil
}
