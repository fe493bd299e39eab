// -----------------------------------------------------------------------
// Cluster - A set of citations believed to refer to the same case
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"sort"
)

// ClusterType records which stage produced the cluster.
type ClusterType string

const (
	// ClusterProximity is produced by document-position clustering.
	ClusterProximity ClusterType = "proximity_based"
	// ClusterSplitByCanonical is produced by the post-verification
	// consistency splitter.
	ClusterSplitByCanonical ClusterType = "split_by_canonical"
)

// Cluster groups citations that refer to the same case. Members preserve
// document order. Cluster identity is stable within a single job only.
type Cluster struct {
	ID      string      `json:"id"`
	Type    ClusterType `json:"cluster_type"`
	Members []*Citation `json:"members"`

	// Inherited from the first verified member, if any.
	CanonicalName string `json:"canonical_name,omitempty"`
	CanonicalDate string `json:"canonical_date,omitempty"`
	CanonicalURL  string `json:"canonical_url,omitempty"`

	// Set by the context propagator when two members carry different
	// non-empty extracted case names. The verifier treats such clusters
	// per-citation instead of trusting a shared name.
	AmbiguousContext bool `json:"ambiguous_context,omitempty"`
}

// MinStart returns the smallest member span start, used for deterministic
// cluster ordering. Empty clusters sort last.
func (cl *Cluster) MinStart() int {
	if len(cl.Members) == 0 {
		return int(^uint(0) >> 1)
	}
	min := cl.Members[0].Span.Start
	for _, m := range cl.Members[1:] {
		if m.Span.Start < min {
			min = m.Span.Start
		}
	}
	return min
}

// SortMembers orders members by span start (document order).
func (cl *Cluster) SortMembers() {
	sort.SliceStable(cl.Members, func(i, j int) bool {
		return cl.Members[i].Span.Start < cl.Members[j].Span.Start
	})
}

// CanonicalNames returns the distinct non-empty canonical names among members.
func (cl *Cluster) CanonicalNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range cl.Members {
		if m.CanonicalName != "" && !seen[m.CanonicalName] {
			seen[m.CanonicalName] = true
			names = append(names, m.CanonicalName)
		}
	}
	return names
}

// VerifiedMember returns the first directly verified member in document
// order, or nil.
func (cl *Cluster) VerifiedMember() *Citation {
	for _, m := range cl.Members {
		if m.Verified == VerifiedDirect {
			return m
		}
	}
	return nil
}

// Validate checks cluster invariants: members share the cluster id and at
// most one distinct canonical name exists among them.
func (cl *Cluster) Validate() error {
	if cl.ID == "" {
		return fmt.Errorf("cluster ID is required")
	}
	if len(cl.Members) == 0 {
		return fmt.Errorf("cluster %s has no members", cl.ID)
	}
	for _, m := range cl.Members {
		if m.ClusterID != cl.ID {
			return fmt.Errorf("cluster %s member %q carries cluster id %q", cl.ID, m.Text, m.ClusterID)
		}
	}
	if names := cl.CanonicalNames(); len(names) > 1 {
		return fmt.Errorf("cluster %s has %d distinct canonical names", cl.ID, len(names))
	}
	return nil
}

// SortClusters orders clusters by minimum member span start and renumbers
// them c1..cN, rewriting member cluster ids to match.
func SortClusters(clusters []*Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].MinStart() < clusters[j].MinStart()
	})
	for i, cl := range clusters {
		cl.ID = fmt.Sprintf("c%d", i+1)
		cl.SortMembers()
		for _, m := range cl.Members {
			m.ClusterID = cl.ID
		}
	}
}
