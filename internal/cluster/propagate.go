// -----------------------------------------------------------------------
// Context metadata propagator - spreads extracted names and dates across
// a cluster so the verifier sees each member's best available context
// -----------------------------------------------------------------------

package cluster

import (
	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/models"
)

// PropagateContext fills missing extracted_case_name and extracted_date
// values from cluster consensus. A conflict between two non-empty names
// flags the cluster ambiguous and leaves every member's values alone; the
// verifier then scores such members individually.
func PropagateContext(clusters []*models.Cluster) {
	for _, cl := range clusters {
		propagateNames(cl)
		propagateDates(cl)
	}
}

func propagateNames(cl *models.Cluster) {
	var name string
	for _, m := range cl.Members {
		if m.ExtractedCaseName == "" {
			continue
		}
		if name == "" {
			name = m.ExtractedCaseName
			continue
		}
		if !citations.NamesAgree(name, m.ExtractedCaseName) {
			cl.AmbiguousContext = true
			return
		}
	}
	if name == "" {
		return
	}
	for _, m := range cl.Members {
		if m.ExtractedCaseName == "" {
			m.ExtractedCaseName = name
		}
	}
}

// propagateDates fills missing dates only when every dated member agrees.
// Date conflicts are common around pincites to older opinions and do not
// make the cluster ambiguous on their own.
func propagateDates(cl *models.Cluster) {
	var date string
	for _, m := range cl.Members {
		if m.ExtractedDate == "" {
			continue
		}
		if date == "" {
			date = m.ExtractedDate
			continue
		}
		if date != m.ExtractedDate {
			return
		}
	}
	if date == "" {
		return
	}
	for _, m := range cl.Members {
		if m.ExtractedDate == "" {
			m.ExtractedDate = date
		}
	}
}
