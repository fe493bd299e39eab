// -----------------------------------------------------------------------
// Proximity clusterer - groups citations that plausibly refer to the
// same case using document position only, never authority metadata
// -----------------------------------------------------------------------

package cluster

import (
	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/models"
)

// ProximityThreshold is the maximum character gap between two spans that
// can still be parallel citations of one case.
const ProximityThreshold = 200

// Build groups citations into proximity clusters. Input citations must be
// in document order (extractor output). Eligibility is pairwise; clusters
// are the connected components under it, numbered c1..cN by first span.
func Build(cits []*models.Citation, text string) []*models.Cluster {
	if len(cits) == 0 {
		return []*models.Cluster{}
	}

	parent := make([]int, len(cits))
	for i := range parent {
		parent[i] = i
	}

	for i := range cits {
		for j := i + 1; j < len(cits); j++ {
			// Spans are sorted and disjoint, so once the gap to i exceeds
			// the threshold every later j does too.
			if cits[j].Span.Start-cits[i].Span.End > ProximityThreshold {
				break
			}
			if pairEligible(cits[i], cits[j], text) {
				union(parent, i, j)
			}
		}
	}

	groups := make(map[int][]*models.Citation)
	var roots []int
	for i, c := range cits {
		root := find(parent, i)
		if _, ok := groups[root]; !ok {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], c)
	}

	clusters := make([]*models.Cluster, 0, len(roots))
	for _, root := range roots {
		clusters = append(clusters, &models.Cluster{
			Type:    models.ClusterProximity,
			Members: groups[root],
		})
	}
	models.SortClusters(clusters)
	return clusters
}

// pairEligible applies the four clustering rules: proximity, different
// reporter families, no parenthetical boundary between the spans, and
// case-name agreement when both sides have one.
func pairEligible(a, b *models.Citation, text string) bool {
	if a.Span.Distance(b.Span) > ProximityThreshold {
		return false
	}
	if a.ReporterFamily == b.ReporterFamily {
		return false
	}
	if parenSeparated(text, a.Span, b.Span) {
		return false
	}
	return namesCompatible(a.ExtractedCaseName, b.ExtractedCaseName)
}

// namesCompatible is true when either side lacks a name; the document is
// silent, so proximity decides. Two present names must agree.
func namesCompatible(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return citations.NamesAgree(a, b)
}

func find(parent []int, i int) int {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}

func union(parent []int, i, j int) {
	ri, rj := find(parent, i), find(parent, j)
	if ri != rj {
		parent[rj] = ri
	}
}
