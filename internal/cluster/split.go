// -----------------------------------------------------------------------
// Canonical-consistency splitter - the only post-verification change to
// cluster membership. Splits only, never merges.
// -----------------------------------------------------------------------

package cluster

import "github.com/ternarybob/shepard/internal/models"

// SplitByCanonical re-partitions clusters whose members were verified to
// distinct cases. Clusters with at most one canonical name pass through
// untouched. Sub-clusters carry cluster_type split_by_canonical; members
// keep document order and the whole set is renumbered afterwards.
func SplitByCanonical(clusters []*models.Cluster) []*models.Cluster {
	out := make([]*models.Cluster, 0, len(clusters))
	for _, cl := range clusters {
		names := cl.CanonicalNames()
		if len(names) <= 1 {
			out = append(out, cl)
			continue
		}
		out = append(out, splitCluster(cl, names)...)
	}
	models.SortClusters(out)
	return out
}

func splitCluster(cl *models.Cluster, names []string) []*models.Cluster {
	subs := make([]*models.Cluster, 0, len(names))
	byName := make(map[string]*models.Cluster, len(names))
	for _, name := range names {
		sub := &models.Cluster{
			Type:             models.ClusterSplitByCanonical,
			AmbiguousContext: cl.AmbiguousContext,
		}
		byName[name] = sub
		subs = append(subs, sub)
	}

	var orphans []*models.Citation
	for _, m := range cl.Members {
		if m.CanonicalName != "" {
			byName[m.CanonicalName].Members = append(byName[m.CanonicalName].Members, m)
		} else {
			orphans = append(orphans, m)
		}
	}

	// Unverified members follow whichever verified group sits closest in
	// the document. subs is ordered by first occurrence, so a strict
	// less-than keeps the earlier group on distance ties.
	for _, orphan := range orphans {
		best := subs[0]
		bestDist := -1
		for _, sub := range subs {
			d := minCanonicalDistance(orphan, sub)
			if d < 0 {
				continue
			}
			if bestDist < 0 || d < bestDist {
				best, bestDist = sub, d
			}
		}
		best.Members = append(best.Members, orphan)
	}
	return subs
}

// minCanonicalDistance measures the orphan's span distance to the nearest
// canonical-bearing member. Earlier-attached orphans never count as
// anchors, so attachment order cannot skew later decisions.
func minCanonicalDistance(orphan *models.Citation, sub *models.Cluster) int {
	best := -1
	for _, m := range sub.Members {
		if m.CanonicalName == "" {
			continue
		}
		d := orphan.Span.Distance(m.Span)
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}
