// -----------------------------------------------------------------------
// Parallel propagation - a verified member vouches for the rest of its
// cluster
// -----------------------------------------------------------------------

package verify

import (
	"github.com/ternarybob/shepard/internal/models"
)

// PropagateParallel marks unverified members of clusters containing a
// verified citation as verified_by_parallel and hands them that member's
// canonical data. Members with their own accepted verification keep it.
// Cluster-level canonical fields come from the first verified member.
//
// This runs AFTER the canonical-consistency splitter: propagating first
// would stamp one case's canonical name across a cluster that actually
// holds two cases and rob the splitter of its orphans.
func PropagateParallel(clusters []*models.Cluster) {
	for _, cl := range clusters {
		vm := cl.VerifiedMember()
		if vm == nil {
			continue
		}
		cl.CanonicalName = vm.CanonicalName
		cl.CanonicalDate = vm.CanonicalDate
		cl.CanonicalURL = vm.CanonicalURL

		for _, m := range cl.Members {
			if m == vm || m.Verified == models.VerifiedDirect {
				continue
			}
			m.Verified = models.VerifiedByParallel
			m.CanonicalName = vm.CanonicalName
			m.CanonicalDate = vm.CanonicalDate
			m.CanonicalURL = vm.CanonicalURL
			m.VerificationSource = vm.VerificationSource
		}
	}
}
