// -----------------------------------------------------------------------
// Verification without a job record - the MCP tools and the one-shot CLI
// run here, against the same extractor and verifier as document jobs
// -----------------------------------------------------------------------

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/cluster"
	"github.com/ternarybob/shepard/internal/models"
	"github.com/ternarybob/shepard/internal/verify"
)

// TextVerifier implements interfaces.VerificationService for inputs that are
// citation strings rather than documents. Every input string is parsed on
// its own; multiple citations recognized inside one string are treated as
// parallel citations of a single case.
type TextVerifier struct {
	extractor *citations.Extractor
	verifier  *verify.Verifier
	logger    arbor.ILogger
}

// NewTextVerifier builds a TextVerifier over the shared extractor and
// verifier, so bare-string lookups ride the same rate limiter and breaker
// as document jobs.
func NewTextVerifier(extractor *citations.Extractor, verifier *verify.Verifier, logger arbor.ILogger) *TextVerifier {
	return &TextVerifier{extractor: extractor, verifier: verifier, logger: logger}
}

// VerifyTexts verifies each citation string against the authority. Results
// align with the inputs; unparseable strings come back found=false with an
// explanatory error instead of failing the call. The only error returned is
// context cancellation.
func (tv *TextVerifier) VerifyTexts(ctx context.Context, texts []string) ([]models.VerificationResult, error) {
	out := make([]models.VerificationResult, len(texts))
	var clusters []*models.Cluster
	var sources []int

	for i, raw := range texts {
		text := strings.TrimSpace(raw)
		out[i] = models.VerificationResult{CitationText: text}
		if text == "" {
			out[i].Error = "empty citation text"
			continue
		}
		cits := tv.extractor.Extract(text)
		if len(cits) == 0 {
			out[i].Error = "no recognizable citation"
			continue
		}
		cl := &models.Cluster{
			ID:      fmt.Sprintf("c%d", len(clusters)+1),
			Type:    models.ClusterProximity,
			Members: cits,
		}
		for _, c := range cits {
			c.ClusterID = cl.ID
		}
		clusters = append(clusters, cl)
		sources = append(sources, i)
	}
	if len(clusters) == 0 {
		return out, nil
	}

	// Input order is not document order; the parallel sources index carries
	// results back, so the clusters must never be re-sorted here.
	if _, err := tv.verifier.Verify(ctx, clusters, nil); err != nil {
		return nil, err
	}

	for k, cl := range clusters {
		i := sources[k]
		vm := cl.VerifiedMember()
		if vm == nil {
			continue
		}
		out[i].Found = true
		out[i].CanonicalName = vm.CanonicalName
		out[i].CanonicalDate = vm.CanonicalDate
		out[i].CanonicalURL = vm.CanonicalURL
		out[i].Jurisdiction = vm.JurisdictionHint
		out[i].Source = vm.VerificationSource
	}

	tv.logger.Debug().Int("inputs", len(texts)).Int("recognized", len(clusters)).
		Msg("Citation texts verified")
	return out, nil
}

// VerifyDocument runs the full document pipeline with no job record: the
// stages and result shape match a job run, but progress and terminal state
// have nowhere to land. Serves the CLI one-shot and the MCP verify tool.
func (tv *TextVerifier) VerifyDocument(ctx context.Context, text string) (*models.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	cits := tv.extractor.Extract(text)
	clusters := cluster.Build(cits, text)
	cluster.PropagateContext(clusters)

	if _, err := tv.verifier.Verify(ctx, clusters, nil); err != nil {
		return nil, err
	}

	split := cluster.SplitByCanonical(clusters)
	verify.PropagateParallel(split)
	result := models.BuildResult(split)

	tv.logger.Debug().
		Int("citations", result.Stats.TotalCitations).
		Int("verified", result.Stats.Verified).
		Int("clusters", result.Stats.Clusters).
		Msg("Document verified")
	return result, nil
}

// ExtractDocument runs extraction and clustering only, returning the result
// shape with no verification fields populated. Serves the MCP extract tool.
func (tv *TextVerifier) ExtractDocument(text string) (*models.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	cits := tv.extractor.Extract(text)
	clusters := cluster.Build(cits, text)
	cluster.PropagateContext(clusters)
	return models.BuildResult(clusters), nil
}
