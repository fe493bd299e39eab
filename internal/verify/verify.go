// Package verify fills the canonical fields of extracted citations from the
// authority service. The primary path is batched lookup (up to 50 citations
// per call, a small fixed number of batches in flight); citations the batch
// path leaves unverified fall through to the authority's search endpoint and
// then to configured alternate public sources. Per-citation failures never
// fail a job: the citation simply stays unverified.
package verify

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/shepard/internal/authority"
	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/models"
)

const (
	// DefaultBatchSize matches the authority's per-call citation cap.
	DefaultBatchSize = 50

	// DefaultMaxConcurrentBatches bounds lookup calls in flight. The global
	// rate limiter lives in the client; this only caps parallelism.
	DefaultMaxConcurrentBatches = 4

	// DefaultMaxRetries is how many times a transport-failed batch is
	// resubmitted before its citations go to the fallback path.
	DefaultMaxRetries = 1

	// DefaultBatchTimeout caps one batch call including the limiter wait.
	DefaultBatchTimeout = 60 * time.Second
)

// Authority is the slice of the authority client the verifier consumes.
type Authority interface {
	Lookup(ctx context.Context, citations []string) ([]authority.LookupEntry, error)
	Search(ctx context.Context, query string) ([]authority.SearchResult, error)
	ResolveURL(path string) string
}

// Progress is called as lookup batches finish, with the count completed so
// far and the total number of batches. Callbacks may arrive from concurrent
// goroutines but never after Verify returns.
type Progress func(done, total int)

// Options tunes a Verifier. Zero values take the defaults above.
type Options struct {
	BatchSize            int
	MaxConcurrentBatches int
	MaxRetries           int
	BatchTimeout         time.Duration
	Alternates           []AlternateSource
	HTTPClient           *http.Client // used for alternate-source fetches only
}

// Stats summarizes one Verify run.
type Stats struct {
	Citations    int
	Batches      int
	Verified     int // passed the filter on the batch path
	BySearch     int // passed the filter on the search fallback
	ByAlternate  int // confirmed by an alternate public source
	NotFound     int
	Rejected     int // candidates returned but filtered out
	RateLimited  bool
	mu           sync.Mutex
	rejectByKind map[models.FailureKind]int
}

// RejectedBy returns how many citations were rejected with the given kind.
func (s *Stats) RejectedBy(kind models.FailureKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rejectByKind[kind]
}

func (s *Stats) addReject(kind models.FailureKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectByKind == nil {
		s.rejectByKind = make(map[models.FailureKind]int)
	}
	s.rejectByKind[kind]++
	s.Rejected++
}

func (s *Stats) addVerified(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case source == models.SourceBatchLookup:
		s.Verified++
	case source == models.SourceSearchAPI:
		s.BySearch++
	default:
		s.ByAlternate++
	}
}

func (s *Stats) addNotFound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NotFound++
}

// Verifier runs the verification stage. One instance serves all jobs in the
// process; the shared authority client carries the global rate limiter and
// circuit breaker.
type Verifier struct {
	client        Authority
	logger        arbor.ILogger
	httpClient    *http.Client
	alternates    []AlternateSource
	batchSize     int
	maxConcurrent int
	maxRetries    int
	batchTimeout  time.Duration
}

// New creates a Verifier around an authority client.
func New(client Authority, logger arbor.ILogger, opts Options) *Verifier {
	v := &Verifier{
		client:        client,
		logger:        logger,
		httpClient:    opts.HTTPClient,
		alternates:    opts.Alternates,
		batchSize:     opts.BatchSize,
		maxConcurrent: opts.MaxConcurrentBatches,
		maxRetries:    opts.MaxRetries,
		batchTimeout:  opts.BatchTimeout,
	}
	if v.batchSize <= 0 || v.batchSize > authority.LookupMax {
		v.batchSize = DefaultBatchSize
	}
	if v.maxConcurrent <= 0 {
		v.maxConcurrent = DefaultMaxConcurrentBatches
	}
	if v.maxRetries < 0 {
		v.maxRetries = DefaultMaxRetries
	}
	if v.batchTimeout <= 0 {
		v.batchTimeout = DefaultBatchTimeout
	}
	if v.httpClient == nil {
		v.httpClient = &http.Client{Timeout: authority.DefaultTimeout}
	}
	return v
}

// Batches reports how many lookup calls Verify will make for n citations.
// Exposed so callers can label progress before the first batch returns.
func (v *Verifier) Batches(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + v.batchSize - 1) / v.batchSize
}

// Verify populates canonical fields on cluster members. Clusters come from
// the proximity stage; splitting and parallel propagation happen afterwards,
// in the pipeline. The only error returned is context cancellation:
// verification failures leave citations unverified and are counted in Stats.
func (v *Verifier) Verify(ctx context.Context, clusters []*models.Cluster, progress Progress) (*Stats, error) {
	stats := &Stats{}
	cits := collectCitations(clusters)
	stats.Citations = len(cits)
	if len(cits) == 0 {
		return stats, nil
	}

	batches := partition(cits, v.batchSize)
	stats.Batches = len(batches)

	// One rate-limit signal stops all authority traffic for this job;
	// remaining citations go to the alternate sources or stay unverified.
	var authorityDown atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.maxConcurrent)
	var done atomic.Int32

	for _, batch := range batches {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if !authorityDown.Load() {
				v.lookupBatch(gctx, batch, stats, &authorityDown)
			}
			if progress != nil {
				progress(int(done.Add(1)), len(batches))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	v.runFallbacks(ctx, clusters, stats, &authorityDown)
	stats.RateLimited = authorityDown.Load()
	return stats, ctx.Err()
}

// lookupBatch submits one batch, retrying transport failures, and merges
// accepted candidates into the batch's citations. Batches own disjoint
// citation slices, so concurrent batches never write the same citation.
func (v *Verifier) lookupBatch(ctx context.Context, batch []*models.Citation, stats *Stats, down *atomic.Bool) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	var entries []authority.LookupEntry
	var err error
	for attempt := 0; attempt <= v.maxRetries; attempt++ {
		bctx, cancel := context.WithTimeout(ctx, v.batchTimeout)
		entries, err = v.client.Lookup(bctx, texts)
		cancel()
		if err == nil {
			break
		}
		if authority.Unavailable(err) {
			down.Store(true)
			v.logger.Warn().Err(err).Msg("Authority rate limited, remaining lookups skipped")
			return
		}
		if ctx.Err() != nil {
			return
		}
		v.logger.Warn().Err(err).Int("attempt", attempt+1).Int("citations", len(batch)).
			Msg("Batch lookup failed")
	}
	if err != nil {
		// Exhausted retries; the fallback phase picks these up.
		return
	}

	v.applyEntries(batch, entries, stats, down)
}

// applyEntries walks the response, which the authority returns aligned to
// submission order. Misaligned responses fall back to matching entries by
// citation text.
func (v *Verifier) applyEntries(batch []*models.Citation, entries []authority.LookupEntry, stats *Stats, down *atomic.Bool) {
	aligned := len(entries) == len(batch)
	for i := range entries {
		entry := &entries[i]

		var cit *models.Citation
		if aligned {
			cit = batch[i]
		} else if cit = matchByText(batch, entry.Citation); cit == nil {
			continue
		}

		if entry.RateLimited() {
			down.Store(true)
			continue
		}
		if !entry.Found() {
			stats.addNotFound()
			continue
		}

		cand, fail := acceptCandidate(cit, entry.Clusters)
		if cand == nil {
			stats.addReject(fail.Kind)
			v.logger.Debug().Str("citation", cit.Text).Str("kind", string(fail.Kind)).
				Msg("Candidate rejected")
			continue
		}
		v.assignCanonical(cit, cand, models.SourceBatchLookup)
		stats.addVerified(models.SourceBatchLookup)
	}
}

// runFallbacks works cluster by cluster: a cluster with any verified member
// is covered by parallel propagation, so fallbacks only run for clusters the
// batch path left entirely unverified, and stop at the first success.
func (v *Verifier) runFallbacks(ctx context.Context, clusters []*models.Cluster, stats *Stats, down *atomic.Bool) {
	for _, cl := range clusters {
		if cl.VerifiedMember() != nil {
			continue
		}
		for _, cit := range cl.Members {
			if ctx.Err() != nil {
				return
			}
			if !down.Load() && v.searchFallback(ctx, cit, stats, down) {
				break
			}
			if v.alternateFallback(ctx, cit, stats) {
				break
			}
		}
	}
}

// searchFallback queries the authority's full-text search with the extracted
// name plus the citation string and runs the same acceptance filter over the
// hits. Hits that list our exact citation string are preferred.
func (v *Verifier) searchFallback(ctx context.Context, cit *models.Citation, stats *Stats, down *atomic.Bool) bool {
	query := cit.Text
	if cit.ExtractedCaseName != "" {
		query = cit.ExtractedCaseName + " " + cit.Text
	}

	results, err := v.client.Search(ctx, query)
	if err != nil {
		if authority.Unavailable(err) {
			down.Store(true)
		}
		return false
	}
	if len(results) == 0 {
		return false
	}

	cands := searchCandidates(cit, results)
	cand, fail := acceptCandidate(cit, cands)
	if cand == nil {
		stats.addReject(fail.Kind)
		return false
	}
	v.assignCanonical(cit, cand, models.SourceSearchAPI)
	stats.addVerified(models.SourceSearchAPI)
	return true
}

// searchCandidates converts search hits to candidates. When any hit lists
// the citation among its known citation strings, only those hits survive:
// an exact citation listing beats rank order.
func searchCandidates(cit *models.Citation, results []authority.SearchResult) []authority.CaseCandidate {
	norm := normalizeCitationText(cit.Text)
	var exact, all []authority.CaseCandidate
	for i := range results {
		all = append(all, results[i].CaseCandidate)
		for _, s := range results[i].CitationStrings {
			if normalizeCitationText(s) == norm {
				exact = append(exact, results[i].CaseCandidate)
				break
			}
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return all
}

// assignCanonical merges an accepted candidate into the citation. This is
// the only place authority data reaches citation fields.
func (v *Verifier) assignCanonical(cit *models.Citation, cand *authority.CaseCandidate, source string) {
	cit.CanonicalName = citations.NormalizeCaseName(cand.Name())
	cit.CanonicalDate = cand.DateFiled()
	cit.CanonicalURL = v.client.ResolveURL(cand.URL())
	cit.VerificationSource = source
	cit.Verified = models.VerifiedDirect
}

// collectCitations flattens clusters into document order. Clusters are
// already sorted, members within them too.
func collectCitations(clusters []*models.Cluster) []*models.Citation {
	var cits []*models.Citation
	for _, cl := range clusters {
		cits = append(cits, cl.Members...)
	}
	return cits
}

// partition slices citations into batches of at most size.
func partition(cits []*models.Citation, size int) [][]*models.Citation {
	var batches [][]*models.Citation
	for start := 0; start < len(cits); start += size {
		end := start + size
		if end > len(cits) {
			end = len(cits)
		}
		batches = append(batches, cits[start:end])
	}
	return batches
}

// matchByText finds the batch citation an entry refers to when the response
// is not index-aligned. Comparison ignores whitespace differences.
func matchByText(batch []*models.Citation, text string) *models.Citation {
	norm := normalizeCitationText(text)
	if norm == "" {
		return nil
	}
	for _, c := range batch {
		if normalizeCitationText(c.Text) == norm {
			return c
		}
	}
	return nil
}

func normalizeCitationText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
