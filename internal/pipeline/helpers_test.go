package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/shepard/internal/authority"
	"github.com/ternarybob/shepard/internal/citations"
	"github.com/ternarybob/shepard/internal/interfaces"
	"github.com/ternarybob/shepard/internal/models"
	"github.com/ternarybob/shepard/internal/verify"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// fakeJobs is an in-memory JobService that captures every persisted
// transition, so tests can assert on the exact progress sequence a run
// produced. Semantics mirror the real service: records are cloned at the
// boundary and transitions go through the model methods.
type fakeJobs struct {
	mu       sync.Mutex
	seq      int
	jobs     map[string]*models.Job
	inputs   map[string]string
	enqueued []string
	steps    []string
	pcts     []int

	progressErr error // injected SetProgress failure
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		jobs:   make(map[string]*models.Job),
		inputs: make(map[string]string),
	}
}

func (f *fakeJobs) Create(ctx context.Context, kind models.InputKind, text string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	job := models.NewJob(fmt.Sprintf("job-%d", f.seq), kind, len(text), 24*time.Hour)
	f.jobs[job.ID] = job
	f.inputs[job.ID] = text
	return job.Clone(), nil
}

func (f *fakeJobs) Enqueue(ctx context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, job.ID)
	return nil
}

func (f *fakeJobs) Requeue(ctx context.Context, job *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.jobs[job.ID]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	if cur.IsTerminal() {
		return fmt.Errorf("cannot requeue job %s: already %s", cur.ID, cur.Status)
	}
	cur.Requeue()
	f.enqueued = append(f.enqueued, cur.ID)
	return nil
}

func (f *fakeJobs) Get(ctx context.Context, id string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (f *fakeJobs) InputText(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.inputs[id]
	if !ok {
		return "", fmt.Errorf("no input stored for job %s", id)
	}
	return text, nil
}

func (f *fakeJobs) List(ctx context.Context, opts *interfaces.JobListOptions) ([]*models.Job, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Job
	for _, job := range f.jobs {
		out = append(out, job.Clone())
	}
	return out, len(out), nil
}

func (f *fakeJobs) MarkRunning(ctx context.Context, id string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, interfaces.ErrJobNotFound
	}
	job.MarkRunning()
	return job.Clone(), nil
}

func (f *fakeJobs) SetProgress(ctx context.Context, id string, pct int, step string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return f.progressErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	job.SetProgress(pct, step)
	f.pcts = append(f.pcts, job.ProgressPct)
	f.steps = append(f.steps, step)
	return nil
}

func (f *fakeJobs) Complete(ctx context.Context, id string, result *models.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	job.MarkCompleted(result)
	return nil
}

func (f *fakeJobs) Fail(ctx context.Context, id string, reason string, partial *models.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	job.MarkFailed(reason, partial)
	return nil
}

func (f *fakeJobs) Cancel(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return interfaces.ErrJobNotFound
	}
	if job.IsTerminal() {
		return fmt.Errorf("job %s is already %s", id, job.Status)
	}
	job.CancelRequested = true
	return nil
}

func (f *fakeJobs) CancelRequested(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return false, interfaces.ErrJobNotFound
	}
	return job.CancelRequested, nil
}

func (f *fakeJobs) SweepExpired(ctx context.Context) (int, error) { return 0, nil }

func (f *fakeJobs) FailStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeJobs) enqueuedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.enqueued...)
}

func (f *fakeJobs) stepsSeen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.steps...)
}

func (f *fakeJobs) pctsSeen() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pcts...)
}

// caseData is the canned authority knowledge the stub answers from.
type caseData struct {
	name string
	date string
}

var cannedCases = map[string]caseData{
	"183 Wn.2d 649": {"Lopez Demetrio v. Sakuma Bros. Farms", "2015-07-16"},
	"355 P.3d 258":  {"Lopez Demetrio v. Sakuma Bros. Farms", "2015-07-16"},
	"347 U.S. 483":  {"Brown v. Board of Education", "1954-05-17"},
	"100 Wn.2d 1":   {"Lopez v. Smith", "1983-11-03"},
}

// stubAuthority scripts authority behavior per test. The zero value answers
// every lookup from cannedCases; tests override lookupFn or set block for
// hang-until-cancelled behavior.
type stubAuthority struct {
	mu       sync.Mutex
	lookups  int
	lookupFn func(call int, texts []string) ([]authority.LookupEntry, error)
	searchFn func(query string) ([]authority.SearchResult, error)
	block    chan struct{}
}

func (a *stubAuthority) Lookup(ctx context.Context, texts []string) ([]authority.LookupEntry, error) {
	a.mu.Lock()
	a.lookups++
	call := a.lookups
	fn := a.lookupFn
	block := a.block
	a.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}
	if fn != nil {
		return fn(call, texts)
	}
	return cannedEntries(texts), nil
}

func (a *stubAuthority) Search(ctx context.Context, query string) ([]authority.SearchResult, error) {
	a.mu.Lock()
	fn := a.searchFn
	a.mu.Unlock()
	if fn != nil {
		return fn(query)
	}
	return nil, nil
}

func (a *stubAuthority) ResolveURL(path string) string {
	if strings.HasPrefix(path, "http") {
		return path
	}
	return "https://authority.test" + path
}

func (a *stubAuthority) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lookups
}

// cannedEntries answers a lookup from cannedCases; unknown citations come
// back as authority misses.
func cannedEntries(texts []string) []authority.LookupEntry {
	entries := make([]authority.LookupEntry, len(texts))
	for i, text := range texts {
		entries[i] = authority.LookupEntry{Citation: text, Status: http.StatusNotFound}
		if data, ok := cannedCases[text]; ok {
			entries[i] = authority.LookupEntry{
				Citation: text,
				Status:   http.StatusOK,
				Clusters: []authority.CaseCandidate{{
					NameSnake:  data.name,
					FiledSnake: data.date,
					URLSnake:   "/opinion/" + strings.ReplaceAll(strings.ToLower(data.name), " ", "-") + "/",
				}},
			}
		}
	}
	return entries
}

// harness bundles a pipeline service over the fakes. Verification runs one
// citation per batch, one batch at a time, so batch order is deterministic.
type harness struct {
	svc       *Service
	jobs      *fakeJobs
	authority *stubAuthority
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	extractor, err := citations.NewExtractor()
	require.NoError(t, err)
	jobs := newFakeJobs()
	auth := &stubAuthority{}
	verifier := verify.New(auth, testLogger(), verify.Options{
		BatchSize:            1,
		MaxConcurrentBatches: 1,
	})
	return &harness{
		svc:       NewService(jobs, extractor, verifier, testLogger(), opts),
		jobs:      jobs,
		authority: auth,
	}
}
