package authority

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSubmitsFormAndParsesSnakeCase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/citation-lookup/", r.URL.Path)
		assert.Equal(t, "Token test-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "183 Wn.2d 649\n355 P.3d 258", r.PostForm.Get("text"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"citation": "183 Wn.2d 649",
				"normalized_citations": ["183 Wash. 2d 649"],
				"status": 200,
				"clusters": [
					{
						"case_name": "Lopez Demetrio v. Sakuma Brothers Farms, Inc.",
						"date_filed": "2015-07-16",
						"absolute_url": "/opinion/1/lopez/",
						"court": "Washington Supreme Court"
					}
				]
			},
			{
				"citation": "355 P.3d 258",
				"status": 404,
				"error_message": "citation not found"
			}
		]`))
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	entries, err := client.Lookup(context.Background(), []string{"183 Wn.2d 649", "355 P.3d 258"})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.True(t, first.Found())
	assert.Equal(t, []string{"183 Wash. 2d 649"}, first.Normalized())
	require.Len(t, first.Clusters, 1)

	cand := first.Clusters[0]
	assert.Equal(t, "Lopez Demetrio v. Sakuma Brothers Farms, Inc.", cand.Name())
	assert.Equal(t, "2015-07-16", cand.DateFiled())
	assert.Equal(t, "/opinion/1/lopez/", cand.URL())
	assert.Equal(t, 2015, cand.Year())
	assert.Contains(t, cand.CourtString(), "Washington")

	second := entries[1]
	assert.False(t, second.Found())
	assert.False(t, second.RateLimited())
	assert.Equal(t, "citation not found", second.Message())
}

func TestLookupParsesCamelCase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"citation": "2017-NM-007",
				"normalizedCitations": ["2017-NM-007"],
				"status": 200,
				"clusters": [
					{
						"caseName": "Hamaatsa, Inc. v. Pueblo of San Felipe",
						"dateFiled": "2016-12-08",
						"absoluteUrl": "/opinion/2/hamaatsa/",
						"courtId": "nm",
						"jurisdiction": "New Mexico"
					}
				]
			}
		]`))
	}))
	defer server.Close()

	client := NewClient("", WithBaseURL(server.URL))
	entries, err := client.Lookup(context.Background(), []string{"2017-NM-007"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, entries[0].Found())

	cand := entries[0].Clusters[0]
	assert.Equal(t, "Hamaatsa, Inc. v. Pueblo of San Felipe", cand.Name())
	assert.Equal(t, "2016-12-08", cand.DateFiled())
	assert.Equal(t, "/opinion/2/hamaatsa/", cand.URL())
	assert.Equal(t, 2016, cand.Year())
	assert.Contains(t, cand.CourtString(), "New Mexico")
	assert.Equal(t, []string{"2017-NM-007"}, entries[0].Normalized())
}

func TestLookupBatchCapAndEmptyInput(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient("", WithBaseURL(server.URL))

	oversized := make([]string, LookupMax+1)
	for i := range oversized {
		oversized[i] = "1 U.S. 1"
	}
	_, err := client.Lookup(context.Background(), oversized)
	require.Error(t, err)

	entries, err := client.Lookup(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, entries)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "neither call may reach the server")
}

func TestLookupRateLimitOpensCircuit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("", WithBaseURL(server.URL))

	_, err := client.Lookup(context.Background(), []string{"183 Wn.2d 649"})
	require.Error(t, err)
	assert.True(t, IsRateLimit(err))
	assert.True(t, Unavailable(err))

	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)

	// The second call must short-circuit without touching the server.
	_, err = client.Lookup(context.Background(), []string{"183 Wn.2d 649"})
	require.Error(t, err)
	assert.True(t, IsCircuitOpen(err))
	assert.False(t, IsRateLimit(err))
	assert.True(t, Unavailable(err))

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLookupRateLimitBodyMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("too many requests from this token"))
	}))
	defer server.Close()

	client := NewClient("", WithBaseURL(server.URL))
	_, err := client.Lookup(context.Background(), []string{"183 Wn.2d 649"})
	require.Error(t, err)
	assert.True(t, IsRateLimit(err))
}

func TestServerErrorDoesNotTripCircuit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("upstream database down"))
	}))
	defer server.Close()

	client := NewClient("", WithBaseURL(server.URL))

	for i := 0; i < 2; i++ {
		_, err := client.Lookup(context.Background(), []string{"183 Wn.2d 649"})
		require.Error(t, err)
		assert.False(t, Unavailable(err))

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		assert.Equal(t, "/citation-lookup/", apiErr.Endpoint)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "non-rate-limit failures must not open the circuit")
}

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search/", r.URL.Path)
		assert.Equal(t, "Hamaatsa, Inc. v. Pueblo of San Felipe 2017-NM-007", r.URL.Query().Get("q"))
		assert.Equal(t, "o", r.URL.Query().Get("type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"count": 1,
			"results": [
				{
					"caseName": "Hamaatsa, Inc. v. Pueblo of San Felipe",
					"dateFiled": "2016-12-08",
					"absoluteUrl": "/opinion/2/hamaatsa/",
					"court": "New Mexico Supreme Court",
					"citation": ["2017-NM-007", "388 P.3d 977"]
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient("", WithBaseURL(server.URL))
	results, err := client.Search(context.Background(), "Hamaatsa, Inc. v. Pueblo of San Felipe 2017-NM-007")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Hamaatsa, Inc. v. Pueblo of San Felipe", results[0].Name())
	assert.Equal(t, 2016, results[0].Year())
	assert.Contains(t, results[0].CitationStrings, "388 P.3d 977")
}

func TestRateLimitMarker(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Rate limit exceeded", true},
		{"request was throttled, expected available in 42 seconds", true},
		{"Too Many Requests", true},
		{"citation not found", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, RateLimitMarker(tt.msg), "marker %q", tt.msg)
	}
}

func TestLookupEntryHelpers(t *testing.T) {
	entry := LookupEntry{
		Status:     http.StatusOK,
		ErrorSnake: "snake wins",
		ErrorCamel: "camel loses",
	}
	assert.Equal(t, "snake wins", entry.Message())
	assert.False(t, entry.Found(), "status 200 without clusters is not a match")

	entry.Clusters = []CaseCandidate{{NameSnake: "Lopez v. Smith"}}
	assert.True(t, entry.Found())

	notFound := LookupEntry{Status: http.StatusNotFound, Clusters: []CaseCandidate{{}}}
	assert.False(t, notFound.Found())

	throttled := LookupEntry{Status: http.StatusOK, ErrorCamel: "request was throttled"}
	assert.True(t, throttled.RateLimited())

	hard := LookupEntry{Status: http.StatusTooManyRequests}
	assert.True(t, hard.RateLimited())
}

func TestCandidateYearMalformed(t *testing.T) {
	assert.Equal(t, 0, (&CaseCandidate{}).Year())
	assert.Equal(t, 0, (&CaseCandidate{FiledSnake: "n/a"}).Year())
	assert.Equal(t, 1991, (&CaseCandidate{FiledCamel: "1991-01-10"}).Year())
	assert.Equal(t, 2015, (&CaseCandidate{FiledSnake: "2015"}).Year())
}
