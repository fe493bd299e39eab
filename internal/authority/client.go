package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the authority API.
	DefaultBaseURL = "https://www.courtlistener.com/api/rest/v4"

	// DefaultTimeout is the default per-request HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultRateLimitPerMin is the default request budget per minute.
	DefaultRateLimitPerMin = 180

	// DefaultBurst is the default token bucket burst capacity.
	DefaultBurst = 50

	// DefaultBreakerCooldown is how long the circuit stays open after the
	// authority signals a rate limit.
	DefaultBreakerCooldown = 5 * time.Minute

	// LookupMax is the hard cap on citations per batch lookup call.
	LookupMax = 50

	// Responses larger than this are cut off rather than buffered.
	maxResponseBytes = 4 << 20
)

// Client is an authority API client. One instance is shared process-wide so
// that its rate limiter and circuit breaker are global across all jobs.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRequestTimeout sets the per-request timeout on the HTTP client.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the global request budget. The bucket refills at
// requestsPerMin/60 per second and holds at most burst tokens.
func WithRateLimit(requestsPerMin, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60.0), burst)
	}
}

// WithBreakerCooldown sets how long the circuit stays open after a
// rate-limit response.
func WithBreakerCooldown(cooldown time.Duration) ClientOption {
	return func(c *Client) {
		c.breaker = newBreaker(cooldown)
	}
}

// NewClient creates a new authority API client. An empty apiKey sends
// unauthenticated requests.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(DefaultRateLimitPerMin)/60.0), DefaultBurst),
		breaker: newBreaker(DefaultBreakerCooldown),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// newBreaker builds the rate-limit circuit. Only rate-limit errors count as
// failures; a single one opens the circuit for the cooldown, after which one
// probe request is allowed through.
func newBreaker(cooldown time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "authority",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		IsSuccessful: func(err error) bool {
			return !IsRateLimit(err)
		},
	})
}

// Lookup submits up to LookupMax citation strings to the batch lookup
// endpoint and returns the entries in submission order.
func (c *Client) Lookup(ctx context.Context, citations []string) ([]LookupEntry, error) {
	if len(citations) == 0 {
		return nil, nil
	}
	if len(citations) > LookupMax {
		return nil, fmt.Errorf("batch lookup accepts at most %d citations, got %d", LookupMax, len(citations))
	}

	form := url.Values{}
	form.Set("text", strings.Join(citations, "\n"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/citation-lookup/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.authorize(req)

	if c.logger != nil {
		c.logger.Debug().
			Int("citations", len(citations)).
			Msg("Authority batch lookup")
	}

	var entries []LookupEntry
	if err := c.do(ctx, req, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Search queries the authority's full-text search endpoint and returns the
// ranked case candidates.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "o")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	if c.logger != nil {
		c.logger.Debug().
			Str("query", query).
			Msg("Authority search")
	}

	var result searchResponse
	if err := c.do(ctx, req, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// ResolveURL absolutizes a candidate URL against the authority host.
// Candidates usually carry root-relative paths ("/opinion/123/...").
func (c *Client) ResolveURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	base, err := url.Parse(c.baseURL)
	if err != nil || base.Host == "" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base.Scheme + "://" + base.Host + path
}

// BreakerState reports the circuit state ("closed", "half-open", "open")
// for the status endpoint.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}
}

// do runs one request through the breaker and the rate limiter. The state
// check up front keeps callers from blocking on the limiter only to be
// short-circuited anyway.
func (c *Client) do(ctx context.Context, req *http.Request, result interface{}) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("authority unavailable: %w", gobreaker.ErrOpenState)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.send(req, result)
	})
	return err
}

func (c *Client) send(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("authority request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("authority response read failed: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode != http.StatusOK {
		if RateLimitMarker(string(body)) {
			return &RateLimitError{RetryAfter: retryAfter(resp)}
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    truncate(string(body), 512),
			Endpoint:   req.URL.Path,
		}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("authority response decode failed: %w", err)
	}
	return nil
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
