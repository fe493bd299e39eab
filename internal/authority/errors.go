package authority

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// APIError represents a non-OK response from the authority API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authority API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents the authority's rate-limit signal, either an
// HTTP 429 or a body marker. It trips the circuit breaker.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("authority rate limit exceeded, retry after %v", e.RetryAfter)
}

// IsRateLimit reports whether err carries the authority's rate-limit signal.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsCircuitOpen reports whether the call was short-circuited by the breaker
// instead of reaching the authority.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Unavailable reports whether the authority should not be called again for
// the current job: it rate-limited us or the circuit is open.
func Unavailable(err error) bool {
	return IsRateLimit(err) || IsCircuitOpen(err)
}

// RateLimitMarker reports whether a response body or entry-level error
// message carries the authority's textual rate-limit signal.
func RateLimitMarker(msg string) bool {
	s := strings.ToLower(msg)
	return strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests") ||
		strings.Contains(s, "throttl")
}
