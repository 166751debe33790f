// Package apierr provides shared error sentinels and retry infrastructure
// for HTTP-based API clients. All provider-specific error types are
// classified into these sentinels at the adapter boundary (spec §4.4, §7).
//
// Providers map HTTP status codes to these errors using fmt.Errorf("%s: %w", msg, sentinel).
// Callers check with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import "errors"

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (transient, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded is an alias classification for billing-related 402/429
	// responses that are not retryable; see ErrInsufficientCredits for the
	// pipeline-level taxonomy name used by spec §7.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrInsufficientCredits indicates the account cannot be billed further.
	// Per spec §4.5/§7, this propagates immediately and aborts the entire
	// pipeline rather than being treated as a per-chunk/per-batch failure.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrTimeout indicates a request timed out (transient, retryable).
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")

	// ErrProviderUnavailable indicates the provider is unreachable or kept
	// failing after retries were exhausted (spec §7).
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrTransient marks an error class callers should retry but never
	// surface to the user directly (spec §7's ProviderTransientFailed).
	ErrTransient = errors.New("transient provider failure")
)

// Transient classifies a sentinel-wrapped error as the transient class
// defined by spec §4.4: network reset/timeout/DNS failure, HTTP 5xx, HTTP
// 429. Non-transient errors must not be retried.
func Transient(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransient)
}
