// ABOUTME: Domain-level sentinel errors for the rss-digest service
// ABOUTME: These errors are used with errors.Is() for error type checking
package domain

import "errors"

// Not-found errors
var (
	// ErrFeedNotFound indicates the requested feed does not exist
	ErrFeedNotFound = errors.New("feed not found")

	// ErrArticleNotFound indicates the requested article does not exist
	ErrArticleNotFound = errors.New("article not found")

	// ErrDigestNotFound indicates the requested digest does not exist
	ErrDigestNotFound = errors.New("digest not found")

	// ErrRuleNotFound indicates the requested digest rule does not exist
	ErrRuleNotFound = errors.New("digest rule not found")

	// ErrProviderNotFound indicates the requested provider does not exist
	ErrProviderNotFound = errors.New("provider not found")
)

// Digest generation errors
var (
	// ErrNoArticles indicates the selection window matched no articles.
	// Generation is a no-op; no digest record is written.
	ErrNoArticles = errors.New("no articles in the selected window")

	// ErrEmptyCompletion indicates the provider returned a well-formed but
	// empty response. Triggers the extractive fallback.
	ErrEmptyCompletion = errors.New("provider returned empty completion")
)

// Provider call errors
var (
	// ErrMissingCredential indicates neither an override nor a stored API
	// key is available. Surfaced immediately, never retried.
	ErrMissingCredential = errors.New("no API key available for provider")

	// ErrProviderAuth indicates the vendor rejected the credential.
	// Fatal for the call; not retried with the same key.
	ErrProviderAuth = errors.New("provider rejected credentials")

	// ErrProviderRateLimited indicates the vendor returned 429.
	// Retried with backoff up to a bounded attempt count.
	ErrProviderRateLimited = errors.New("provider rate limit exceeded")

	// ErrProviderUnavailable indicates a network-level failure reaching the
	// vendor. Handled like rate limiting.
	ErrProviderUnavailable = errors.New("provider unreachable")

	// ErrUnsupportedOperation indicates the vendor adapter has no such
	// capability (e.g. embeddings on a chat-only vendor).
	ErrUnsupportedOperation = errors.New("operation not supported by provider")

	// ErrUnknownProviderType indicates an unrecognized provider_type value
	ErrUnknownProviderType = errors.New("unknown provider type")
)

// Validation errors
var (
	// ErrInvalidRequest indicates the request format is invalid
	ErrInvalidRequest = errors.New("invalid request format")
)

// TransientProviderError reports whether err is worth retrying against the
// same provider before falling back.
func TransientProviderError(err error) bool {
	return errors.Is(err, ErrProviderRateLimited) || errors.Is(err, ErrProviderUnavailable)
}
