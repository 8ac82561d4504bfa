package ai

import "errors"

var (
	// ErrProviderUnavailable marks transient network, auth, or server-side
	// failures of the model provider. Retried with backoff before surfacing.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderRateLimited marks 429 responses. Retried honoring the
	// provider's Retry-After hint when present.
	ErrProviderRateLimited = errors.New("provider rate limited")

	// ErrEmbeddingFailed is terminal: embedding retries are exhausted or the
	// response is unusable. Nothing partial may be persisted after it.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrGenerationFailed is terminal for the generation side, kept distinct
	// from embedding failures so metrics can attribute the stage.
	ErrGenerationFailed = errors.New("generation failed")
)
