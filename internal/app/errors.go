package app

import (
	"context"
	"errors"

	"pdfchat/internal/ai"
)

var (
	// ErrInvalidRequest marks bad caller input. No side effects beyond the
	// logged query event.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStorageFailure marks vector index or conversation store I/O errors
	// surfaced as the request's terminal failure.
	ErrStorageFailure = errors.New("storage failure")
)

// Stable failure-kind identifiers recorded in query events and returned to
// callers in place of raw internal errors.
const (
	KindInvalidRequest      = "InvalidRequest"
	KindProviderUnavailable = "ProviderUnavailable"
	KindProviderRateLimited = "ProviderRateLimited"
	KindEmbeddingFailed     = "EmbeddingFailed"
	KindGenerationFailed    = "GenerationFailed"
	KindStorageFailure      = "StorageFailure"
	KindCancelled           = "Cancelled"
	KindInternal            = "Internal"
)

// FailureKind maps an error to its stable identifier. Terminal provider
// kinds win over the transient causes they wrap.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ai.ErrEmbeddingFailed):
		return KindEmbeddingFailed
	case errors.Is(err, ai.ErrGenerationFailed):
		return KindGenerationFailed
	case errors.Is(err, ai.ErrProviderRateLimited):
		return KindProviderRateLimited
	case errors.Is(err, ai.ErrProviderUnavailable):
		return KindProviderUnavailable
	case errors.Is(err, ErrStorageFailure):
		return KindStorageFailure
	default:
		return KindInternal
	}
}
