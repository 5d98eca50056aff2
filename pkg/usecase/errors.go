package usecase

import (
	"errors"
	"fmt"
)

// Sentinel errors for use case layer
var (
	// Input errors
	ErrValidation = errors.New("validation error")

	// External collaborator errors
	ErrEmbeddingGenerationFailed = errors.New("embedding generation failed")
	ErrSummarizationFailed       = errors.New("summarization failed")
	ErrSynthesisFailed           = errors.New("synthesis failed")
)

// Context keys for error values
const (
	RetrievalIDKey   = "retrieval_id"
	TopKKey          = "top_k"
	MinSimilarityKey = "min_similarity"
	LimitKey         = "limit"
)

// withKind tags err with a sentinel while keeping the cause reachable by errors.Is
func withKind(kind, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}
