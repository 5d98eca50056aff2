package embedder

import "context"

// Service generates embedding vectors for free text
type Service interface {
	// Embed returns the vector of text. The returned Model is the identifier
	// stored alongside the vector for cache validation.
	Embed(ctx context.Context, text string) (*Result, error)

	// Model returns the identifier of the currently configured model
	Model() string
}

// Result is a generated embedding
type Result struct {
	Vector     []float64
	Model      string
	Dimensions int
}
