package model

import "math"

// NoteEmbedding pairs a note with its cached embedding. It is the candidate
// unit handed to similarity ranking.
type NoteEmbedding struct {
	Note      *Note
	Embedding *Embedding
}

// SimilarityMatch is a ranked note with its cosine similarity to a query.
// It is recomputed on every call and never persisted.
type SimilarityMatch struct {
	Note       *Note
	Similarity float64
}

// SimilarityPrecision is the number of decimal places kept for display
const SimilarityPrecision = 3

// RoundSimilarity rounds s to SimilarityPrecision decimal places
func RoundSimilarity(s float64) float64 {
	p := math.Pow10(SimilarityPrecision)
	return math.Round(s*p) / p
}
