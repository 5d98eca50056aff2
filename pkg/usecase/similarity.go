package usecase

import (
	"math"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

// RankOptions controls RankSimilar
type RankOptions struct {
	TopK          int
	MinSimilarity float64
	ExcludeNoteID *model.NoteID
}

// RankSimilar scores candidates against query by cosine similarity and
// returns at most opts.TopK matches with similarity >= opts.MinSimilarity.
//
// Candidates embedded by a model other than queryModel, or whose dimensions
// differ from the query, are never scored. Results are ordered by similarity
// descending, then by note creation time (newest first), then by note ID
// ascending. A candidate whose vector cannot be decoded aborts ranking with
// model.ErrMalformedVector.
func RankSimilar(query []float64, queryModel string, candidates []*model.NoteEmbedding, opts RankOptions) ([]*model.SimilarityMatch, error) {
	matches := make([]*model.SimilarityMatch, 0)
	if opts.TopK <= 0 {
		return matches, nil
	}

	for _, c := range candidates {
		if c == nil || c.Note == nil || c.Embedding == nil {
			continue
		}
		if opts.ExcludeNoteID != nil && c.Note.ID == *opts.ExcludeNoteID {
			continue
		}
		if c.Embedding.Model != queryModel {
			continue
		}
		if c.Embedding.Dimensions != len(query) {
			continue
		}

		vec, err := c.Embedding.Vector()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to decode candidate vector", goerr.V(model.NoteIDKey, c.Note.ID))
		}
		if len(vec) != c.Embedding.Dimensions {
			return nil, goerr.Wrap(model.ErrMalformedVector, "vector length does not match stored dimensions",
				goerr.V(model.NoteIDKey, c.Note.ID),
				goerr.V(model.DimensionsKey, c.Embedding.Dimensions),
				goerr.V("length", len(vec)))
		}

		sim := CosineSimilarity(query, vec)
		if sim < opts.MinSimilarity {
			continue
		}
		matches = append(matches, &model.SimilarityMatch{Note: c.Note, Similarity: sim})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if !a.Note.CreatedAt.Equal(b.Note.CreatedAt) {
			return a.Note.CreatedAt.After(b.Note.CreatedAt)
		}
		return a.Note.ID < b.Note.ID
	})

	if len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}
	return matches, nil
}

// CosineSimilarity returns dot(a,b) / (|a| * |b|) clamped to [-1, 1]. Vectors
// of different length, zero-norm vectors and non-finite results yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, sim))
}
