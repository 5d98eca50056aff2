package usecase_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/usecase"
)

func candidate(id model.NoteID, modelName string, vec []float64) *model.NoteEmbedding {
	return &model.NoteEmbedding{
		Note:      textNote(id, "note"),
		Embedding: model.NewEmbedding(id, modelName, vec, "h"),
	}
}

// unitAt returns a 2D unit vector whose cosine to (1, 0) is sim
func unitAt(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}

func matchIDs(matches []*model.SimilarityMatch) []model.NoteID {
	ids := make([]model.NoteID, len(matches))
	for i, m := range matches {
		ids[i] = m.Note.ID
	}
	return ids
}

func TestRankSimilar(t *testing.T) {
	query := []float64{1, 0}

	t.Run("only candidates of the query model are scored", func(t *testing.T) {
		candidates := []*model.NoteEmbedding{
			candidate(1, "model-a", unitAt(0.9)),
			candidate(2, "model-b", unitAt(0.99)),
			candidate(3, "model-a", unitAt(0.6)),
			candidate(4, "model-b", []float64{1, 0}),
		}

		matches, err := usecase.RankSimilar(query, "model-a", candidates, usecase.RankOptions{TopK: 10, MinSimilarity: -1})
		gt.NoError(t, err).Required()
		gt.Value(t, matchIDs(matches)).Equal([]model.NoteID{1, 3})
	})

	t.Run("matches below threshold never appear", func(t *testing.T) {
		candidates := []*model.NoteEmbedding{
			candidate(1, "m", unitAt(0.3)),
			candidate(2, "m", unitAt(0.55)),
			candidate(3, "m", unitAt(0.8)),
			candidate(4, "m", unitAt(-0.3)),
		}

		matches, err := usecase.RankSimilar(query, "m", candidates, usecase.RankOptions{TopK: 10, MinSimilarity: 0.5})
		gt.NoError(t, err).Required()
		for _, m := range matches {
			gt.Number(t, m.Similarity).GreaterOrEqual(0.5)
		}
		gt.Value(t, matchIDs(matches)).Equal([]model.NoteID{3, 2})
	})

	t.Run("result length is bounded by top_k", func(t *testing.T) {
		var candidates []*model.NoteEmbedding
		for i := 1; i <= 8; i++ {
			candidates = append(candidates, candidate(model.NoteID(i), "m", unitAt(float64(i)/10)))
		}

		matches, err := usecase.RankSimilar(query, "m", candidates, usecase.RankOptions{TopK: 3, MinSimilarity: 0})
		gt.NoError(t, err).Required()
		gt.Value(t, matchIDs(matches)).Equal([]model.NoteID{8, 7, 6})

		matches, err = usecase.RankSimilar(query, "m", candidates, usecase.RankOptions{TopK: 20, MinSimilarity: 0.65})
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(2)
	})

	t.Run("non-positive top_k yields empty result", func(t *testing.T) {
		candidates := []*model.NoteEmbedding{candidate(1, "m", []float64{1, 0})}

		matches, err := usecase.RankSimilar(query, "m", candidates, usecase.RankOptions{TopK: 0})
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(0)
	})

	t.Run("excluded note and dimension mismatch are skipped", func(t *testing.T) {
		exclude := model.NoteID(1)
		candidates := []*model.NoteEmbedding{
			candidate(1, "m", []float64{1, 0}),
			candidate(2, "m", []float64{1, 0, 0}),
			candidate(3, "m", []float64{1, 1}),
		}

		matches, err := usecase.RankSimilar(query, "m", candidates, usecase.RankOptions{TopK: 5, MinSimilarity: 0, ExcludeNoteID: &exclude})
		gt.NoError(t, err).Required()
		gt.Value(t, matchIDs(matches)).Equal([]model.NoteID{3})
	})

	t.Run("zero vector scores zero instead of NaN", func(t *testing.T) {
		candidates := []*model.NoteEmbedding{candidate(1, "m", []float64{0, 0})}

		matches, err := usecase.RankSimilar(query, "m", candidates, usecase.RankOptions{TopK: 5, MinSimilarity: -1})
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(1)
		gt.Value(t, matches[0].Similarity).Equal(0.0)

		matches, err = usecase.RankSimilar([]float64{0, 0}, "m", []*model.NoteEmbedding{candidate(2, "m", []float64{1, 0})}, usecase.RankOptions{TopK: 5, MinSimilarity: 0})
		gt.NoError(t, err).Required()
		gt.Value(t, matches[0].Similarity).Equal(0.0)
	})

	t.Run("malformed vector is a hard error", func(t *testing.T) {
		broken := candidate(1, "m", []float64{1, 0})
		broken.Embedding.Data = broken.Embedding.Data[:15]

		_, err := usecase.RankSimilar(query, "m", []*model.NoteEmbedding{broken}, usecase.RankOptions{TopK: 5})
		gt.Value(t, err).NotNil()
		gt.Bool(t, errors.Is(err, model.ErrMalformedVector)).True()
	})

	t.Run("ties prefer newest note then lowest ID", func(t *testing.T) {
		older := candidate(1, "m", []float64{2, 0})
		newer := candidate(2, "m", []float64{3, 0})
		sameTimeA := candidate(4, "m", []float64{1, 0})
		sameTimeB := candidate(3, "m", []float64{5, 0})

		base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		older.Note.CreatedAt = base
		newer.Note.CreatedAt = base.Add(time.Hour)
		sameTimeA.Note.CreatedAt = base.Add(-time.Hour)
		sameTimeB.Note.CreatedAt = base.Add(-time.Hour)

		matches, err := usecase.RankSimilar(query, "m",
			[]*model.NoteEmbedding{sameTimeA, older, sameTimeB, newer},
			usecase.RankOptions{TopK: 10, MinSimilarity: 0})
		gt.NoError(t, err).Required()
		gt.Value(t, matchIDs(matches)).Equal([]model.NoteID{2, 1, 3, 4})
	})
}

func TestCosineSimilarity(t *testing.T) {
	gt.Value(t, usecase.CosineSimilarity([]float64{1, 0}, []float64{1, 0})).Equal(1.0)
	gt.Value(t, usecase.CosineSimilarity([]float64{1, 0}, []float64{-1, 0})).Equal(-1.0)
	gt.Value(t, usecase.CosineSimilarity([]float64{1, 0}, []float64{0, 1})).Equal(0.0)
	gt.Value(t, usecase.CosineSimilarity([]float64{1, 0}, []float64{1})).Equal(0.0)
	gt.Value(t, usecase.CosineSimilarity([]float64{math.NaN(), 1}, []float64{1, 1})).Equal(0.0)
	gt.Value(t, usecase.CosineSimilarity(nil, nil)).Equal(0.0)
}
