package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

func TestEmbedding_IsValidFor(t *testing.T) {
	hash := model.NewContentHash("fever and cough for 3 days")
	emb := model.NewEmbedding(1, "text-embedding-004", []float64{0.1, 0.2, 0.3}, hash)

	t.Run("matching hash and model", func(t *testing.T) {
		gt.B(t, emb.IsValidFor(hash, "text-embedding-004")).True()
	})

	t.Run("changed text", func(t *testing.T) {
		gt.B(t, emb.IsValidFor(model.NewContentHash("fever"), "text-embedding-004")).False()
	})

	t.Run("changed model", func(t *testing.T) {
		gt.B(t, emb.IsValidFor(hash, "text-embedding-005")).False()
	})
}

func TestNewEmbedding(t *testing.T) {
	vec := []float64{0.5, -0.5, 1}
	emb := model.NewEmbedding(42, "m1", vec, "h")

	gt.Value(t, emb.NoteID).Equal(model.NoteID(42))
	gt.Value(t, emb.Dimensions).Equal(3)

	decoded, err := emb.Vector()
	gt.NoError(t, err).Required()
	gt.Value(t, decoded).Equal(vec)

	cloned := emb.Clone()
	cloned.Data[0] = 0xff
	gt.Value(t, emb.Data[0]).NotEqual(byte(0xff))
}

func TestRoundSimilarity(t *testing.T) {
	gt.Value(t, model.RoundSimilarity(0.87654)).Equal(0.877)
	gt.Value(t, model.RoundSimilarity(-0.12341)).Equal(-0.123)
	gt.Value(t, model.RoundSimilarity(1)).Equal(1.0)
}

func TestParseNoteID(t *testing.T) {
	id, err := model.ParseNoteID("123")
	gt.NoError(t, err).Required()
	gt.Value(t, id).Equal(model.NoteID(123))
	gt.String(t, id.String()).Equal("123")

	_, err = model.ParseNoteID("abc")
	gt.Value(t, err).NotNil()
}
