package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

func TestNewContentHash(t *testing.T) {
	t.Run("same text yields same hash", func(t *testing.T) {
		text := "Chief complaint: chest pain radiating to left arm"
		gt.Value(t, model.NewContentHash(text)).Equal(model.NewContentHash(text))
	})

	t.Run("single byte difference changes hash", func(t *testing.T) {
		a := model.NewContentHash("troponin 0.04")
		b := model.NewContentHash("troponin 0.05")
		gt.Value(t, a).NotEqual(b)
	})

	t.Run("trailing whitespace is significant", func(t *testing.T) {
		gt.Value(t, model.NewContentHash("note")).NotEqual(model.NewContentHash("note "))
	})

	t.Run("hex encoded sha256", func(t *testing.T) {
		h := model.NewContentHash("")
		gt.String(t, h.String()).Equal("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")
	})
}
