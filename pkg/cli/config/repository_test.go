package config_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/hygieia/pkg/cli/config"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

func TestRepository_Configure(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "", "").Configure(t.Context())
		gt.NoError(t, err).Required()
		defer func() { _ = repo.Close() }()
		gt.Value(t, repo.Note()).NotNil()
	})

	t.Run("sqlite creates the database file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hygieia.db")
		repo, err := config.NewRepositoryForTest("sqlite", path, "").Configure(t.Context())
		gt.NoError(t, err).Required()
		defer func() { _ = repo.Close() }()

		_, err = repo.Note().Get(t.Context(), model.NoteID(1))
		gt.Bool(t, errors.Is(err, model.ErrNotFound)).True()
	})

	t.Run("firestore requires project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("firestore", "", "").Configure(t.Context())
		gt.Bool(t, errors.Is(err, config.ErrInvalidConfig)).True()
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("postgres", "", "").Configure(t.Context())
		gt.Bool(t, errors.Is(err, config.ErrInvalidConfig)).True()
	})
}
