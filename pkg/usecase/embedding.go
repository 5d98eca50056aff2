package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/interfaces"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/service/embedder"
	"github.com/secmon-lab/hygieia/pkg/service/notetext"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
)

// EmbeddingUseCase owns the embedding cache. It is the only writer of
// embedding rows.
type EmbeddingUseCase struct {
	repo      interfaces.Repository
	embedder  embedder.Service
	extractor notetext.Extractor
	locks     *keyedMutex
}

// EnsureResult is the outcome of Ensure
type EnsureResult struct {
	Vector      []float64
	Model       string
	Dimensions  int
	ContentHash model.ContentHash
	// Skipped is true when the cached row was reused without calling the embedder
	Skipped bool
}

func NewEmbeddingUseCase(repo interfaces.Repository, embedderService embedder.Service, extractor notetext.Extractor) *EmbeddingUseCase {
	return &EmbeddingUseCase{
		repo:      repo,
		embedder:  embedderService,
		extractor: extractor,
		locks:     newKeyedMutex(),
	}
}

// Model returns the identifier of the configured embedding model
func (uc *EmbeddingUseCase) Model() string {
	return uc.embedder.Model()
}

// Get returns the cached embedding of a note without validating it
func (uc *EmbeddingUseCase) Get(ctx context.Context, noteID model.NoteID) (*model.Embedding, error) {
	emb, err := uc.repo.Embedding().Get(ctx, noteID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get embedding", goerr.V(model.NoteIDKey, noteID))
	}
	return emb, nil
}

// EnsureByID loads the note and calls Ensure
func (uc *EmbeddingUseCase) EnsureByID(ctx context.Context, noteID model.NoteID, force bool) (*EnsureResult, error) {
	note, err := uc.repo.Note().Get(ctx, noteID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get note", goerr.V(model.NoteIDKey, noteID))
	}
	return uc.Ensure(ctx, note, force)
}

// Ensure returns a valid embedding for the note. A cached row is reused when
// its content hash and model both match and force is false; otherwise a new
// vector is generated and the row is overwritten. On failure the previous row
// is left untouched.
func (uc *EmbeddingUseCase) Ensure(ctx context.Context, note *model.Note, force bool) (*EnsureResult, error) {
	if note == nil {
		return nil, goerr.Wrap(ErrValidation, "note is required")
	}

	text := uc.extractor.ExtractText(note)
	if text == "" {
		return nil, goerr.Wrap(ErrValidation, "note has no text to embed", goerr.V(model.NoteIDKey, note.ID))
	}
	hash := model.NewContentHash(text)
	currentModel := uc.embedder.Model()

	unlock, err := uc.locks.lock(ctx, note.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "waiting for embedding lock", goerr.V(model.NoteIDKey, note.ID))
	}
	defer unlock()

	if !force {
		cached, err := uc.repo.Embedding().Get(ctx, note.ID)
		switch {
		case err == nil && cached.IsValidFor(hash, currentModel):
			vec, err := cached.Vector()
			if err != nil {
				return nil, goerr.Wrap(err, "cached embedding is corrupted", goerr.V(model.NoteIDKey, note.ID))
			}
			return &EnsureResult{
				Vector:      vec,
				Model:       cached.Model,
				Dimensions:  cached.Dimensions,
				ContentHash: cached.ContentHash,
				Skipped:     true,
			}, nil

		case err != nil && !errors.Is(err, model.ErrNotFound):
			return nil, goerr.Wrap(err, "failed to get cached embedding", goerr.V(model.NoteIDKey, note.ID))
		}
	}

	res, err := uc.generate(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed note", goerr.V(model.NoteIDKey, note.ID))
	}

	// A cancelled caller must not leave a row it no longer waits for.
	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "cancelled before storing embedding", goerr.V(model.NoteIDKey, note.ID))
	}

	row := model.NewEmbedding(note.ID, res.Model, res.Vector, hash)
	if err := uc.repo.Embedding().Upsert(ctx, row); err != nil {
		return nil, goerr.Wrap(err, "failed to store embedding", goerr.V(model.NoteIDKey, note.ID))
	}

	logging.From(ctx).Debug("embedding stored",
		"note_id", note.ID,
		"model", res.Model,
		"dimensions", res.Dimensions,
	)

	return &EnsureResult{
		Vector:      res.Vector,
		Model:       res.Model,
		Dimensions:  res.Dimensions,
		ContentHash: hash,
		Skipped:     false,
	}, nil
}

// EmbedText embeds free text without touching the cache
func (uc *EmbeddingUseCase) EmbedText(ctx context.Context, text string) (*embedder.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.Wrap(ErrValidation, "query text is empty")
	}
	return uc.generate(ctx, text)
}

func (uc *EmbeddingUseCase) generate(ctx context.Context, text string) (*embedder.Result, error) {
	res, err := uc.embedder.Embed(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(withKind(ErrEmbeddingGenerationFailed, err), "embedder returned error", goerr.V(model.ModelKey, uc.embedder.Model()))
	}
	if res == nil || len(res.Vector) == 0 || res.Dimensions != len(res.Vector) {
		return nil, goerr.Wrap(ErrEmbeddingGenerationFailed, "embedder returned inconsistent vector",
			goerr.V(model.ModelKey, uc.embedder.Model()))
	}
	return res, nil
}
