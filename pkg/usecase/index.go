package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/interfaces"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/utils/logging"
)

const (
	DefaultIndexLimit = 100
	MaxIndexLimit     = 1000
)

// IndexInput selects the notes of a batch run
type IndexInput struct {
	// ReembedAll also selects notes embedded with a model other than the current one
	ReembedAll bool
	// Limit caps the number of candidates. Zero means DefaultIndexLimit.
	Limit int
}

// IndexErrorDetail records a failed note of a batch run
type IndexErrorDetail struct {
	NoteID  model.NoteID
	Message string
}

// IndexResult is the tally of a batch run. Processed + Skipped + Errors
// equals the number of attempted candidates.
type IndexResult struct {
	Processed    int
	Skipped      int
	Errors       int
	ErrorDetails []IndexErrorDetail
}

// Total returns the number of attempted candidates
func (r *IndexResult) Total() int {
	return r.Processed + r.Skipped + r.Errors
}

type IndexUseCase struct {
	repo      interfaces.Repository
	embedding *EmbeddingUseCase
}

func NewIndexUseCase(repo interfaces.Repository, embedding *EmbeddingUseCase) *IndexUseCase {
	return &IndexUseCase{
		repo:      repo,
		embedding: embedding,
	}
}

func normalizeIndexLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultIndexLimit, nil
	case limit < 0 || limit > MaxIndexLimit:
		return 0, goerr.Wrap(ErrValidation, "limit is out of range",
			goerr.V(LimitKey, limit), goerr.V("max", MaxIndexLimit))
	default:
		return limit, nil
	}
}

// Run embeds notes that have no embedding and, with ReembedAll, notes whose
// embedding is from another model. A failing note is recorded and the run
// continues. Only a failure to list candidates fails the whole run. When ctx
// is cancelled the run stops before the next note and returns the partial
// tally with the context error.
func (uc *IndexUseCase) Run(ctx context.Context, input IndexInput) (*IndexResult, error) {
	limit, err := normalizeIndexLimit(input.Limit)
	if err != nil {
		return nil, err
	}

	candidates, err := uc.selectCandidates(ctx, input.ReembedAll, limit)
	if err != nil {
		return nil, err
	}

	logger := logging.From(ctx)
	logger.Info("index run started",
		"candidates", len(candidates),
		"reembed_all", input.ReembedAll,
		"model", uc.embedding.Model(),
	)

	result := &IndexResult{ErrorDetails: []IndexErrorDetail{}}
	for _, note := range candidates {
		if err := ctx.Err(); err != nil {
			return result, goerr.Wrap(err, "index run cancelled",
				goerr.V("processed", result.Processed),
				goerr.V("skipped", result.Skipped),
				goerr.V("errors", result.Errors))
		}

		res, err := uc.embedding.Ensure(ctx, note, false)
		if err != nil {
			result.Errors++
			result.ErrorDetails = append(result.ErrorDetails, IndexErrorDetail{
				NoteID:  note.ID,
				Message: err.Error(),
			})
			// notes without text fail on every run; keep them out of warnings
			if errors.Is(err, ErrValidation) {
				logger.Debug("note cannot be indexed", "note_id", note.ID, "error", err.Error())
			} else {
				logger.Warn("failed to index note", "note_id", note.ID, "error", err.Error())
			}
			continue
		}

		if res.Skipped {
			result.Skipped++
		} else {
			result.Processed++
		}
	}

	logger.Info("index run completed",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"errors", result.Errors,
	)
	return result, nil
}

// selectCandidates returns notes without embedding followed by, if
// reembedAll, notes with a stale model, deduplicated and capped at limit
func (uc *IndexUseCase) selectCandidates(ctx context.Context, reembedAll bool, limit int) ([]*model.Note, error) {
	missing, err := uc.repo.Embedding().ListNotesWithoutEmbedding(ctx, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes without embedding")
	}

	candidates := make([]*model.Note, 0, len(missing))
	seen := make(map[model.NoteID]struct{}, len(missing))
	add := func(notes []*model.Note) {
		for _, n := range notes {
			if len(candidates) >= limit {
				return
			}
			if _, ok := seen[n.ID]; ok {
				continue
			}
			seen[n.ID] = struct{}{}
			candidates = append(candidates, n)
		}
	}

	add(missing)
	if !reembedAll || len(candidates) >= limit {
		return candidates, nil
	}

	stale, err := uc.repo.Embedding().ListNotesWithStaleEmbedding(ctx, uc.embedding.Model(), limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes with stale embedding", goerr.V(model.ModelKey, uc.embedding.Model()))
	}
	add(stale)

	return candidates, nil
}
