package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

type embeddingRepository struct {
	store *Memory
}

func (r *embeddingRepository) Get(ctx context.Context, noteID model.NoteID) (*model.Embedding, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	emb, exists := r.store.embeddings[noteID]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "embedding not found", goerr.V(model.NoteIDKey, noteID))
	}
	return emb.Clone(), nil
}

func (r *embeddingRepository) Upsert(ctx context.Context, embedding *model.Embedding) error {
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "upsert cancelled", goerr.V(model.NoteIDKey, embedding.NoteID))
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.notes[embedding.NoteID]; !exists {
		return goerr.Wrap(model.ErrNotFound, "note not found", goerr.V(model.NoteIDKey, embedding.NoteID))
	}

	now := time.Now().UTC()
	row := embedding.Clone()
	row.CreatedAt = now
	if prev, exists := r.store.embeddings[embedding.NoteID]; exists {
		row.CreatedAt = prev.CreatedAt
	}
	row.UpdatedAt = now

	r.store.embeddings[embedding.NoteID] = row
	return nil
}

func (r *embeddingRepository) ListNotesWithEmbeddings(ctx context.Context) ([]*model.NoteEmbedding, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]*model.NoteEmbedding, 0, len(r.store.embeddings))
	for noteID, emb := range r.store.embeddings {
		note, exists := r.store.notes[noteID]
		if !exists {
			continue
		}
		result = append(result, &model.NoteEmbedding{
			Note:      note.Clone(),
			Embedding: emb.Clone(),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Note.ID < result[j].Note.ID
	})
	return result, nil
}

func (r *embeddingRepository) ListNotesWithoutEmbedding(ctx context.Context, limit int) ([]*model.Note, error) {
	return r.listNotes(limit, func(emb *model.Embedding) bool {
		return emb == nil
	}), nil
}

func (r *embeddingRepository) ListNotesWithStaleEmbedding(ctx context.Context, currentModel string, limit int) ([]*model.Note, error) {
	return r.listNotes(limit, func(emb *model.Embedding) bool {
		return emb != nil && emb.Model != currentModel
	}), nil
}

func (r *embeddingRepository) listNotes(limit int, match func(emb *model.Embedding) bool) []*model.Note {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*model.Note
	for _, note := range r.store.notes {
		if match(r.store.embeddings[note.ID]) {
			result = append(result, note.Clone())
		}
	}
	sortNotes(result)

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	if result == nil {
		result = []*model.Note{}
	}
	return result
}
