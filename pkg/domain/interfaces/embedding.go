package interfaces

import (
	"context"

	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

// EmbeddingRepository defines the interface for cached note embeddings.
// Only the embedding use case writes through Upsert.
type EmbeddingRepository interface {
	// Get retrieves the embedding of a note. Returns model.ErrNotFound if absent.
	Get(ctx context.Context, noteID model.NoteID) (*model.Embedding, error)

	// Upsert creates or overwrites the single embedding row of a note.
	// The write is all-or-nothing.
	Upsert(ctx context.Context, embedding *model.Embedding) error

	// ListNotesWithEmbeddings returns every note that has an embedding,
	// paired with it, ordered by note ID ascending
	ListNotesWithEmbeddings(ctx context.Context) ([]*model.NoteEmbedding, error)

	// ListNotesWithoutEmbedding returns up to limit notes that have no
	// embedding row, ordered by note ID ascending
	ListNotesWithoutEmbedding(ctx context.Context, limit int) ([]*model.Note, error)

	// ListNotesWithStaleEmbedding returns up to limit notes whose embedding
	// was produced by a model other than currentModel, ordered by note ID ascending
	ListNotesWithStaleEmbedding(ctx context.Context, currentModel string, limit int) ([]*model.Note, error)
}
