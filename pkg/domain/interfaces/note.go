package interfaces

import (
	"context"

	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

// NoteRepository defines read access to clinical notes. Notes are owned by
// the note storage layer; Create exists for seeding and tests.
type NoteRepository interface {
	// Create stores a new note. A zero ID is replaced by an auto-generated one.
	Create(ctx context.Context, note *model.Note) (*model.Note, error)

	// Get retrieves a note by ID. Returns model.ErrNotFound if absent.
	Get(ctx context.Context, id model.NoteID) (*model.Note, error)

	// List retrieves all notes ordered by ID ascending
	List(ctx context.Context) ([]*model.Note, error)
}
