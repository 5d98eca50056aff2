package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

type noteRepository struct {
	store *Memory
}

func (r *noteRepository) Create(ctx context.Context, note *model.Note) (*model.Note, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	created := note.Clone()
	if created.ID == 0 {
		r.store.nextNoteID++
		created.ID = r.store.nextNoteID
	} else if created.ID > r.store.nextNoteID {
		r.store.nextNoteID = created.ID
	}
	if _, exists := r.store.notes[created.ID]; exists {
		return nil, goerr.New("note already exists", goerr.V(model.NoteIDKey, created.ID))
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	r.store.notes[created.ID] = created
	return created.Clone(), nil
}

func (r *noteRepository) Get(ctx context.Context, id model.NoteID) (*model.Note, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	note, exists := r.store.notes[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrNotFound, "note not found", goerr.V(model.NoteIDKey, id))
	}
	return note.Clone(), nil
}

func (r *noteRepository) List(ctx context.Context) ([]*model.Note, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]*model.Note, 0, len(r.store.notes))
	for _, n := range r.store.notes {
		result = append(result, n.Clone())
	}
	sortNotes(result)
	return result, nil
}

func sortNotes(notes []*model.Note) {
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].ID < notes[j].ID
	})
}
