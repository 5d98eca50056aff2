package memory

import (
	"sync"

	"github.com/secmon-lab/hygieia/pkg/domain/interfaces"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-process repository for development and tests. Notes and
// embeddings share one lock so that joined listings see a consistent snapshot.
type Memory struct {
	mu         sync.RWMutex
	notes      map[model.NoteID]*model.Note
	embeddings map[model.NoteID]*model.Embedding
	nextNoteID model.NoteID

	note      *noteRepository
	embedding *embeddingRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	m := &Memory{
		notes:      make(map[model.NoteID]*model.Note),
		embeddings: make(map[model.NoteID]*model.Embedding),
	}
	m.note = &noteRepository{store: m}
	m.embedding = &embeddingRepository{store: m}
	return m
}

func (m *Memory) Note() interfaces.NoteRepository {
	return m.note
}

func (m *Memory) Embedding() interfaces.EmbeddingRepository {
	return m.embedding
}

func (m *Memory) Close() error {
	return nil
}
