package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Note() NoteRepository
	Embedding() EmbeddingRepository

	// Close releases the underlying storage client
	Close() error
}
