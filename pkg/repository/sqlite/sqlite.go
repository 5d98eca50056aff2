package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/interfaces"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS notes (
    id         INTEGER PRIMARY KEY,
    type       TEXT    NOT NULL,
    input      TEXT,
    output     TEXT,
    patient_id INTEGER,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS embeddings (
    note_id      INTEGER PRIMARY KEY REFERENCES notes(id) ON DELETE CASCADE,
    model        TEXT    NOT NULL,
    vector       BLOB    NOT NULL,
    dimensions   INTEGER NOT NULL,
    content_hash TEXT    NOT NULL,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_embeddings_model ON embeddings(model);
`

// SQLite is a repository backed by a single SQLite database file
type SQLite struct {
	db        *sql.DB
	note      *noteRepository
	embedding *embeddingRepository
}

var _ interfaces.Repository = &SQLite{}

// New opens (or creates) the database at path and ensures the schema exists
func New(ctx context.Context, path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	// each connection to an in-memory database sees its own empty database
	if isInMemory(path) {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ensure sqlite schema", goerr.V("path", path))
	}

	return &SQLite{
		db:        db,
		note:      &noteRepository{db: db},
		embedding: &embeddingRepository{db: db},
	}, nil
}

func (s *SQLite) Note() interfaces.NoteRepository {
	return s.note
}

func (s *SQLite) Embedding() interfaces.EmbeddingRepository {
	return s.embedding
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func isInMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
