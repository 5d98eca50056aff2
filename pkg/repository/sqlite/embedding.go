package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
)

type embeddingRepository struct {
	db *sql.DB
}

func (r *embeddingRepository) Get(ctx context.Context, noteID model.NoteID) (*model.Embedding, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT note_id, model, vector, dimensions, content_hash, created_at, updated_at FROM embeddings WHERE note_id = ?`,
		int64(noteID))

	var (
		id                   int64
		emb                  model.Embedding
		hash                 string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&id, &emb.Model, &emb.Data, &emb.Dimensions, &hash, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrNotFound, "embedding not found", goerr.V(model.NoteIDKey, noteID))
		}
		return nil, goerr.Wrap(err, "failed to get embedding", goerr.V(model.NoteIDKey, noteID))
	}

	emb.NoteID = model.NoteID(id)
	emb.ContentHash = model.ContentHash(hash)
	emb.CreatedAt = time.Unix(0, createdAt).UTC()
	emb.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &emb, nil
}

// Upsert writes the row inside a transaction so a cancelled context or a
// failed statement leaves the previous row untouched.
func (r *embeddingRepository) Upsert(ctx context.Context, embedding *model.Embedding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction", goerr.V(model.NoteIDKey, embedding.NoteID))
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE id = ?`, int64(embedding.NoteID)).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goerr.Wrap(model.ErrNotFound, "note not found", goerr.V(model.NoteIDKey, embedding.NoteID))
		}
		return goerr.Wrap(err, "failed to check note", goerr.V(model.NoteIDKey, embedding.NoteID))
	}

	now := time.Now().UTC().UnixNano()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO embeddings (note_id, model, vector, dimensions, content_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(note_id) DO UPDATE SET
			model = excluded.model,
			vector = excluded.vector,
			dimensions = excluded.dimensions,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
		int64(embedding.NoteID),
		embedding.Model,
		embedding.Data,
		embedding.Dimensions,
		string(embedding.ContentHash),
		now,
		now,
	); err != nil {
		return goerr.Wrap(err, "failed to upsert embedding", goerr.V(model.NoteIDKey, embedding.NoteID))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit embedding", goerr.V(model.NoteIDKey, embedding.NoteID))
	}
	return nil
}

func (r *embeddingRepository) ListNotesWithEmbeddings(ctx context.Context) ([]*model.NoteEmbedding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+noteColumns+`, e.model, e.vector, e.dimensions, e.content_hash, e.created_at, e.updated_at
		FROM embeddings e
		JOIN notes n ON n.id = e.note_id
		ORDER BY n.id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes with embeddings")
	}
	defer rows.Close()

	result := make([]*model.NoteEmbedding, 0)
	for rows.Next() {
		var (
			emb                  model.Embedding
			hash                 string
			createdAt, updatedAt int64
		)
		note, err := scanNote(rows, &emb.Model, &emb.Data, &emb.Dimensions, &hash, &createdAt, &updatedAt)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan note embedding")
		}

		emb.NoteID = note.ID
		emb.ContentHash = model.ContentHash(hash)
		emb.CreatedAt = time.Unix(0, createdAt).UTC()
		emb.UpdatedAt = time.Unix(0, updatedAt).UTC()
		result = append(result, &model.NoteEmbedding{Note: note, Embedding: &emb})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate note embeddings")
	}
	return result, nil
}

func (r *embeddingRepository) ListNotesWithoutEmbedding(ctx context.Context, limit int) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes n
		LEFT JOIN embeddings e ON e.note_id = n.id
		WHERE e.note_id IS NULL
		ORDER BY n.id
		LIMIT ?`, sqlLimit(limit))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes without embedding")
	}
	defer rows.Close()

	return collectNotes(rows)
}

func (r *embeddingRepository) ListNotesWithStaleEmbedding(ctx context.Context, currentModel string, limit int) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+noteColumns+`
		FROM notes n
		JOIN embeddings e ON e.note_id = n.id
		WHERE e.model <> ?
		ORDER BY n.id
		LIMIT ?`, currentModel, sqlLimit(limit))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes with stale embedding", goerr.V(model.ModelKey, currentModel))
	}
	defer rows.Close()

	return collectNotes(rows)
}

// sqlLimit maps a non-positive limit to SQLite's "no limit"
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
