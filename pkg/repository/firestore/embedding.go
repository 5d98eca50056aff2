package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// embeddingDoc stores the vector as the codec's byte encoding so every
// backend shares the same on-disk representation
type embeddingDoc struct {
	NoteID      int64     `firestore:"note_id"`
	Model       string    `firestore:"model"`
	Vector      []byte    `firestore:"vector"`
	Dimensions  int       `firestore:"dimensions"`
	ContentHash string    `firestore:"content_hash"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

func fromEmbeddingDoc(d *embeddingDoc) *model.Embedding {
	return &model.Embedding{
		NoteID:      model.NoteID(d.NoteID),
		Model:       d.Model,
		Data:        d.Vector,
		Dimensions:  d.Dimensions,
		ContentHash: model.ContentHash(d.ContentHash),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type embeddingRepository struct {
	client           *firestore.Client
	collectionPrefix string
	notes            *noteRepository
}

func newEmbeddingRepository(client *firestore.Client, notes *noteRepository) *embeddingRepository {
	return &embeddingRepository{
		client: client,
		notes:  notes,
	}
}

func (r *embeddingRepository) embeddingsCollection() string {
	return prefixed(r.collectionPrefix, embeddingsCollection)
}

func (r *embeddingRepository) Get(ctx context.Context, noteID model.NoteID) (*model.Embedding, error) {
	doc, err := r.client.Collection(r.embeddingsCollection()).Doc(noteID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "embedding not found", goerr.V(model.NoteIDKey, noteID))
		}
		return nil, goerr.Wrap(err, "failed to get embedding", goerr.V(model.NoteIDKey, noteID))
	}

	var d embeddingDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal embedding", goerr.V(model.NoteIDKey, noteID))
	}
	return fromEmbeddingDoc(&d), nil
}

// Upsert replaces the embedding document in one transaction: either the new
// row is fully written or the previous one remains.
func (r *embeddingRepository) Upsert(ctx context.Context, embedding *model.Embedding) error {
	noteRef := r.client.Collection(r.notes.notesCollection()).Doc(embedding.NoteID.String())
	embRef := r.client.Collection(r.embeddingsCollection()).Doc(embedding.NoteID.String())

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(noteRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "note not found", goerr.V(model.NoteIDKey, embedding.NoteID))
			}
			return goerr.Wrap(err, "failed to get note")
		}

		now := time.Now().UTC()
		createdAt := now
		prev, err := tx.Get(embRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get previous embedding")
		}
		if err == nil {
			var d embeddingDoc
			if err := prev.DataTo(&d); err == nil && !d.CreatedAt.IsZero() {
				createdAt = d.CreatedAt
			}
		}

		return tx.Set(embRef, &embeddingDoc{
			NoteID:      int64(embedding.NoteID),
			Model:       embedding.Model,
			Vector:      embedding.Data,
			Dimensions:  embedding.Dimensions,
			ContentHash: string(embedding.ContentHash),
			CreatedAt:   createdAt,
			UpdatedAt:   now,
		})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to upsert embedding", goerr.V(model.NoteIDKey, embedding.NoteID))
	}

	return nil
}

func (r *embeddingRepository) ListNotesWithEmbeddings(ctx context.Context) ([]*model.NoteEmbedding, error) {
	embeddings, err := r.collect(ctx, r.client.Collection(r.embeddingsCollection()).Query)
	if err != nil {
		return nil, err
	}

	ids := make([]model.NoteID, len(embeddings))
	for i, e := range embeddings {
		ids[i] = e.NoteID
	}
	notes, err := r.notes.getMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*model.NoteEmbedding, 0, len(embeddings))
	for _, e := range embeddings {
		note, ok := notes[e.NoteID]
		if !ok {
			continue
		}
		result = append(result, &model.NoteEmbedding{Note: note, Embedding: e})
	}
	return result, nil
}

func (r *embeddingRepository) ListNotesWithoutEmbedding(ctx context.Context, limit int) ([]*model.Note, error) {
	embedded := make(map[int64]struct{})
	iter := r.client.Collection(r.embeddingsCollection()).Select("note_id").Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate embedding IDs")
		}
		v, err := doc.DataAt("note_id")
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read note_id", goerr.V("docID", doc.Ref.ID))
		}
		if id, ok := v.(int64); ok {
			embedded[id] = struct{}{}
		}
	}

	notes, err := r.notes.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*model.Note, 0)
	for _, n := range notes {
		if _, ok := embedded[int64(n.ID)]; ok {
			continue
		}
		result = append(result, n)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *embeddingRepository) ListNotesWithStaleEmbedding(ctx context.Context, currentModel string, limit int) ([]*model.Note, error) {
	embeddings, err := r.collect(ctx, r.client.Collection(r.embeddingsCollection()).
		Where("model", "!=", currentModel).
		OrderBy("model", firestore.Asc).
		OrderBy("note_id", firestore.Asc))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stale embeddings", goerr.V(model.ModelKey, currentModel))
	}
	if limit > 0 && len(embeddings) > limit {
		embeddings = embeddings[:limit]
	}

	ids := make([]model.NoteID, len(embeddings))
	for i, e := range embeddings {
		ids[i] = e.NoteID
	}
	notes, err := r.notes.getMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*model.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := notes[id]; ok {
			result = append(result, n)
		}
	}
	return result, nil
}

// collect reads every embedding matched by q, sorted by note ID ascending
func (r *embeddingRepository) collect(ctx context.Context, q firestore.Query) ([]*model.Embedding, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	embeddings := make([]*model.Embedding, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate embeddings")
		}

		var d embeddingDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal embedding", goerr.V("docID", doc.Ref.ID))
		}
		embeddings = append(embeddings, fromEmbeddingDoc(&d))
	}

	sort.Slice(embeddings, func(i, j int) bool {
		return embeddings[i].NoteID < embeddings[j].NoteID
	})
	return embeddings, nil
}
