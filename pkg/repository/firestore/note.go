package firestore

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// getAllChunkSize bounds the number of document refs passed to one GetAll call
const getAllChunkSize = 100

type noteDoc struct {
	ID        int64     `firestore:"id"`
	Type      string    `firestore:"type"`
	Input     string    `firestore:"input,omitempty"`
	Output    string    `firestore:"output,omitempty"`
	PatientID *int64    `firestore:"patient_id"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toNoteDoc(n *model.Note) *noteDoc {
	return &noteDoc{
		ID:        int64(n.ID),
		Type:      string(n.Type),
		Input:     string(n.Input),
		Output:    string(n.Output),
		PatientID: n.PatientID,
		CreatedAt: n.CreatedAt,
	}
}

func fromNoteDoc(d *noteDoc) *model.Note {
	n := &model.Note{
		ID:        model.NoteID(d.ID),
		Type:      types.DocumentType(d.Type),
		PatientID: d.PatientID,
		CreatedAt: d.CreatedAt,
	}
	if d.Input != "" {
		n.Input = []byte(d.Input)
	}
	if d.Output != "" {
		n.Output = []byte(d.Output)
	}
	return n
}

type noteRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newNoteRepository(client *firestore.Client) *noteRepository {
	return &noteRepository{client: client}
}

func (r *noteRepository) notesCollection() string {
	return prefixed(r.collectionPrefix, notesCollection)
}

func (r *noteRepository) counterCollection() string {
	return prefixed(r.collectionPrefix, "counters")
}

func (r *noteRepository) getNextID(ctx context.Context) (int64, error) {
	counterRef := r.client.Collection(r.counterCollection()).Doc("note_counter")

	var nextID int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(counterRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				nextID = 1
				return tx.Set(counterRef, map[string]interface{}{
					"value": nextID,
				})
			}
			return goerr.Wrap(err, "failed to get counter")
		}

		currentValue, err := doc.DataAt("value")
		if err != nil {
			return goerr.Wrap(err, "failed to get counter value")
		}

		val, ok := currentValue.(int64)
		if !ok {
			return goerr.New("counter value is not of type int64", goerr.V("value", currentValue))
		}
		nextID = val + 1
		return tx.Update(counterRef, []firestore.Update{
			{Path: "value", Value: nextID},
		})
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get next ID")
	}

	return nextID, nil
}

func (r *noteRepository) Create(ctx context.Context, note *model.Note) (*model.Note, error) {
	created := note.Clone()
	if created.ID == 0 {
		nextID, err := r.getNextID(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to allocate note ID")
		}
		created.ID = model.NoteID(nextID)
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	docRef := r.client.Collection(r.notesCollection()).Doc(created.ID.String())
	if _, err := docRef.Create(ctx, toNoteDoc(created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create note", goerr.V(model.NoteIDKey, created.ID))
	}

	return created, nil
}

func (r *noteRepository) Get(ctx context.Context, id model.NoteID) (*model.Note, error) {
	doc, err := r.client.Collection(r.notesCollection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "note not found", goerr.V(model.NoteIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get note", goerr.V(model.NoteIDKey, id))
	}

	var d noteDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal note", goerr.V(model.NoteIDKey, id))
	}
	return fromNoteDoc(&d), nil
}

func (r *noteRepository) List(ctx context.Context) ([]*model.Note, error) {
	iter := r.client.Collection(r.notesCollection()).OrderBy("id", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	notes := make([]*model.Note, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate notes")
		}

		var d noteDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal note")
		}
		notes = append(notes, fromNoteDoc(&d))
	}

	return notes, nil
}

// getMany fetches notes by ID. Missing notes are skipped.
func (r *noteRepository) getMany(ctx context.Context, ids []model.NoteID) (map[model.NoteID]*model.Note, error) {
	result := make(map[model.NoteID]*model.Note, len(ids))

	for start := 0; start < len(ids); start += getAllChunkSize {
		end := min(start+getAllChunkSize, len(ids))

		refs := make([]*firestore.DocumentRef, 0, end-start)
		for _, id := range ids[start:end] {
			refs = append(refs, r.client.Collection(r.notesCollection()).Doc(strconv.FormatInt(int64(id), 10)))
		}

		docs, err := r.client.GetAll(ctx, refs)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get notes", goerr.V("count", len(refs)))
		}

		for _, doc := range docs {
			if !doc.Exists() {
				continue
			}
			var d noteDoc
			if err := doc.DataTo(&d); err != nil {
				return nil, goerr.Wrap(err, "failed to unmarshal note", goerr.V("docID", doc.Ref.ID))
			}
			result[model.NoteID(d.ID)] = fromNoteDoc(&d)
		}
	}

	return result, nil
}
