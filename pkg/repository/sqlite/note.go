package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/hygieia/pkg/domain/model"
	"github.com/secmon-lab/hygieia/pkg/domain/types"
)

const noteColumns = `n.id, n.type, n.input, n.output, n.patient_id, n.created_at`

type noteRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *noteRepository) Create(ctx context.Context, note *model.Note) (*model.Note, error) {
	created := note.Clone()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	var id any
	if created.ID != 0 {
		id = int64(created.ID)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (id, type, input, output, patient_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		string(created.Type),
		nullableText(created.Input),
		nullableText(created.Output),
		created.PatientID,
		created.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create note", goerr.V(model.NoteIDKey, created.ID))
	}

	if created.ID == 0 {
		lastID, err := res.LastInsertId()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get inserted note ID")
		}
		created.ID = model.NoteID(lastID)
	}

	return created, nil
}

func (r *noteRepository) Get(ctx context.Context, id model.NoteID) (*model.Note, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes n WHERE n.id = ?`, int64(id))

	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrNotFound, "note not found", goerr.V(model.NoteIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get note", goerr.V(model.NoteIDKey, id))
	}
	return note, nil
}

func (r *noteRepository) List(ctx context.Context) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes n ORDER BY n.id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes")
	}
	defer rows.Close()

	return collectNotes(rows)
}

func collectNotes(rows *sql.Rows) ([]*model.Note, error) {
	notes := make([]*model.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan note")
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate notes")
	}
	return notes, nil
}

func scanNote(row rowScanner, extra ...any) (*model.Note, error) {
	var (
		id        int64
		docType   string
		input     sql.NullString
		output    sql.NullString
		patientID sql.NullInt64
		createdAt int64
	)

	dest := append([]any{&id, &docType, &input, &output, &patientID, &createdAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	note := &model.Note{
		ID:        model.NoteID(id),
		Type:      types.DocumentType(docType),
		CreatedAt: time.Unix(0, createdAt).UTC(),
	}
	if input.Valid {
		note.Input = []byte(input.String)
	}
	if output.Valid {
		note.Output = []byte(output.String)
	}
	if patientID.Valid {
		pid := patientID.Int64
		note.PatientID = &pid
	}
	return note, nil
}

func nullableText(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
