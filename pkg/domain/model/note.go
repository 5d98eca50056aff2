package model

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/secmon-lab/hygieia/pkg/domain/types"
)

// NoteID identifies a stored clinical note
type NoteID int64

// String returns the decimal representation of the ID
func (id NoteID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseNoteID parses a decimal note ID
func ParseNoteID(s string) (NoteID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return NoteID(v), nil
}

// Note is a generated clinical document. It is owned by the note storage
// layer; the similarity core only reads it.
type Note struct {
	ID        NoteID
	Type      types.DocumentType
	Input     json.RawMessage // JSON payload the document was generated from
	Output    json.RawMessage // JSON payload of the generated document
	PatientID *int64
	CreatedAt time.Time
}

// Clone returns a deep copy of the note
func (n *Note) Clone() *Note {
	copied := &Note{
		ID:        n.ID,
		Type:      n.Type,
		CreatedAt: n.CreatedAt,
	}
	if n.Input != nil {
		copied.Input = append(json.RawMessage(nil), n.Input...)
	}
	if n.Output != nil {
		copied.Output = append(json.RawMessage(nil), n.Output...)
	}
	if n.PatientID != nil {
		pid := *n.PatientID
		copied.PatientID = &pid
	}
	return copied
}
