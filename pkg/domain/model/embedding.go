package model

import (
	"time"
)

// Embedding is the cached vector of a note. There is at most one Embedding
// per note; regenerating overwrites the previous row.
type Embedding struct {
	NoteID      NoteID
	Model       string // embedding model/version that produced the vector
	Data        []byte // vector encoded by EncodeVector
	Dimensions  int    // must equal the decoded vector length
	ContentHash ContentHash
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEmbedding encodes vec and builds an Embedding row for noteID
func NewEmbedding(noteID NoteID, modelName string, vec []float64, hash ContentHash) *Embedding {
	return &Embedding{
		NoteID:      noteID,
		Model:       modelName,
		Data:        EncodeVector(vec),
		Dimensions:  len(vec),
		ContentHash: hash,
	}
}

// Vector decodes the stored vector
func (e *Embedding) Vector() ([]float64, error) {
	return DecodeVector(e.Data)
}

// IsValidFor reports whether the embedding can be reused for text with the
// given hash under the given model. Any mismatch means the row is stale.
func (e *Embedding) IsValidFor(hash ContentHash, modelName string) bool {
	return e.ContentHash == hash && e.Model == modelName
}

// Clone returns a deep copy of the embedding
func (e *Embedding) Clone() *Embedding {
	copied := *e
	if e.Data != nil {
		copied.Data = append([]byte(nil), e.Data...)
	}
	return &copied
}
