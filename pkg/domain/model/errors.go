package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared by every storage backend and use case
var (
	ErrNotFound        = goerr.New("not found")
	ErrMalformedVector = goerr.New("malformed vector")
)

// Context keys for error values
const (
	NoteIDKey     = "note_id"
	ModelKey      = "model"
	DimensionsKey = "dimensions"
)
