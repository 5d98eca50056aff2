package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash is the fingerprint of the text an embedding was generated from
type ContentHash string

// NewContentHash returns the hex encoded SHA-256 of text
func NewContentHash(text string) ContentHash {
	sum := sha256.Sum256([]byte(text))
	return ContentHash(hex.EncodeToString(sum[:]))
}

// String returns the string representation of the hash
func (h ContentHash) String() string {
	return string(h)
}
