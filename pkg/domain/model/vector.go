package model

import (
	"encoding/binary"
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// vectorComponentSize is the byte width of one encoded float64 component
const vectorComponentSize = 8

// EncodeVector encodes vec as a little-endian sequence of IEEE-754 float64
// values without header or delimiter. The dimension is derived from the
// buffer size on decode.
func EncodeVector(vec []float64) []byte {
	b := make([]byte, len(vec)*vectorComponentSize)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(b[i*vectorComponentSize:], math.Float64bits(v))
	}
	return b
}

// DecodeVector decodes a buffer produced by EncodeVector. It returns
// ErrMalformedVector if the length is not a multiple of the component size.
func DecodeVector(b []byte) ([]float64, error) {
	if len(b)%vectorComponentSize != 0 {
		return nil, goerr.Wrap(ErrMalformedVector, "vector length is not a multiple of component size",
			goerr.V("length", len(b)),
			goerr.V("component_size", vectorComponentSize))
	}

	n := len(b) / vectorComponentSize
	vec := make([]float64, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*vectorComponentSize:]))
	}
	return vec, nil
}
