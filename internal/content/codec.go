package content

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeEmbedding serialises a vector into the BLOB stored in the embedding
// column: a little-endian sequence of IEEE 754 float32 values with no length
// prefix (the dimension is derived from the blob size on decode). A nil or
// empty vector encodes to nil, which is stored as SQL NULL.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// decodeEmbedding deserialises a BLOB produced by encodeEmbedding.
// A nil or empty blob decodes to nil (absent embedding).
func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("content: invalid embedding blob length %d (not a multiple of 4)", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
