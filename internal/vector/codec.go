// Package vector provides the float32 byte codec and similarity helpers for
// stored chunk embeddings.
package vector

import (
	"encoding/binary"
	"math"
)

// Encode packs a float32 vector into a little-endian byte buffer of
// len(v)*4 bytes, the on-disk representation of a chunk embedding.
func Encode(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(x))
	}
	return out
}

// Decode unpacks a little-endian byte buffer into a float32 vector.
// Trailing bytes that do not form a full float32 are ignored.
func Decode(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Zero returns the all-zero vector of the given dimension, the stored
// representation of a failed embedding.
func Zero(dimensions int) []float32 {
	if dimensions <= 0 {
		return nil
	}
	return make([]float32, dimensions)
}
