package sqlaccount

import (
	"encoding/binary"
	"math"
)

// encodeVector serializes []float32 as little-endian bytes; nil stays NULL.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector. Returns false on a truncated blob.
func decodeVector(b []byte) ([]float32, bool) {
	if len(b) == 0 {
		return nil, true
	}
	if len(b)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, true
}
