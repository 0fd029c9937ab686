package types

// Matrix4 is a 4x4 transformation matrix stored row-major. It is the domain
// value for matrix-typed fields; the zero value is NOT a valid transform,
// use Identity.
type Matrix4 [16]float64

// Identity returns the 4x4 identity matrix.
func Identity() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Slice returns the matrix as a flat 16-element slice, the JSON-safe shape
// matrix fields serialize to.
func (m Matrix4) Slice() []float64 {
	out := make([]float64, 16)
	copy(out, m[:])
	return out
}

// MatrixFromSlice builds a Matrix4 from a flat 16-element slice.
// Returns false when the slice has the wrong length.
func MatrixFromSlice(v []float64) (Matrix4, bool) {
	if len(v) != 16 {
		return Matrix4{}, false
	}
	var m Matrix4
	copy(m[:], v)
	return m, true
}
