package imageindex

import "math"

// normEpsilon floors the divisor in NormalizeL2.
const normEpsilon = 1e-12

// Dot computes the dot product of two vectors of equal length. For unit
// vectors this is their cosine similarity.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrVectorLengthMismatch
	}
	var dot float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// NormalizeL2 returns a new vector divided by max(‖v‖₂, 1e-12).
// A zero vector comes back as a zero vector.
func NormalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	n := math.Max(math.Sqrt(sum), normEpsilon)
	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(float64(v[i]) / n)
	}
	return out
}

// NormalizeRows applies NormalizeL2 to every row.
func NormalizeRows(rows [][]float32) [][]float32 {
	out := make([][]float32, len(rows))
	for i, r := range rows {
		out[i] = NormalizeL2(r)
	}
	return out
}
