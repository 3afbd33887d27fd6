// internal/matching/similarity.go
package matching

import (
	"fmt"
	"math"
)

// DimensionMismatchError signals that two embedding vectors have different
// lengths. This is a data-integrity bug upstream and is never absorbed.
type DimensionMismatchError struct {
	LenA int
	LenB int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: %d != %d", e.LenA, e.LenB)
}

// CosineSimilarity returns the cosine of the angle between two vectors,
// in [-1, 1]. Callers must skip the similarity term entirely when either
// vector is absent; absence is expected, a mismatch is not.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{LenA: len(a), LenB: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0, nil
	}
	return dot / denom, nil
}
