// internal/matching/similarity_test.go
package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{
			name: "identical vectors",
			a:    []float64{1, 2, 3},
			b:    []float64{1, 2, 3},
			want: 1.0,
		},
		{
			name: "opposite vectors",
			a:    []float64{1, 0},
			b:    []float64{-1, 0},
			want: -1.0,
		},
		{
			name: "orthogonal vectors",
			a:    []float64{1, 0},
			b:    []float64{0, 1},
			want: 0.0,
		},
		{
			name: "zero vector yields zero",
			a:    []float64{0, 0, 0},
			b:    []float64{1, 2, 3},
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2})

	require.Error(t, err)
	var dimErr *DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.LenA)
	assert.Equal(t, 2, dimErr.LenB)
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	vectors := [][]float64{
		{0.1, -0.4, 2.2},
		{12, 0.003, -7},
		{-1, -1, -1},
	}
	for _, a := range vectors {
		for _, b := range vectors {
			sim, err := CosineSimilarity(a, b)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, sim, -1.0000001)
			assert.LessOrEqual(t, sim, 1.0000001)
		}
	}
}
