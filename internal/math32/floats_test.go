package math32

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"Positive values", []float32{1, 2, 3}, []float32{4, 5, 6}, 32.0},
		{"Negative values", []float32{-1, -2, -3}, []float32{-4, -5, -6}, 32.0},
		{"Mixed values", []float32{1, -2, 3}, []float32{-4, 5, -6}, -32.0},
		{"Zero values", []float32{0, 0, 0}, []float32{0, 0, 0}, 0.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Dot(tc.a, tc.b))
		})
	}
}

func TestNorm(t *testing.T) {
	assert.InDelta(t, 5.0, Norm([]float32{3, 4}), 1e-12)
	assert.Equal(t, 0.0, Norm(nil))
}

func TestScaleInPlace(t *testing.T) {
	a := []float32{1, -2, 4}
	ScaleInPlace(a, 0.5)
	assert.Equal(t, []float32{0.5, -1, 2}, a)
}

func TestAxpyInPlace(t *testing.T) {
	dst := []float32{1, 1, 1}
	AxpyInPlace(dst, []float32{1, 2, 3}, 2)
	assert.Equal(t, []float32{3, 5, 7}, dst)
}

func TestMean(t *testing.T) {
	dst := make([]float32, 3)
	Mean(dst, []float32{1, 2, 3}, []float32{3, 4, 5})
	assert.Equal(t, []float32{2, 3, 4}, dst)

	// no inputs leaves dst untouched
	Mean(dst)
	assert.Equal(t, []float32{2, 3, 4}, dst)
}

func BenchmarkDot(b *testing.B) {
	const size = 4 * 64 * 64
	va := make([]float32, size)
	vb := make([]float32, size)

	for i := range va {
		va[i] = rand.Float32() // nolint gosec
		vb[i] = rand.Float32() // nolint gosec
	}

	b.ResetTimer()
	for b.Loop() {
		_ = Dot(va, vb)
	}
}

func TestSquaredL2(t *testing.T) {
	assert.Equal(t, 25.0, SquaredL2([]float32{0, 0}, []float32{3, 4}))
	assert.Equal(t, 0.0, SquaredL2([]float32{1, 2}, []float32{1, 2}))
}
