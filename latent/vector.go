package latent

import (
	"slices"

	"github.com/hupe1980/evolatent/internal/math32"
)

// Vector is one candidate's latent noise tensor.
type Vector struct {
	Shape Shape
	Data  []float32
}

// Zeros returns a zero-valued vector of the given shape.
func Zeros(s Shape) Vector {
	return Vector{Shape: s, Data: make([]float32, s.Len())}
}

// Clone returns a deep copy of v.
func (v Vector) Clone() Vector {
	return Vector{Shape: v.Shape, Data: slices.Clone(v.Data)}
}

// Norm returns the Euclidean norm of v.
func (v Vector) Norm() float64 {
	return math32.Norm(v.Data)
}

// At returns element (n, c, y, x).
func (v Vector) At(n, c, y, x int) float32 {
	return v.Data[v.Shape.Index(n, c, y, x)]
}

// Population is the ordered set of candidate latents shown in one step.
// The slice index is the candidate index.
type Population []Vector

// Clone returns a deep copy of p.
func (p Population) Clone() Population {
	out := make(Population, len(p))
	for i, v := range p {
		out[i] = v.Clone()
	}
	return out
}
