package latent

import (
	"math"
	"math/rand/v2"

	"github.com/hupe1980/evolatent/internal/math32"
)

// Source yields standard-normal samples. *rand.Rand from math/rand/v2
// satisfies it.
type Source interface {
	NormFloat64() float64
}

// seedStream separates latent seeds from other PCG users of the same seed.
const seedStream = 0x9e3779b97f4a7c15

// NewSource returns a deterministic Source for seed.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), seedStream))
}

// Space samples and normalizes vectors of one shape.
//
// A Space is not safe for concurrent use: it owns its random source.
type Space struct {
	shape Shape
	src   Source
}

// NewSpace returns a Space over shape drawing from src. A nil src uses an
// unseeded source.
func NewSpace(shape Shape, src Source) *Space {
	if src == nil {
		src = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Space{shape: shape, src: src}
}

// Shape returns the space's tensor shape.
func (s *Space) Shape() Shape { return s.shape }

// TargetNorm returns the norm every normalized vector has.
func (s *Space) TargetNorm() float64 { return s.shape.TargetNorm() }

// Sample draws a fresh standard-normal vector from the space's source.
func (s *Space) Sample() Vector {
	v := Zeros(s.shape)
	s.Fill(v.Data)
	return v
}

// SampleSeeded draws a standard-normal vector reproducible for seed. It does
// not consume the space's own source, so draws for different seeds are
// independent of each other and of call order.
func (s *Space) SampleSeeded(seed int64) Vector {
	v := Zeros(s.shape)
	fill(NewSource(seed), v.Data)
	return v
}

// SampleN draws k vectors from the space's source.
func (s *Space) SampleN(k int) Population {
	pop := make(Population, k)
	for i := range pop {
		pop[i] = s.Sample()
	}
	return pop
}

// Fill overwrites dst with standard-normal samples.
func (s *Space) Fill(dst []float32) {
	fill(s.src, dst)
}

func fill(src Source, dst []float32) {
	for i := range dst {
		dst[i] = float32(src.NormFloat64())
	}
}

// Check returns a *ShapeMismatchError if v does not belong to the space.
func (s *Space) Check(v Vector) error {
	if v.Shape != s.shape || len(v.Data) != s.shape.Len() {
		return &ShapeMismatchError{Expected: s.shape, Actual: v.Shape}
	}
	return nil
}

// Normalize returns a copy of v rescaled by TargetNorm/||v||.
func (s *Space) Normalize(v Vector) (Vector, error) {
	out := v.Clone()
	if err := s.NormalizeInPlace(out); err != nil {
		return Vector{}, err
	}
	return out, nil
}

// NormalizeInPlace rescales v by TargetNorm/||v||.
func (s *Space) NormalizeInPlace(v Vector) error {
	if err := s.Check(v); err != nil {
		return err
	}
	norm := v.Norm()
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return ErrDegenerateVector
	}
	math32.ScaleInPlace(v.Data, s.TargetNorm()/norm)
	return nil
}
