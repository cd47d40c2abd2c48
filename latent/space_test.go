package latent

import (
	"testing"

	"github.com/hupe1980/evolatent/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	assert.Equal(t, 16384, DefaultShape.Len())
	assert.InDelta(t, 128.0, DefaultShape.TargetNorm(), 1e-12)
	assert.NoError(t, DefaultShape.Validate())
	assert.Error(t, Shape{N: 1, C: 0, H: 2, W: 2}.Validate())
	assert.Equal(t, "(1,4,64,64)", DefaultShape.String())

	s := Shape{N: 1, C: 2, H: 3, W: 4}
	assert.Equal(t, 0, s.Index(0, 0, 0, 0))
	assert.Equal(t, 4, s.Index(0, 0, 1, 0))
	assert.Equal(t, 12, s.Index(0, 1, 0, 0))
	assert.Equal(t, 23, s.Index(0, 1, 2, 3))
}

func TestSpace_SampleIsReproducible(t *testing.T) {
	a := NewSpace(DefaultShape, NewSource(42)).SampleN(2)
	b := NewSpace(DefaultShape, NewSource(42)).SampleN(2)

	require.Len(t, a, 2)
	assert.True(t, testutil.BitEqual(a[0].Data, b[0].Data))
	assert.True(t, testutil.BitEqual(a[1].Data, b[1].Data))
	assert.False(t, testutil.BitEqual(a[0].Data, a[1].Data))
}

func TestSpace_SampleSeeded(t *testing.T) {
	space := NewSpace(DefaultShape, NewSource(1))

	first := space.SampleSeeded(7)
	_ = space.Sample() // consuming the space's source must not matter
	again := space.SampleSeeded(7)
	other := space.SampleSeeded(8)

	assert.True(t, testutil.BitEqual(first.Data, again.Data))
	assert.False(t, testutil.BitEqual(first.Data, other.Data))
}

func TestSpace_AcceptsTestRNG(t *testing.T) {
	rng := testutil.NewRNG(3)
	space := NewSpace(Shape{N: 1, C: 1, H: 4, W: 4}, rng)
	v := space.Sample()
	assert.Len(t, v.Data, 16)

	// Sample consumes the source in element order.
	rng.Reset()
	want := make([]float32, 16)
	rng.FillGaussian(want)
	assert.True(t, testutil.BitEqual(want, v.Data))
}

func TestSpace_Normalize(t *testing.T) {
	space := NewSpace(DefaultShape, NewSource(5))
	v := space.Sample()
	orig := v.Clone()

	n, err := space.Normalize(v)
	require.NoError(t, err)
	assert.InEpsilon(t, space.TargetNorm(), n.Norm(), 1e-5)

	// input is left untouched
	assert.True(t, testutil.BitEqual(orig.Data, v.Data))

	// direction is preserved
	ratio := float64(n.Data[0]) / float64(v.Data[0])
	assert.InEpsilon(t, ratio, float64(n.Data[100])/float64(v.Data[100]), 1e-4)
}

func TestSpace_NormalizeScalesUp(t *testing.T) {
	shape := Shape{N: 1, C: 1, H: 2, W: 2}
	space := NewSpace(shape, nil)

	v := Vector{Shape: shape, Data: []float32{0.5, 0, 0, 0}}
	n, err := space.Normalize(v)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 0, 0, 0}, n.Data)
}

func TestSpace_NormalizeDegenerate(t *testing.T) {
	space := NewSpace(DefaultShape, nil)
	_, err := space.Normalize(Zeros(DefaultShape))
	assert.ErrorIs(t, err, ErrDegenerateVector)
}

func TestSpace_NormalizeShapeMismatch(t *testing.T) {
	space := NewSpace(DefaultShape, nil)
	other := Zeros(Shape{N: 1, C: 4, H: 32, W: 32})
	other.Data[0] = 1

	_, err := space.Normalize(other)
	var sm *ShapeMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, DefaultShape, sm.Expected)
}

func TestPopulationClone(t *testing.T) {
	pop := NewSpace(Shape{N: 1, C: 1, H: 2, W: 2}, NewSource(1)).SampleN(2)
	cp := pop.Clone()
	cp[0].Data[0] = 99
	assert.NotEqual(t, float32(99), pop[0].Data[0])
}
