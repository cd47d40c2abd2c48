package mutation

import (
	"math"
	"testing"

	"github.com/hupe1980/evolatent/internal/math32"
	"github.com/hupe1980/evolatent/latent"
	"github.com/hupe1980/evolatent/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const normTol = 1e-3

func newEngine(t *testing.T, seed int64, opts ...Option) *Engine {
	t.Helper()
	e, err := New(latent.NewSpace(latent.DefaultShape, latent.NewSource(seed)), opts...)
	require.NoError(t, err)
	return e
}

func requireNormalized(t *testing.T, e *Engine, pop latent.Population) {
	t.Helper()
	for i, v := range pop {
		assert.InDelta(t, e.Space().TargetNorm(), v.Norm(), normTol, "candidate %d", i)
	}
}

func TestNew_Validation(t *testing.T) {
	space := latent.NewSpace(latent.DefaultShape, nil)

	_, err := New(space, WithPopulationSize(0))
	assert.Error(t, err)
	_, err = New(space, WithImageSize(0, 512))
	assert.Error(t, err)
	_, err = New(space, WithDecay(DecayAlways, 1.5))
	assert.Error(t, err)

	e, err := New(space)
	require.NoError(t, err)
	assert.Equal(t, 4, e.PopulationSize())
	sx, sy := e.Grid().Scale()
	assert.Equal(t, 8.0, sx)
	assert.Equal(t, 8.0, sy)
}

func TestInitial(t *testing.T) {
	e := newEngine(t, 1)
	pop, err := e.Initial()
	require.NoError(t, err)
	require.Len(t, pop, 4)
	requireNormalized(t, e, pop)
}

func TestGlobal_SingleParent(t *testing.T) {
	e := newEngine(t, 2)
	pop, err := e.Initial()
	require.NoError(t, err)
	parent := pop[0].Clone()

	children, rate, err := e.Global(latent.Population{pop[0]}, 1.0)
	require.NoError(t, err)

	require.Len(t, children, 4)
	requireNormalized(t, e, children)
	assert.InDelta(t, 0.7, rate, 1e-12)
	assert.True(t, testutil.BitEqual(parent.Data, pop[0].Data), "parent must not be modified")

	// the first child is the most conservative variant
	first := math32.Dot(children[0].Data, parent.Data)
	last := math32.Dot(children[3].Data, parent.Data)
	assert.Greater(t, first, last)
}

func TestGlobal_MultiParentUsesMean(t *testing.T) {
	e := newEngine(t, 3)
	pop, err := e.Initial()
	require.NoError(t, err)

	_, rate, err := e.Global(latent.Population{pop[0], pop[2]}, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)

	// With a vanishing rate every child collapses onto normalize(mean).
	children, _, err := e.Global(latent.Population{pop[0], pop[2]}, 1e-9)
	require.NoError(t, err)

	mean := latent.Zeros(latent.DefaultShape)
	math32.Mean(mean.Data, pop[0].Data, pop[2].Data)
	want, err := e.Space().Normalize(mean)
	require.NoError(t, err)

	for _, c := range children {
		cos := math32.Dot(c.Data, want.Data) / (c.Norm() * want.Norm())
		assert.InDelta(t, 1.0, cos, 1e-6)
	}
}

func TestGlobal_Reproducible(t *testing.T) {
	run := func() latent.Population {
		e := newEngine(t, 99)
		pop, err := e.Initial()
		require.NoError(t, err)
		children, _, err := e.Global(pop[:1], 1.0)
		require.NoError(t, err)
		return children
	}

	a, b := run(), run()
	for i := range a {
		assert.True(t, testutil.BitEqual(a[i].Data, b[i].Data))
	}
}

func TestGlobal_EmptySelection(t *testing.T) {
	e := newEngine(t, 4)
	_, rate, err := e.Global(nil, 0.5)
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, 0.5, rate)
}

func TestGlobal_ShapeMismatch(t *testing.T) {
	e := newEngine(t, 4)
	bad := latent.Zeros(latent.Shape{N: 1, C: 4, H: 8, W: 8})
	_, _, err := e.Global(latent.Population{bad}, 1)
	var sm *latent.ShapeMismatchError
	assert.ErrorAs(t, err, &sm)
}

func TestDecayMonotonic(t *testing.T) {
	e := newEngine(t, 5)
	pop, err := e.Initial()
	require.NoError(t, err)

	rate := 1.0
	parent := pop[:1]
	for range 5 {
		children, next, err := e.Global(parent, rate)
		require.NoError(t, err)
		assert.Less(t, next, rate)
		assert.InDelta(t, rate*0.7, next, 1e-12)
		rate = next
		parent = children[:1]
	}
}

func TestDecayPolicies(t *testing.T) {
	tests := []struct {
		policy      DecayPolicy
		single      float64
		multiParent float64
	}{
		{DecaySingleParent, 0.5, 1},
		{DecayAlways, 0.5, 0.5},
		{DecayNever, 1, 1},
	}

	for _, tc := range tests {
		t.Run(tc.policy.String(), func(t *testing.T) {
			e := newEngine(t, 6, WithDecay(tc.policy, 0.5))
			assert.Equal(t, tc.single, e.NextRate(1, 1))
			assert.Equal(t, tc.multiParent, e.NextRate(1, 3))
		})
	}
}

func TestParseDecayPolicy(t *testing.T) {
	p, err := ParseDecayPolicy("always")
	require.NoError(t, err)
	assert.Equal(t, DecayAlways, p)

	p, err = ParseDecayPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DecaySingleParent, p)

	_, err = ParseDecayPolicy("sometimes")
	assert.Error(t, err)
}

func TestRegional_Locality(t *testing.T) {
	e := newEngine(t, 7)
	pop, err := e.Initial()
	require.NoError(t, err)
	in := pop[1]

	out, err := e.Regional(in, Rect{X0: 64, Y0: 128, X1: 200, Y1: 256})
	require.NoError(t, err)
	assert.InDelta(t, e.Space().TargetNorm(), out.Norm(), normTol)

	reg := Region{X0: 8, Y0: 16, X1: 25, Y1: 32}
	shape := in.Shape

	// The renormalization scales everything by one factor; undo it before
	// comparing the untouched cells bit for bit.
	scale := -1.0
	for c := range shape.C {
		for y := range shape.H {
			for x := range shape.W {
				idx := shape.Index(0, c, y, x)
				if reg.Contains(x, y) {
					continue
				}
				if scale < 0 && in.Data[idx] != 0 {
					scale = float64(out.Data[idx]) / float64(in.Data[idx])
				}
			}
		}
	}
	require.Greater(t, scale, 0.0)

	changedInside := 0
	for c := range shape.C {
		for y := range shape.H {
			for x := range shape.W {
				idx := shape.Index(0, c, y, x)
				if reg.Contains(x, y) {
					if float64(out.Data[idx]) != float64(float32(float64(in.Data[idx])*scale)) {
						changedInside++
					}
					continue
				}
				assert.InDelta(t, float64(in.Data[idx])*scale, float64(out.Data[idx]), 1e-4)
			}
		}
	}
	assert.Equal(t, shape.C*reg.Area(), changedInside)
}

func TestRegional_OutsideBitIdenticalBeforeNormalization(t *testing.T) {
	e := newEngine(t, 8)
	pop, err := e.Initial()
	require.NoError(t, err)
	in := pop[0].Clone()

	reg := Region{X0: 0, Y0: 0, X1: 4, Y1: 4}
	out := in.Clone()
	e.resample(out, reg)

	shape := in.Shape
	for c := range shape.C {
		for y := range shape.H {
			for x := range shape.W {
				idx := shape.Index(0, c, y, x)
				if reg.Contains(x, y) {
					assert.NotEqual(t, in.Data[idx], out.Data[idx])
				} else {
					assert.Equal(t, math.Float32bits(in.Data[idx]), math.Float32bits(out.Data[idx]))
				}
			}
		}
	}
}

func TestRegional_FullImageEqualsResample(t *testing.T) {
	src := latent.NewSpace(latent.DefaultShape, latent.NewSource(100))
	in, err := src.Normalize(src.Sample())
	require.NoError(t, err)

	e := newEngine(t, 9)
	out, err := e.Regional(in, Rect{X0: 0, Y0: 0, X1: 512, Y1: 512})
	require.NoError(t, err)

	ref := latent.NewSpace(latent.DefaultShape, latent.NewSource(9))
	want, err := ref.Normalize(ref.Sample())
	require.NoError(t, err)

	assert.True(t, testutil.BitEqual(want.Data, out.Data))
}

func TestRegional_EmptyRegion(t *testing.T) {
	e := newEngine(t, 10)
	pop, err := e.Initial()
	require.NoError(t, err)

	tests := []struct {
		name string
		rect Rect
	}{
		{"zero width", Rect{X0: 80, Y0: 0, X1: 80, Y1: 100}},
		{"outside right", Rect{X0: 600, Y0: 0, X1: 700, Y1: 100}},
		{"outside top", Rect{X0: 0, Y0: -100, X1: 100, Y1: -20}},
		{"inverted", Rect{X0: 200, Y0: 200, X1: 100, Y1: 100}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Regional(pop[0], tc.rect)
			assert.ErrorIs(t, err, ErrEmptyRegion)
		})
	}
}

func TestGrid_ToLatent(t *testing.T) {
	g := Grid{ImageWidth: 512, ImageHeight: 512, LatentWidth: 64, LatentHeight: 64}

	tests := []struct {
		name string
		rect Rect
		want Region
	}{
		{"aligned", Rect{X0: 8, Y0: 16, X1: 24, Y1: 32}, Region{X0: 1, Y0: 2, X1: 3, Y1: 4}},
		{"floor start ceil end", Rect{X0: 9, Y0: 15, X1: 17, Y1: 33}, Region{X0: 1, Y0: 1, X1: 3, Y1: 5}},
		{"single pixel", Rect{X0: 100, Y0: 100, X1: 101, Y1: 101}, Region{X0: 12, Y0: 12, X1: 13, Y1: 13}},
		{"clamped", Rect{X0: -40, Y0: -1, X1: 900, Y1: 513}, Region{X0: 0, Y0: 0, X1: 64, Y1: 64}},
		{"full", Rect{X0: 0, Y0: 0, X1: 512, Y1: 512}, Region{X0: 0, Y0: 0, X1: 64, Y1: 64}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := g.ToLatent(tc.rect)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRegionalPopulation(t *testing.T) {
	e := newEngine(t, 11)
	pop, err := e.Initial()
	require.NoError(t, err)
	orig := pop.Clone()

	out, err := e.RegionalPopulation(pop, map[int]Rect{2: {X0: 0, Y0: 0, X1: 64, Y1: 64}})
	require.NoError(t, err)
	require.Len(t, out, 4)

	for _, i := range []int{0, 1, 3} {
		assert.True(t, testutil.BitEqual(orig[i].Data, out[i].Data), "candidate %d passes through", i)
	}
	assert.False(t, testutil.BitEqual(orig[2].Data, out[2].Data))
	assert.True(t, testutil.BitEqual(orig[2].Data, pop[2].Data), "input must not be modified")
	requireNormalized(t, e, out)
}

func TestRegionalPopulation_Errors(t *testing.T) {
	e := newEngine(t, 12)
	pop, err := e.Initial()
	require.NoError(t, err)

	_, err = e.RegionalPopulation(pop, nil)
	assert.ErrorIs(t, err, ErrEmptyRegion)

	_, err = e.RegionalPopulation(pop, map[int]Rect{4: {X1: 10, Y1: 10}})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = e.RegionalPopulation(pop, map[int]Rect{0: {X0: 8, X1: 8, Y1: 10}})
	assert.ErrorIs(t, err, ErrEmptyRegion)
}
