package mutation

import (
	"fmt"

	"github.com/hupe1980/evolatent/internal/math32"
	"github.com/hupe1980/evolatent/latent"
)

// Options configures an Engine.
type Options struct {
	// PopulationSize is K, the number of children per generation.
	PopulationSize int
	// ImageWidth and ImageHeight are the rendered image size in pixels.
	ImageWidth  int
	ImageHeight int
	// Decay and DecayFactor control the mutation-rate schedule.
	Decay       DecayPolicy
	DecayFactor float64
}

// DefaultOptions matches a 512x512 renderer and four candidates.
var DefaultOptions = Options{
	PopulationSize: 4,
	ImageWidth:     512,
	ImageHeight:    512,
	Decay:          DecaySingleParent,
	DecayFactor:    DefaultDecayFactor,
}

// Option mutates Options.
type Option func(*Options)

// WithPopulationSize sets K.
func WithPopulationSize(k int) Option {
	return func(o *Options) { o.PopulationSize = k }
}

// WithImageSize sets the pixel size of rendered images.
func WithImageSize(width, height int) Option {
	return func(o *Options) {
		o.ImageWidth = width
		o.ImageHeight = height
	}
}

// WithDecay sets the decay policy and factor.
func WithDecay(policy DecayPolicy, factor float64) Option {
	return func(o *Options) {
		o.Decay = policy
		o.DecayFactor = factor
	}
}

// Engine mutates latents drawn from one latent.Space.
//
// An Engine shares the space's random source and is not safe for
// concurrent use.
type Engine struct {
	space *latent.Space
	opts  Options
	grid  Grid
}

// New returns an Engine over space.
func New(space *latent.Space, optFns ...Option) (*Engine, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.PopulationSize < 1 {
		return nil, fmt.Errorf("mutation: population size must be >= 1, got %d", opts.PopulationSize)
	}
	if opts.ImageWidth < 1 || opts.ImageHeight < 1 {
		return nil, fmt.Errorf("mutation: invalid image size %dx%d", opts.ImageWidth, opts.ImageHeight)
	}
	if opts.DecayFactor <= 0 || opts.DecayFactor > 1 {
		return nil, fmt.Errorf("mutation: decay factor must be in (0,1], got %v", opts.DecayFactor)
	}

	shape := space.Shape()
	return &Engine{
		space: space,
		opts:  opts,
		grid: Grid{
			ImageWidth:   opts.ImageWidth,
			ImageHeight:  opts.ImageHeight,
			LatentWidth:  shape.W,
			LatentHeight: shape.H,
		},
	}, nil
}

// Space returns the engine's latent space.
func (e *Engine) Space() *latent.Space { return e.space }

// Grid returns the pixel-to-latent mapping.
func (e *Engine) Grid() Grid { return e.grid }

// PopulationSize returns K.
func (e *Engine) PopulationSize() int { return e.opts.PopulationSize }

// Initial samples K fresh normalized latents.
func (e *Engine) Initial() (latent.Population, error) {
	pop := e.space.SampleN(e.opts.PopulationSize)
	for _, v := range pop {
		if err := e.space.NormalizeInPlace(v); err != nil {
			return nil, err
		}
	}
	return pop, nil
}

// NextRate returns the rate after a global mutation from the given number of
// parents.
func (e *Engine) NextRate(rate float64, parents int) float64 {
	if e.opts.Decay.Applies(parents) {
		return rate * e.opts.DecayFactor
	}
	return rate
}

// Global produces K children from parents. The base is the single parent or
// the elementwise mean of all parents; child i (1-based) is
// normalize(base + noise·(i/K)·rate). It also returns the rate to use for the
// next generation. Parents are not modified.
func (e *Engine) Global(parents latent.Population, rate float64) (latent.Population, float64, error) {
	if len(parents) == 0 {
		return nil, rate, ErrEmptySelection
	}
	for _, p := range parents {
		if err := e.space.Check(p); err != nil {
			return nil, rate, err
		}
	}

	base := parents[0].Clone()
	if len(parents) > 1 {
		data := make([][]float32, len(parents))
		for i, p := range parents {
			data[i] = p.Data
		}
		math32.Mean(base.Data, data...)
	}

	k := e.opts.PopulationSize
	noise := make([]float32, len(base.Data))
	children := make(latent.Population, k)
	for i := range children {
		child := base.Clone()
		e.space.Fill(noise)
		math32.AxpyInPlace(child.Data, noise, float64(i+1)/float64(k)*rate)
		if err := e.space.NormalizeInPlace(child); err != nil {
			return nil, rate, err
		}
		children[i] = child
	}

	return children, e.NextRate(rate, len(parents)), nil
}

// Regional returns a copy of v with every channel inside r (image pixels)
// redrawn from standard-normal noise, renormalized as a whole.
func (e *Engine) Regional(v latent.Vector, r Rect) (latent.Vector, error) {
	if err := e.space.Check(v); err != nil {
		return latent.Vector{}, err
	}
	reg, err := e.grid.ToLatent(r)
	if err != nil {
		return latent.Vector{}, err
	}

	out := v.Clone()
	e.resample(out, reg)
	if err := e.space.NormalizeInPlace(out); err != nil {
		return latent.Vector{}, err
	}
	return out, nil
}

// RegionalPopulation applies Regional to every candidate that has an entry in
// regions; the others are copied through unchanged. All regions are
// validated before any noise is drawn.
func (e *Engine) RegionalPopulation(pop latent.Population, regions map[int]Rect) (latent.Population, error) {
	if len(regions) == 0 {
		return nil, ErrEmptyRegion
	}
	for i, r := range regions {
		if i < 0 || i >= len(pop) {
			return nil, fmt.Errorf("%w: %d (population size %d)", ErrIndexOutOfRange, i, len(pop))
		}
		if _, err := e.grid.ToLatent(r); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
	}

	out := make(latent.Population, len(pop))
	for i, v := range pop {
		r, ok := regions[i]
		if !ok {
			out[i] = v.Clone()
			continue
		}
		m, err := e.Regional(v, r)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

// resample draws noise row by row in NCHW order, so a region covering the
// whole grid consumes the source exactly like Space.Sample.
func (e *Engine) resample(v latent.Vector, reg Region) {
	s := v.Shape
	for n := range s.N {
		for c := range s.C {
			for y := reg.Y0; y < reg.Y1; y++ {
				start := s.Index(n, c, y, reg.X0)
				e.space.Fill(v.Data[start : start+reg.X1-reg.X0])
			}
		}
	}
}
