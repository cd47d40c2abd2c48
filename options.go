package evolatent

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/evolatent/latent"
	"github.com/hupe1980/evolatent/mutation"
)

// DefaultMutationRate is the mutation rate of a fresh session.
const DefaultMutationRate = 1.0

type options struct {
	populationSize   int
	shape            latent.Shape
	imageWidth       int
	imageHeight      int
	mutationRate     float64
	decay            mutation.DecayPolicy
	decayFactor      float64
	source           latent.Source
	metricsCollector MetricsCollector
	logger           *Logger
	now              func() time.Time
}

// Option configures a Session.
type Option func(*options)

// WithPopulationSize sets the number of candidates per step (default 4).
func WithPopulationSize(k int) Option {
	return func(o *options) {
		o.populationSize = k
	}
}

// WithShape sets the latent shape (default latent.DefaultShape).
func WithShape(shape latent.Shape) Option {
	return func(o *options) {
		o.shape = shape
	}
}

// WithImageSize sets the rendered image size used to map crop rectangles
// into latent space (default 512x512).
func WithImageSize(width, height int) Option {
	return func(o *options) {
		o.imageWidth = width
		o.imageHeight = height
	}
}

// WithInitialMutationRate sets the mutation rate of a fresh session
// (default DefaultMutationRate). Resumed sessions continue with the
// persisted rate.
func WithInitialMutationRate(rate float64) Option {
	return func(o *options) {
		o.mutationRate = rate
	}
}

// WithDecay configures when and how strongly the mutation rate decays.
//
// Example:
//
//	s, _ := evolatent.New(renderer, st,
//	    evolatent.WithDecay(mutation.DecayAlways, 0.5),
//	)
func WithDecay(policy mutation.DecayPolicy, factor float64) Option {
	return func(o *options) {
		o.decay = policy
		o.decayFactor = factor
	}
}

// WithRandSource sets the Gaussian source used for sampling and mutation.
// The session must be the only user of src.
func WithRandSource(src latent.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithSeed is a convenience wrapper for WithRandSource(latent.NewSource(seed)).
// Two sessions with the same seed, prompt and selections produce bit-identical
// latents.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.source = latent.NewSource(seed)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &evolatent.BasicMetricsCollector{}
//	s, _ := evolatent.New(renderer, st, evolatent.WithMetricsCollector(metrics))
//	// ... use s ...
//	stats := metrics.GetStats()
//	fmt.Printf("Steps: %d, Avg render: %dns\n", stats.PersistCount, stats.RenderAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := evolatent.NewJSONLogger(slog.LevelInfo)
//	s, _ := evolatent.New(renderer, st, evolatent.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithClock overrides the time source for selection records.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		populationSize:   4,
		shape:            latent.DefaultShape,
		imageWidth:       512,
		imageHeight:      512,
		mutationRate:     DefaultMutationRate,
		decay:            mutation.DecaySingleParent,
		decayFactor:      mutation.DefaultDecayFactor,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		now:              time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

func (o options) validate() error {
	if err := o.shape.Validate(); err != nil {
		return err
	}
	if o.mutationRate < 0 {
		return fmt.Errorf("evolatent: negative mutation rate %v", o.mutationRate)
	}
	return nil
}
