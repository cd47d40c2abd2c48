package evolatent

import (
	"math"
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// the metric package ships a ready-made implementation.
type MetricsCollector interface {
	// RecordGenerate is called after each state transition attempt.
	// kind is "initial", "global" or "regional"; err is nil if successful.
	RecordGenerate(kind string, duration time.Duration, err error)

	// RecordRender is called after each renderer call.
	// count is the number of latents submitted.
	RecordRender(count int, duration time.Duration, err error)

	// RecordPersist is called after each step write.
	// bytes is the total number of bytes written for the step.
	RecordPersist(step int, bytes int64, duration time.Duration, err error)

	// RecordRejected is called when a request is refused without a state change.
	RecordRejected(reason string)

	// RecordMutationRate is called whenever the mutation rate changes.
	RecordMutationRate(rate float64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGenerate(string, time.Duration, error)    {}
func (NoopMetricsCollector) RecordRender(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordPersist(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordRejected(string)                          {}
func (NoopMetricsCollector) RecordMutationRate(float64)                     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	GenerateCount      atomic.Int64
	GenerateErrors     atomic.Int64
	GenerateTotalNanos atomic.Int64
	RenderCount        atomic.Int64
	RenderErrors       atomic.Int64
	RenderTotalNanos   atomic.Int64
	RenderedImages     atomic.Int64
	PersistCount       atomic.Int64
	PersistErrors      atomic.Int64
	PersistBytes       atomic.Int64
	RejectedCount      atomic.Int64
	LastStep           atomic.Int64

	// mutationRate holds math.Float64bits of the latest rate.
	mutationRate atomic.Uint64
}

// RecordGenerate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGenerate(_ string, duration time.Duration, err error) {
	b.GenerateCount.Add(1)
	b.GenerateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GenerateErrors.Add(1)
	}
}

// RecordRender implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRender(count int, duration time.Duration, err error) {
	b.RenderCount.Add(1)
	b.RenderTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RenderErrors.Add(1)
		return
	}
	b.RenderedImages.Add(int64(count))
}

// RecordPersist implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPersist(step int, bytes int64, _ time.Duration, err error) {
	b.PersistCount.Add(1)
	if err != nil {
		b.PersistErrors.Add(1)
		return
	}
	b.PersistBytes.Add(bytes)
	b.LastStep.Store(int64(step))
}

// RecordRejected implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRejected(string) {
	b.RejectedCount.Add(1)
}

// RecordMutationRate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMutationRate(rate float64) {
	b.mutationRate.Store(math.Float64bits(rate))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		GenerateCount:    b.GenerateCount.Load(),
		GenerateErrors:   b.GenerateErrors.Load(),
		GenerateAvgNanos: avgNanos(b.GenerateTotalNanos.Load(), b.GenerateCount.Load()),
		RenderCount:      b.RenderCount.Load(),
		RenderErrors:     b.RenderErrors.Load(),
		RenderAvgNanos:   avgNanos(b.RenderTotalNanos.Load(), b.RenderCount.Load()),
		RenderedImages:   b.RenderedImages.Load(),
		PersistCount:     b.PersistCount.Load(),
		PersistErrors:    b.PersistErrors.Load(),
		PersistBytes:     b.PersistBytes.Load(),
		RejectedCount:    b.RejectedCount.Load(),
		LastStep:         b.LastStep.Load(),
		MutationRate:     math.Float64frombits(b.mutationRate.Load()),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	GenerateCount    int64
	GenerateErrors   int64
	GenerateAvgNanos int64
	RenderCount      int64
	RenderErrors     int64
	RenderAvgNanos   int64
	RenderedImages   int64
	PersistCount     int64
	PersistErrors    int64
	PersistBytes     int64
	RejectedCount    int64
	LastStep         int64
	MutationRate     float64
}
