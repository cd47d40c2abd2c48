package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxParallelWrites is the maximum number of concurrent blob writes.
	// If 0, defaults to 1.
	MaxParallelWrites int64

	// IOLimitBytesPerSec is the maximum write throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages write concurrency and throughput.
type Controller struct {
	cfg Config

	writeSem *semaphore.Weighted

	ioLimiter *rate.Limiter
	written   atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxParallelWrites <= 0 {
		cfg.MaxParallelWrites = 1
	}

	c := &Controller{
		cfg:      cfg,
		writeSem: semaphore.NewWeighted(cfg.MaxParallelWrites),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// MaxParallelWrites returns the configured write slot count.
func (c *Controller) MaxParallelWrites() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.MaxParallelWrites)
}

// AcquireWrite reserves a write slot, blocking until one is free or ctx is
// canceled.
func (c *Controller) AcquireWrite(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.writeSem.Acquire(ctx, 1)
}

// ReleaseWrite releases a write slot.
func (c *Controller) ReleaseWrite() {
	if c == nil {
		return
	}
	c.writeSem.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than the bucket are split so they never fail outright.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	c.written.Add(int64(bytes))
	if c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// BytesWritten returns the total number of bytes passed through AcquireIO.
func (c *Controller) BytesWritten() int64 {
	if c == nil {
		return 0
	}
	return c.written.Load()
}
