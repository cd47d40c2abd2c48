package store

import (
	"time"

	"github.com/hupe1980/evolatent/codec"
	"github.com/hupe1980/evolatent/latent"
)

type options struct {
	codec             codec.Codec
	compression       latent.Compression
	imageExt          string
	maxParallelWrites int
	ioLimit           int64
	sessionID         string
	now               func() time.Time
}

func defaultOptions() options {
	return options{
		codec:             codec.Default,
		compression:       latent.CompressionNone,
		imageExt:          "png",
		maxParallelWrites: 4,
		now:               time.Now,
	}
}

// Option configures a Store.
type Option func(*options)

// WithCodec sets the codec for step.json and user_log.json.
func WithCodec(c codec.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithCompression sets the payload compression of latent files.
func WithCompression(c latent.Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithImageExt sets the image file extension used when a step record does
// not name one.
func WithImageExt(ext string) Option {
	return func(o *options) { o.imageExt = ext }
}

// WithMaxParallelWrites bounds concurrent blob writes within one step.
func WithMaxParallelWrites(n int) Option {
	return func(o *options) { o.maxParallelWrites = n }
}

// WithIOLimit caps write throughput in bytes per second. 0 disables the cap.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) { o.ioLimit = bytesPerSec }
}

// WithSessionID fixes the session id instead of deriving one on first use.
func WithSessionID(id string) Option {
	return func(o *options) { o.sessionID = id }
}

// WithClock sets the time source for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
