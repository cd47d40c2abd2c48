// Package resource governs the concurrency and bandwidth of session writes.
//
// A Controller bounds two things:
//
//   - Write slots: how many blob writes of one step run at once
//   - IO: a token bucket over written bytes, so a slow remote store is not
//     flooded while a step is persisted
//
// A nil *Controller imposes no limits.
//
//	rc := resource.NewController(resource.Config{
//	    MaxParallelWrites: 4,
//	    IOLimitBytesPerSec: 8 << 20,
//	})
package resource
