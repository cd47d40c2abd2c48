// Package blobstore provides the storage abstraction behind a session's
// persisted artifacts.
//
// BlobStore is the interface for reading and writing named blobs (rendered
// images, encoded latents, the step marker and the selection log).
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic temp-file + rename writes
//   - MemoryStore: in-process map, for tests and throwaway sessions
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error         // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Put must be atomic per blob: a reader sees either nothing, the old content
// or the full new content. The session store builds its step commit
// protocol on that guarantee.
package blobstore
