// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: Represents an open file with read/write/sync capabilities
//   - [FileSystem]: Abstracts filesystem operations (open, remove, rename, etc.)
//
// # Implementations
//
//   - [LocalFS]: Production implementation using standard os package
//   - [FaultyFS]: Test utility for fault injection (simulate I/O errors)
//
// Tests inject [FaultyFS] into blobstore.LocalStore to check that a failed
// write never leaves a session step marked complete:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("step_1/latent_2", fs.Fault{FailOnWrite: true})
//	store := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
//
// Filesystem calls carry no context.Context; local writes of a few
// hundred kilobytes are not worth interrupting.
package fs
