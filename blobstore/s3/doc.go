// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	blobs, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("sessions/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	st := store.New(blobs)
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large blobs
//   - CRC32C checksums on upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
