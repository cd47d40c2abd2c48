// Package minio provides a MinIO implementation of the blobstore.BlobStore
// interface. It works with MinIO and other S3-compatible servers
// (Ceph RGW, SeaweedFS, Garage).
//
// # Usage
//
//	blobs, err := minio.New(ctx, minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "evolatent",
//	    Prefix:    "sessions/",
//	})
//
//	st := store.New(blobs)
package minio
