// Package minio provides a BlobStore implementation using the MinIO
// client.
//
// MinIO is a high-performance, S3-compatible object storage system.
// This package uses the official MinIO Go client for compatibility with
// MinIO and other S3-compatible systems like Ceph, SeaweedFS, and
// Garage.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "my-bucket", "indexes/")
//
// # Features
//
//   - Ranged reads for partial snapshot fetches
//   - Streaming uploads for large snapshots
//   - Works with any S3-compatible storage
//   - Air-gap friendly, no AWS account required
package minio
