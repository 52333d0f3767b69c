// Package s3 provides an S3 implementation of the blobstore.BlobStore
// interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("indexes/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads with CRC32C validation for large snapshots
//   - Conditional writes (If-None-Match) for create-once blobs
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//
// For atomic version pointers over S3, see CommitStore, which pairs the
// bucket with a DynamoDB table for compare-and-swap commits.
package s3
