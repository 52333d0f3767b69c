// Package blobstore abstracts durable storage for index archives.
//
// An archive is an immutable snapshot of an index plus a small manifest
// describing it. BlobStore implementations move those blobs between the
// local machine and remote storage:
//
//   - MemoryStore: in-memory, for tests
//   - LocalStore: local filesystem, memory-mapped reads
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - minio.Store: MinIO and other S3-compatible services
//
// CachingStore layers a block cache over any of them, so repeated reads
// of remote archives stay local.
package blobstore
