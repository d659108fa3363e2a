// Package blobstore provides storage abstraction for corrfuse model
// snapshots.
//
// BlobStore is the interface for reading and writing snapshot blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: In-memory, for tests and ephemeral models
//   - LocalStore: Local filesystem with mmap reads and atomic writes
//   - s3.Store: Amazon S3 with managed multipart uploads
//   - minio.Store: MinIO and other S3-compatible object stores
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends.
// Stores only need whole-blob semantics; snapshots are written once and
// read back in full.
package blobstore
