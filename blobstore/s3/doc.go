// Package s3 implements blobstore.BlobStore on Amazon S3.
//
// Snapshots are written with managed multipart uploads and read back with
// ranged GETs, so large models never need to be buffered twice in memory.
package s3
