// Package s3 provides a small client for S3-compatible object storage.
//
// It backs the s3 persistence backend: every record is stored as one JSON
// object under a key prefix. Both AWS and S3-compatible services (Hetzner
// Object Storage, MinIO) are supported through a configurable endpoint.
package s3
