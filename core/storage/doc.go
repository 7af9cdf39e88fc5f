// Package storage wraps the Minio S3 client used to archive IntegrationEvent
// audit records. The Client interface exists so the archiver can be tested
// with a mock instead of a live bucket.
package storage
