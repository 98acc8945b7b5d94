// internal/models/common.go
package models

// IngestSource is the provenance tag on mirror rows: which ingestion path
// wrote the row last.
type IngestSource string

const (
	IngestSourceFollower IngestSource = "follower"
	IngestSourceReceipt  IngestSource = "receipt"
)
