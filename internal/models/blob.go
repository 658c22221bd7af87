package models

import "time"

// BlobDescriptor is what ingestion reports about freshly stored bytes.
type BlobDescriptor struct {
	StorageKey  string    `json:"storage_key" yaml:"storage_key"`
	TotalLength int64     `json:"total_length" yaml:"total_length"`
	ContentType string    `json:"content_type" yaml:"content_type"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}
