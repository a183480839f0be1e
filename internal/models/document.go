package models

import (
	"time"
)

// Document is the metadata record for an uploaded source file. The raw bytes
// live in blob storage under the document ID; the searchable representation
// lives in the search index under VectorID once ingestion completes.
type Document struct {
	ID          string    `json:"id" db:"id"`
	Filename    string    `json:"filename" db:"filename"`
	ContentType string    `json:"content_type" db:"content_type"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	Owner       string    `json:"owner" db:"owner"`
	VectorID    *string   `json:"vector_id,omitempty" db:"vector_id"`
	Title       string    `json:"title,omitempty" db:"title"`
	Description string    `json:"description,omitempty" db:"description"`
	Tags        []string  `json:"tags,omitempty" db:"tags"`
	Status      string    `json:"status" db:"status"`
	UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
}

const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusIndexed    = "indexed"
	DocStatusFailed     = "failed"
)
