package searchindex

import (
	"context"
	"errors"
	"time"
)

// ErrCollectionMissing is returned by Upsert and Search when the backing
// collection has not been created yet. The ingestion pipeline treats it as
// self-healing: EnsureCollection, then retry once.
var ErrCollectionMissing = errors.New("search collection missing")

// Entry is one indexed document: raw text plus its embedding and source
// metadata. One entry exists per successfully ingested document.
type Entry struct {
	ID        string
	Text      string
	Vector    []float32
	Metadata  Metadata
}

type Metadata struct {
	Bucket      string    `json:"bucket"`
	SourceKey   string    `json:"source_key"`
	FileType    string    `json:"file_type"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Hit is one ranked search result.
type Hit struct {
	ID          string  `json:"id"`
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Index is the external search service surface: a logical collection of
// vectorized documents queryable by relevance.
type Index interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, entry Entry) error
	// Search runs a best-fields match over text, title and description and
	// returns up to topK hits ordered by descending score. Ties keep the
	// collection's return order.
	Search(ctx context.Context, query string, topK int) ([]Hit, error)
}
