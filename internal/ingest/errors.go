package ingest

import "errors"

// Failure classes of the ingestion pipeline. Each step wraps its underlying
// error in exactly one of these so callers can map them to responses with
// errors.Is.
var (
	// ErrUnsupportedType is a local rejection; no external call is made and
	// no partial state is created.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrExtraction covers failed extraction calls and unimplemented
	// sub-formats (Word documents).
	ErrExtraction = errors.New("text extraction failed")
	ErrEmbedding  = errors.New("embedding generation failed")
	// ErrIndex is fatal only after the one-shot ensure-collection retry.
	// The document record and raw bytes are kept for a later re-index.
	ErrIndex = errors.New("index upsert failed")
)
