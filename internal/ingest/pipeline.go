package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/keikapi/AIApp/internal/document"
	"github.com/keikapi/AIApp/internal/models"
	"github.com/keikapi/AIApp/internal/searchindex"
	"github.com/keikapi/AIApp/internal/storage"
	"github.com/keikapi/AIApp/pkg/textextract"
)

// MetadataStore persists document metadata. *document.Service is the real
// implementation; tests substitute a fake.
type MetadataStore interface {
	Insert(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	SetStatus(ctx context.Context, id, status string) error
	SetVectorID(ctx context.Context, id, vectorID string) error
}

// Embedder produces a fixed-length vector for a text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Pipeline turns an uploaded file into an indexed, searchable entry. Steps run
// strictly in sequence; each external call is a failure boundary.
type Pipeline struct {
	store     storage.Storage
	meta      MetadataStore
	extractor document.TextExtractor
	embedder  Embedder
	index     searchindex.Index
	bucket    string
}

func NewPipeline(store storage.Storage, meta MetadataStore, extractor document.TextExtractor, embedder Embedder, index searchindex.Index, bucket string) *Pipeline {
	return &Pipeline{
		store:     store,
		meta:      meta,
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		bucket:    bucket,
	}
}

// Ingest runs the full pipeline synchronously: type dispatch, blob write,
// extraction, embedding, index upsert. On failures past the blob write the
// returned Document is still valid — raw bytes stay retrievable and the
// document can be reprocessed later.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, filename, contentType, owner string) (*models.Document, error) {
	doc, err := p.Accept(ctx, data, filename, contentType, owner)
	if err != nil {
		return nil, err
	}
	if err := p.process(ctx, doc, data); err != nil {
		return doc, err
	}
	return doc, nil
}

// Accept performs the synchronous front half: reject unsupported types before
// any side effect, then write the blob and the metadata record. Processing
// can then happen inline or on a worker.
func (p *Pipeline) Accept(ctx context.Context, data []byte, filename, contentType, owner string) (*models.Document, error) {
	if _, err := textextract.Detect(filename, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:          fmt.Sprintf("%d-%s", now.UnixNano(), filename),
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		Owner:       owner,
		Status:      models.DocStatusPending,
		UploadedAt:  now,
	}

	if err := p.store.Put(ctx, p.bucket, doc.ID, bytes.NewReader(data), doc.SizeBytes, contentType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	if err := p.meta.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("record document: %w", err)
	}

	return doc, nil
}

// Reprocess re-runs extraction, embedding and indexing for a stored document.
// Used by the background worker and for re-indexing after an index failure.
func (p *Pipeline) Reprocess(ctx context.Context, documentID string) error {
	doc, err := p.meta.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	rc, err := p.store.Get(ctx, p.bucket, doc.ID)
	if err != nil {
		return fmt.Errorf("fetch document bytes: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read document bytes: %w", err)
	}

	return p.process(ctx, doc, data)
}

func (p *Pipeline) process(ctx context.Context, doc *models.Document, data []byte) error {
	if err := p.meta.SetStatus(ctx, doc.ID, models.DocStatusProcessing); err != nil {
		slog.Warn("status update failed", "document_id", doc.ID, "error", err)
	}

	kind, err := textextract.Detect(doc.Filename, doc.ContentType)
	if err != nil {
		return p.fail(ctx, doc.ID, fmt.Errorf("%w: %v", ErrUnsupportedType, err))
	}

	text, err := p.extractor.Extract(ctx, data, kind, p.bucket, doc.ID)
	if err != nil {
		return p.fail(ctx, doc.ID, fmt.Errorf("%w: %v", ErrExtraction, err))
	}

	vector, err := p.embedder.EmbedText(ctx, text)
	if err != nil {
		return p.fail(ctx, doc.ID, fmt.Errorf("%w: %v", ErrEmbedding, err))
	}

	entry := searchindex.Entry{
		ID:     doc.ID,
		Text:   text,
		Vector: vector,
		Metadata: searchindex.Metadata{
			Bucket:      p.bucket,
			SourceKey:   doc.ID,
			FileType:    string(kind),
			Title:       doc.Title,
			Description: doc.Description,
			Timestamp:   time.Now(),
		},
	}

	if err := p.upsert(ctx, entry); err != nil {
		return p.fail(ctx, doc.ID, fmt.Errorf("%w: %v", ErrIndex, err))
	}

	if err := p.meta.SetVectorID(ctx, doc.ID, doc.ID); err != nil {
		slog.Warn("vector id update failed", "document_id", doc.ID, "error", err)
	}
	doc.VectorID = &doc.ID
	doc.Status = models.DocStatusIndexed

	slog.Info("document ingested", "document_id", doc.ID, "file_type", kind, "text_chars", len(text))
	return nil
}

// upsert writes the entry, creating the collection and retrying exactly once
// if it does not exist yet. A second failure surfaces to the caller.
func (p *Pipeline) upsert(ctx context.Context, entry searchindex.Entry) error {
	err := p.index.Upsert(ctx, entry)
	if err == nil {
		return nil
	}
	if !errors.Is(err, searchindex.ErrCollectionMissing) {
		return err
	}

	slog.Info("search collection missing, creating", "entry_id", entry.ID)
	if err := p.index.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return p.index.Upsert(ctx, entry)
}

func (p *Pipeline) fail(ctx context.Context, documentID string, err error) error {
	if serr := p.meta.SetStatus(ctx, documentID, models.DocStatusFailed); serr != nil {
		slog.Warn("status update failed", "document_id", documentID, "error", serr)
	}
	return err
}
