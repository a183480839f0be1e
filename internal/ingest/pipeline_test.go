package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keikapi/AIApp/internal/document"
	"github.com/keikapi/AIApp/internal/models"
	"github.com/keikapi/AIApp/internal/searchindex"
)

type fakeStorage struct {
	objects map[string][]byte
	puts    int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Put(_ context.Context, _, key string, data io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[key] = b
	s.puts++
	return nil
}

func (s *fakeStorage) Get(_ context.Context, _, key string) (io.ReadCloser, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStorage) Delete(_ context.Context, _, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) SignedURL(_ context.Context, _, key string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + key, nil
}

type fakeMeta struct {
	docs map[string]*models.Document
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{docs: make(map[string]*models.Document)}
}

func (m *fakeMeta) Insert(_ context.Context, doc *models.Document) error {
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *fakeMeta) GetByID(_ context.Context, id string) (*models.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *fakeMeta) SetStatus(_ context.Context, id, status string) error {
	if doc, ok := m.docs[id]; ok {
		doc.Status = status
	}
	return nil
}

func (m *fakeMeta) SetVectorID(_ context.Context, id, vectorID string) error {
	if doc, ok := m.docs[id]; ok {
		doc.VectorID = &vectorID
		doc.Status = models.DocStatusIndexed
	}
	return nil
}

type fakeEmbedder struct {
	err   error
	calls []string
}

func (e *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	e.calls = append(e.calls, text)
	if e.err != nil {
		return nil, e.err
	}
	// Deterministic: same text, same vector.
	return []float32{float32(len(text)), 1, 2}, nil
}

type fakeIndex struct {
	entries     map[string]searchindex.Entry
	ensureCalls int
	upsertErrs  []error
	upsertCalls int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: make(map[string]searchindex.Entry)}
}

func (i *fakeIndex) EnsureCollection(_ context.Context) error {
	i.ensureCalls++
	return nil
}

func (i *fakeIndex) Upsert(_ context.Context, entry searchindex.Entry) error {
	i.upsertCalls++
	if len(i.upsertErrs) > 0 {
		err := i.upsertErrs[0]
		i.upsertErrs = i.upsertErrs[1:]
		if err != nil {
			return err
		}
	}
	i.entries[entry.ID] = entry
	return nil
}

func (i *fakeIndex) Search(_ context.Context, _ string, _ int) ([]searchindex.Hit, error) {
	return nil, nil
}

func newTestPipeline() (*Pipeline, *fakeStorage, *fakeMeta, *fakeEmbedder, *fakeIndex) {
	store := newFakeStorage()
	meta := newFakeMeta()
	embedder := &fakeEmbedder{}
	index := newFakeIndex()
	p := NewPipeline(store, meta, document.NewTextExtractor(nil), embedder, index, "documents")
	return p, store, meta, embedder, index
}

func TestIngestSuccess(t *testing.T) {
	p, store, meta, _, index := newTestPipeline()

	doc, err := p.Ingest(context.Background(), []byte("quarterly revenue grew"), "report.txt", "text/plain", "alice")
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, models.DocStatusIndexed, doc.Status)
	require.NotNil(t, doc.VectorID)
	assert.Equal(t, doc.ID, *doc.VectorID)

	assert.Contains(t, store.objects, doc.ID)

	stored, err := meta.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Owner)

	entry, ok := index.entries[doc.ID]
	require.True(t, ok)
	assert.Equal(t, "quarterly revenue grew", entry.Text)
	assert.Equal(t, "documents", entry.Metadata.Bucket)
	assert.Equal(t, doc.ID, entry.Metadata.SourceKey)
}

func TestIngestUniqueIDsForSameFilename(t *testing.T) {
	p, _, _, _, _ := newTestPipeline()

	first, err := p.Ingest(context.Background(), []byte("v1"), "notes.txt", "text/plain", "alice")
	require.NoError(t, err)
	second, err := p.Ingest(context.Background(), []byte("v2"), "notes.txt", "text/plain", "alice")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Contains(t, first.ID, "-notes.txt")
	assert.Contains(t, second.ID, "-notes.txt")
}

func TestIngestUnsupportedTypeHasNoSideEffects(t *testing.T) {
	p, store, meta, _, index := newTestPipeline()

	doc, err := p.Ingest(context.Background(), []byte("binary"), "archive.zip", "application/zip", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Nil(t, doc)

	assert.Zero(t, store.puts)
	assert.Empty(t, meta.docs)
	assert.Zero(t, index.upsertCalls)
}

func TestIngestWordDocumentFailsExtraction(t *testing.T) {
	p, _, meta, _, _ := newTestPipeline()

	doc, err := p.Ingest(context.Background(), []byte("PK..."), "memo.docx", "", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)

	// The blob and record survive the failure so the document can be
	// reprocessed once Word support lands.
	require.NotNil(t, doc)
	stored, err := meta.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusFailed, stored.Status)
}

func TestIngestEmbeddingFailure(t *testing.T) {
	p, _, meta, embedder, index := newTestPipeline()
	embedder.err = errors.New("upstream quota exceeded")

	doc, err := p.Ingest(context.Background(), []byte("some text"), "notes.txt", "text/plain", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbedding)

	require.NotNil(t, doc)
	stored, err := meta.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusFailed, stored.Status)
	assert.Zero(t, index.upsertCalls)
}

func TestIngestCreatesMissingCollectionAndRetriesOnce(t *testing.T) {
	p, _, _, _, index := newTestPipeline()
	index.upsertErrs = []error{fmt.Errorf("relation absent: %w", searchindex.ErrCollectionMissing)}

	doc, err := p.Ingest(context.Background(), []byte("self healing"), "notes.txt", "text/plain", "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, index.ensureCalls)
	assert.Equal(t, 2, index.upsertCalls)
	assert.Contains(t, index.entries, doc.ID)
}

func TestIngestSecondUpsertFailureSurfaces(t *testing.T) {
	p, _, meta, _, index := newTestPipeline()
	index.upsertErrs = []error{
		searchindex.ErrCollectionMissing,
		errors.New("index write rejected"),
	}

	doc, err := p.Ingest(context.Background(), []byte("still failing"), "notes.txt", "text/plain", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndex)

	assert.Equal(t, 1, index.ensureCalls)
	assert.Equal(t, 2, index.upsertCalls)

	stored, err := meta.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusFailed, stored.Status)
}

func TestIngestNonMissingUpsertErrorDoesNotCreateCollection(t *testing.T) {
	p, _, _, _, index := newTestPipeline()
	index.upsertErrs = []error{errors.New("connection refused")}

	_, err := p.Ingest(context.Background(), []byte("some text"), "notes.txt", "text/plain", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndex)
	assert.Zero(t, index.ensureCalls)
	assert.Equal(t, 1, index.upsertCalls)
}

func TestReingestSameContentProducesNewEntry(t *testing.T) {
	p, _, _, _, index := newTestPipeline()

	data := []byte("identical content")
	first, err := p.Ingest(context.Background(), data, "dup.txt", "text/plain", "alice")
	require.NoError(t, err)
	second, err := p.Ingest(context.Background(), data, "dup.txt", "text/plain", "alice")
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	assert.Len(t, index.entries, 2)
	assert.Equal(t, index.entries[first.ID].Text, index.entries[second.ID].Text)
	assert.Equal(t, index.entries[first.ID].Vector, index.entries[second.ID].Vector)
}

func TestReprocess(t *testing.T) {
	p, _, meta, _, index := newTestPipeline()
	index.upsertErrs = []error{
		searchindex.ErrCollectionMissing,
		errors.New("index unavailable"),
	}

	doc, err := p.Ingest(context.Background(), []byte("retry me later"), "notes.txt", "text/plain", "alice")
	require.Error(t, err)
	require.NotNil(t, doc)

	// Index recovered; a reprocess run completes the pipeline.
	require.NoError(t, p.Reprocess(context.Background(), doc.ID))

	stored, err := meta.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusIndexed, stored.Status)
	assert.Contains(t, index.entries, doc.ID)
}

func TestReprocessUnknownDocument(t *testing.T) {
	p, _, _, _, _ := newTestPipeline()

	err := p.Reprocess(context.Background(), "1-ghost.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, document.ErrNotFound)
}
