package queue

const (
	TypeDocumentIngest = "document:ingest"
)

// DocumentIngestPayload identifies a stored document whose extraction,
// embedding and indexing should run on a worker.
type DocumentIngestPayload struct {
	DocumentID string `json:"document_id"`
	Owner      string `json:"owner"`
}
