package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/keikapi/AIApp/internal/ingest"
	"github.com/keikapi/AIApp/internal/queue"
)

// IngestWorker runs the back half of the ingestion pipeline for documents
// accepted by the API.
type IngestWorker struct {
	pipeline *ingest.Pipeline
}

func NewIngestWorker(p *ingest.Pipeline) *IngestWorker {
	return &IngestWorker{pipeline: p}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	slog.Info("ingesting document", "document_id", payload.DocumentID)

	if err := w.pipeline.Reprocess(ctx, payload.DocumentID); err != nil {
		// Unsupported and unimplemented formats will not heal on retry.
		if errors.Is(err, ingest.ErrUnsupportedType) || errors.Is(err, ingest.ErrExtraction) {
			slog.Error("document unprocessable, dropping task",
				"document_id", payload.DocumentID, "error", err)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("ingest document %s: %w", payload.DocumentID, err)
	}

	slog.Info("document ingested", "document_id", payload.DocumentID)
	return nil
}
