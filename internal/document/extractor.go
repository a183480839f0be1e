package document

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keikapi/AIApp/pkg/textextract"
)

// minLocalText is the threshold under which a PDF is assumed to be scanned
// and handed to the analysis service.
const minLocalText = 50

// TextExtractor turns stored document bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, kind textextract.Kind, bucket, key string) (string, error)
}

type extractor struct {
	analysis *AnalysisClient
}

// NewTextExtractor builds the format-dispatching extractor. The analysis
// client may be nil when no external analysis service is configured.
func NewTextExtractor(analysis *AnalysisClient) TextExtractor {
	return &extractor{analysis: analysis}
}

func (e *extractor) Extract(ctx context.Context, data []byte, kind textextract.Kind, bucket, key string) (string, error) {
	text, err := textextract.Extract(data, kind)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	// Scanned PDFs carry no embedded text; route those through the
	// external analysis job and wait for it to finish.
	if kind == textextract.KindPDF && len(text) < minLocalText && e.analysis.IsConfigured() {
		slog.Info("local PDF extraction too sparse, starting analysis job", "key", key, "local_chars", len(text))

		jobID, err := e.analysis.StartAnalysis(ctx, bucket, key)
		if err != nil {
			return "", fmt.Errorf("start analysis: %w", err)
		}
		analyzed, err := e.analysis.WaitForAnalysis(ctx, jobID)
		if err != nil {
			return "", fmt.Errorf("analyze document: %w", err)
		}
		return analyzed, nil
	}

	return text, nil
}
