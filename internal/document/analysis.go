package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// AnalysisStatus is the lifecycle of a long-running document analysis job.
type AnalysisStatus string

const (
	AnalysisPending  AnalysisStatus = "pending"
	AnalysisComplete AnalysisStatus = "complete"
	AnalysisFailed   AnalysisStatus = "failed"
)

var (
	// ErrAnalysisTimedOut means the job did not complete within the poll
	// deadline. The job itself may still finish server-side.
	ErrAnalysisTimedOut = errors.New("document analysis timed out")
	// ErrAnalysisFailed means the service reported the job as failed.
	ErrAnalysisFailed = errors.New("document analysis failed")
)

// AnalysisClient talks to the external document-analysis service used for
// scanned or structured documents that local extraction cannot handle. Jobs
// are asynchronous: start one, then poll until it leaves the pending state.
type AnalysisClient struct {
	baseURL      string
	httpClient   *http.Client
	pollTimeout  time.Duration
	pollInterval time.Duration
}

func NewAnalysisClient(baseURL string, pollTimeout, pollInterval time.Duration) *AnalysisClient {
	if pollTimeout <= 0 {
		pollTimeout = 2 * time.Minute
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &AnalysisClient{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollTimeout:  pollTimeout,
		pollInterval: pollInterval,
	}
}

// IsConfigured reports whether an analysis endpoint is available.
func (c *AnalysisClient) IsConfigured() bool {
	return c != nil && c.baseURL != ""
}

type startAnalysisRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type startAnalysisResponse struct {
	JobID string `json:"job_id"`
}

type analysisResult struct {
	Status AnalysisStatus `json:"status"`
	Text   string         `json:"text,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// StartAnalysis submits a blob reference for analysis and returns the job id.
func (c *AnalysisClient) StartAnalysis(ctx context.Context, bucket, key string) (string, error) {
	body, err := json.Marshal(startAnalysisRequest{Bucket: bucket, Key: key})
	if err != nil {
		return "", fmt.Errorf("marshal analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("start analysis: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("start analysis (%d): %s", resp.StatusCode, string(msg))
	}

	var out startAnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode analysis response: %w", err)
	}
	if out.JobID == "" {
		return "", fmt.Errorf("analysis service returned no job id")
	}
	return out.JobID, nil
}

// GetAnalysis fetches the current status of a job, plus the extracted text
// once complete.
func (c *AnalysisClient) GetAnalysis(ctx context.Context, jobID string) (AnalysisStatus, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/analyze/"+jobID, nil)
	if err != nil {
		return "", "", fmt.Errorf("create status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("get analysis %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return "", "", fmt.Errorf("get analysis %s (%d): %s", jobID, resp.StatusCode, string(msg))
	}

	var out analysisResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode analysis status: %w", err)
	}

	if out.Status == AnalysisFailed {
		return out.Status, "", fmt.Errorf("%w: %s", ErrAnalysisFailed, out.Error)
	}
	return out.Status, out.Text, nil
}

// WaitForAnalysis polls a job with exponential backoff until it completes,
// fails, or the bounded deadline passes. A deadline hit is ErrAnalysisTimedOut.
func (c *AnalysisClient) WaitForAnalysis(ctx context.Context, jobID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	interval := c.pollInterval
	const maxInterval = 8 * time.Second

	for {
		status, text, err := c.GetAnalysis(ctx, jobID)
		if err != nil {
			if errors.Is(err, ErrAnalysisFailed) {
				return "", err
			}
			if ctx.Err() != nil {
				return "", fmt.Errorf("%w: job %s", ErrAnalysisTimedOut, jobID)
			}
			// Transient poll error; keep going until the deadline.
			slog.Warn("analysis poll failed", "job_id", jobID, "error", err)
		} else if status == AnalysisComplete {
			return text, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: job %s", ErrAnalysisTimedOut, jobID)
		case <-time.After(interval):
		}

		if interval < maxInterval {
			interval *= 2
		}
	}
}
