// services/text_extractor.go - resume text extraction over HTTP
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Uploads beyond this size are rejected before extraction.
const maxResumeBytes = 10 << 20

// HTTPTextExtractor fetches an uploaded file by URL and returns its bytes
// as UTF-8 text. It handles plain-text uploads; binary formats are the
// responsibility of whatever produced the URL (the upload pipeline
// converts PDF and DOCX before storing).
type HTTPTextExtractor struct {
	Client *http.Client
}

func NewHTTPTextExtractor() *HTTPTextExtractor {
	return &HTTPTextExtractor{Client: &http.Client{Timeout: 30 * time.Second}}
}

func (e *HTTPTextExtractor) Extract(ctx context.Context, fileURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: invalid file URL", ErrInvalidArgument)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch resume file: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: resume file returned status %d", ErrInvalidArgument, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResumeBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read resume file: %v", err)
	}
	return string(body), nil
}
