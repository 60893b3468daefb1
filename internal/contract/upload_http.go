package contract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IngestPath is appended to the configured endpoint when uploading.
const IngestPath = "/ingest"

// HTTPUploadSink posts build summaries to an ingestion endpoint.
type HTTPUploadSink struct {
	Client     *http.Client
	MaxRetries uint64 // Retries on transport errors only; HTTP statuses are final
}

var _ UploadSink = &HTTPUploadSink{} // Compile-time check

// NewHTTPUploadSink creates an upload sink with a bounded timeout.
func NewHTTPUploadSink() *HTTPUploadSink {
	return &HTTPUploadSink{
		Client:     &http.Client{Timeout: 30 * time.Second},
		MaxRetries: 2,
	}
}

// IngestURL joins the endpoint and the ingest path without doubling slashes.
func IngestURL(endpoint string) string {
	return strings.TrimRight(endpoint, "/") + IngestPath
}

// Send implements the UploadSink interface.
func (s *HTTPUploadSink) Send(ctx context.Context, endpoint string, token string, payload []byte) (int, error) {
	url := IngestURL(endpoint)
	var status int
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build upload request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := s.Client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, resp.Body)
		status = resp.StatusCode
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.MaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return 0, fmt.Errorf("upload to %s failed: %w", url, err)
	}
	return status, nil
}
