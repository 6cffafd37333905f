package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrNoAPIKey is returned by clients constructed without credentials.
var ErrNoAPIKey = errors.New("api key is required")

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// StatusError is a non-2xx response from a remote API.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("POST %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("POST %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// postJSON sends body as JSON and returns the response payload. Non-2xx
// responses become a *StatusError carrying a truncated body.
func postJSON(ctx context.Context, client *http.Client, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(payload)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: snippet}
	}
	return payload, nil
}
