package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/j-veylop/clipforge/internal/logger"
	"github.com/j-veylop/clipforge/internal/models"
)

// ErrMissingRenderID is returned when a 2xx reply carries no render id.
var ErrMissingRenderID = errors.New("render response has no id")

// HTTPError is a non-2xx reply from the render service.
type HTTPError struct {
	// Body is the response body
	Body []byte
	// StatusCode is the HTTP status code
	StatusCode int
}

// Error returns a string representation of the HTTP error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("render service error: status %d", e.StatusCode)
}

// SubmitResult is the render service's acknowledgement of a queued job.
type SubmitResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type submitResponse struct {
	Response SubmitResult `json:"response"`
	Message  string       `json:"message"`
	Success  bool         `json:"success"`
}

// Client submits render jobs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a render client. A nil httpClient gets one with the given timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Submit posts job to <baseURL>/render and returns the queued render id.
func (c *Client) Submit(ctx context.Context, job models.RenderJobRequest) (*SubmitResult, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode render job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read render response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: respBody}
	}

	var parsed submitResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse render response: %w", err)
	}
	if parsed.Response.ID == "" {
		return nil, ErrMissingRenderID
	}

	logger.Info("render job queued", "id", parsed.Response.ID, "tracks", len(job.Timeline.Tracks))
	return &parsed.Response, nil
}
