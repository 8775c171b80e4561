package locator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/j-veylop/clipforge/internal/logger"
	"github.com/j-veylop/clipforge/internal/models"
)

// Retry policy.
const (
	MaxAttempts = 3

	// TransientDelay follows a 503 or a transport failure.
	TransientDelay = 5 * time.Second
	// RetryableCodeDelay follows an error reply carrying RetryableCode.
	RetryableCodeDelay = 2 * time.Second

	// RetryableCode is the upstream session/login failure. Retrying only re-sends
	// the same request; nothing about the session is rotated.
	RetryableCode = "error.api.youtube.login"
)

// Failure reasons produced by the locator itself. Upstream error codes are passed through.
const (
	ReasonInvalidReference = "invalid_reference"
	ReasonExhausted        = "exhausted"
	ReasonUnrecognized     = "unrecognized_response"
	ReasonCanceled         = "canceled"
)

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config holds the locator client settings.
type Config struct {
	HTTPClient   *http.Client
	Sleep        SleepFunc
	URL          string
	APIKey       string
	VideoCodec   string
	VideoQuality string
	AudioFormat  string
	Timeout      time.Duration
}

// Client talks to the remote locator service.
type Client struct {
	httpClient   *http.Client
	sleep        SleepFunc
	url          string
	apiKey       string
	videoCodec   string
	videoQuality string
	audioFormat  string
}

// New creates a locator client, filling unset fields with defaults.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	c := &Client{
		httpClient:   httpClient,
		sleep:        sleep,
		url:          cfg.URL,
		apiKey:       cfg.APIKey,
		videoCodec:   cfg.VideoCodec,
		videoQuality: cfg.VideoQuality,
		audioFormat:  cfg.AudioFormat,
	}
	if c.videoCodec == "" {
		c.videoCodec = "h264"
	}
	if c.videoQuality == "" {
		c.videoQuality = "720"
	}
	if c.audioFormat == "" {
		c.audioFormat = "mp3"
	}
	return c
}

type extractionPayload struct {
	URL          string `json:"url"`
	VideoCodec   string `json:"videoCodec"`
	VideoQuality string `json:"videoQuality"`
	AudioFormat  string `json:"audioFormat"`
	IsAudioOnly  bool   `json:"isAudioOnly"`
}

// Locate resolves req.SourceURL into a direct media URL. It always returns exactly one
// of models.ExtractionSuccess or models.ExtractionFailure.
func (c *Client) Locate(ctx context.Context, req models.ExtractionRequest) models.ExtractionOutcome {
	if _, err := ValidateReference(req.SourceURL); err != nil {
		logger.Warn("rejected source reference", "url", req.SourceURL, "error", err)
		return models.ExtractionFailure{Reason: ReasonInvalidReference, Attempts: 0}
	}

	payload := extractionPayload{
		URL:          req.SourceURL,
		VideoCodec:   c.videoCodec,
		VideoQuality: firstNonEmpty(req.Quality, c.videoQuality),
		AudioFormat:  firstNonEmpty(req.AudioFormat, c.audioFormat),
	}

	for attempt := 1; ; attempt++ {
		resp := c.attempt(ctx, payload)
		logger.Debug("locator attempt", "attempt", attempt, "response", fmt.Sprintf("%T", resp))

		var delay time.Duration
		switch r := resp.(type) {
		case models.UpstreamReady:
			logger.Info("located media", "url", req.SourceURL, "attempts", attempt)
			return models.ExtractionSuccess{
				MediaURL:  r.URL,
				MediaType: mediaTypeFor(r.Filename),
				Quality:   payload.VideoQuality,
				Title:     titleFor(r.Filename),
			}
		case models.UpstreamTransient:
			if ctx.Err() != nil {
				return c.fail(req, ReasonCanceled, attempt)
			}
			logger.Debug("locator unavailable", "attempt", attempt, "error", r.Cause)
			delay = TransientDelay
		case models.UpstreamError:
			if r.Code != RetryableCode {
				return c.fail(req, r.Code, attempt)
			}
			delay = RetryableCodeDelay
		default:
			return c.fail(req, ReasonUnrecognized, attempt)
		}

		if attempt >= MaxAttempts {
			return c.fail(req, ReasonExhausted, attempt)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return c.fail(req, ReasonCanceled, attempt)
		}
	}
}

func (c *Client) fail(req models.ExtractionRequest, reason string, attempts int) models.ExtractionFailure {
	logger.Warn("media location failed", "url", req.SourceURL, "reason", reason, "attempts", attempts)
	return models.ExtractionFailure{Reason: reason, Attempts: attempts}
}

// attempt sends one extraction request and classifies the reply.
func (c *Client) attempt(ctx context.Context, payload extractionPayload) models.UpstreamResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		return models.UpstreamTransient{Cause: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return models.UpstreamTransient{Cause: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.UpstreamTransient{Cause: fmt.Errorf("locator request failed: %w", err)}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.UpstreamTransient{Cause: fmt.Errorf("failed to read locator response: %w", err)}
	}
	return MapResponse(resp.StatusCode, respBody)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
