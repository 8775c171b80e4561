// Package pipeline runs one content request from source link to queued render.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/clipforge/internal/logger"
	"github.com/j-veylop/clipforge/internal/models"
	"github.com/j-veylop/clipforge/internal/services/render"
	"github.com/j-veylop/clipforge/internal/services/timeline"
)

// RenderOperation is the ledger operation name for a render submission.
const RenderOperation = "render"

// Locator resolves a source link into a media URL.
type Locator interface {
	Locate(ctx context.Context, req models.ExtractionRequest) models.ExtractionOutcome
}

// Submitter queues a render job.
type Submitter interface {
	Submit(ctx context.Context, job models.RenderJobRequest) (*render.SubmitResult, error)
}

// Recorder is the part of the usage ledger the pipeline writes to.
type Recorder interface {
	Record(ctx context.Context, date time.Time, entry models.UsageEntry) error
	Limit(service models.Service) (models.ServiceLimit, bool)
}

// LocateError reports that no playable source could be found.
type LocateError struct {
	Reason   string
	Attempts int
}

func (e *LocateError) Error() string {
	return fmt.Sprintf("media location failed: %s after %d attempts", e.Reason, e.Attempts)
}

// ContentRequest describes one video to produce.
type ContentRequest struct {
	Output           *models.OutputSpec
	SourceURL        string
	Script           string
	Quality          string
	AudioFormat      string
	DurationSeconds  float64
	TrimStartSeconds float64
	DisableCaptions  bool
}

// ContentResult is what Produce built and whether the render was queued.
type ContentResult struct {
	SubmitError error                    `json:"-"`
	Media       models.ExtractionSuccess `json:"media"`
	Timeline    models.RenderTimeline    `json:"timeline"`
	Job         models.RenderJobRequest  `json:"job"`
	JobID       string                   `json:"jobId"`
	RenderID    string                   `json:"renderId,omitempty"`
}

// Queued reports whether the render service accepted the job.
func (r *ContentResult) Queued() bool {
	return r.RenderID != ""
}

// Pipeline wires the locator, timeline builder, render client and ledger together.
// Only accepted render submissions are billed; locator attempts are not recorded
// because the locator is not a billed service.
type Pipeline struct {
	locator       Locator
	submitter     Submitter
	ledger        Recorder
	now           func() time.Time
	billedService models.Service
}

// New creates a pipeline. Render submissions are billed against billedService.
func New(locator Locator, submitter Submitter, ledger Recorder, billedService models.Service) *Pipeline {
	return &Pipeline{
		locator:       locator,
		submitter:     submitter,
		ledger:        ledger,
		now:           time.Now,
		billedService: billedService,
	}
}

// Produce locates the source, builds the caption timeline, composes the render job and
// submits it. Only invalid input and location failures are returned as errors; a
// rejected submission is reported on the result, and ledger failures never surface.
func (p *Pipeline) Produce(ctx context.Context, req ContentRequest) (*ContentResult, error) {
	jobID := uuid.NewString()

	if err := timeline.Validate(req.DurationSeconds); err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	if req.TrimStartSeconds < 0 {
		return nil, fmt.Errorf("job %s: trim start must be >= 0, got %v", jobID, req.TrimStartSeconds)
	}

	logger.Info("producing content", "job", jobID, "source", req.SourceURL, "duration", req.DurationSeconds)

	var media models.ExtractionSuccess
	switch outcome := p.locator.Locate(ctx, models.ExtractionRequest{
		SourceURL:   req.SourceURL,
		Quality:     req.Quality,
		AudioFormat: req.AudioFormat,
	}).(type) {
	case models.ExtractionSuccess:
		media = outcome
	case models.ExtractionFailure:
		return nil, fmt.Errorf("job %s: %w", jobID, &LocateError{Reason: outcome.Reason, Attempts: outcome.Attempts})
	default:
		return nil, fmt.Errorf("job %s: unexpected locator outcome %T", jobID, outcome)
	}

	tl := timeline.Build(req.Script, req.DurationSeconds, !req.DisableCaptions)
	tl.Background.SourceURL = media.MediaURL
	tl.Background.TrimStartSeconds = req.TrimStartSeconds

	output := models.DefaultOutputSpec()
	if req.Output != nil {
		output = *req.Output
	}

	result := &ContentResult{
		JobID:    jobID,
		Media:    media,
		Timeline: tl,
		Job:      render.Compose(media.MediaURL, req.TrimStartSeconds, tl, output),
	}

	submitted, err := p.submitter.Submit(ctx, result.Job)
	if err != nil {
		logger.Error("render submission failed", "job", jobID, "error", err)
		result.SubmitError = err
		return result, nil
	}
	result.RenderID = submitted.ID

	p.recordRender(ctx, jobID)
	return result, nil
}

func (p *Pipeline) recordRender(ctx context.Context, jobID string) {
	if p.ledger == nil {
		return
	}

	var cost float64
	if limit, ok := p.ledger.Limit(p.billedService); ok {
		cost = limit.CostPerUnit
	}

	now := p.now()
	err := p.ledger.Record(ctx, now, models.UsageEntry{
		ID:        jobID,
		Timestamp: now,
		Service:   p.billedService,
		Operation: RenderOperation,
		Requests:  1,
		Cost:      cost,
	})
	if err != nil {
		logger.Warn("failed to record render usage", "job", jobID, "error", err)
	}
}
