package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/j-veylop/clipforge/internal/models"
	"github.com/j-veylop/clipforge/internal/services/render"
	"github.com/j-veylop/clipforge/internal/services/timeline"
)

type fakeLocator struct {
	outcome models.ExtractionOutcome
	got     []models.ExtractionRequest
}

func (f *fakeLocator) Locate(_ context.Context, req models.ExtractionRequest) models.ExtractionOutcome {
	f.got = append(f.got, req)
	return f.outcome
}

type fakeSubmitter struct {
	err  error
	jobs []models.RenderJobRequest
}

func (f *fakeSubmitter) Submit(_ context.Context, job models.RenderJobRequest) (*render.SubmitResult, error) {
	f.jobs = append(f.jobs, job)
	if f.err != nil {
		return nil, f.err
	}
	return &render.SubmitResult{ID: "render-1"}, nil
}

type fakeRecorder struct {
	err     error
	limits  map[models.Service]models.ServiceLimit
	entries []models.UsageEntry
}

func (f *fakeRecorder) Record(_ context.Context, _ time.Time, e models.UsageEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeRecorder) Limit(s models.Service) (models.ServiceLimit, bool) {
	l, ok := f.limits[s]
	return l, ok
}

var located = models.ExtractionSuccess{
	MediaURL:  "https://cdn.test/bg.mp4",
	MediaType: "video/mp4",
	Quality:   "720",
	Title:     "bg",
}

func newRecorder() *fakeRecorder {
	return &fakeRecorder{limits: map[models.Service]models.ServiceLimit{
		models.ServiceHeyGen: {Service: models.ServiceHeyGen, MonthlyCredits: models.Float64(10), CostPerUnit: 1},
	}}
}

func TestProduce_Success(t *testing.T) {
	loc := &fakeLocator{outcome: located}
	sub := &fakeSubmitter{}
	rec := newRecorder()
	p := New(loc, sub, rec, models.ServiceHeyGen)

	result, err := p.Produce(context.Background(), ContentRequest{
		SourceURL:        "https://youtu.be/dQw4w9WgXcQ",
		Script:           "one two three four five six seven",
		Quality:          "1080",
		DurationSeconds:  4,
		TrimStartSeconds: 30,
	})
	if err != nil {
		t.Fatalf("Produce() failed: %v", err)
	}

	if !result.Queued() || result.RenderID != "render-1" {
		t.Errorf("result = %+v, want queued render-1", result)
	}
	if result.JobID == "" {
		t.Error("job id not set")
	}
	if loc.got[0].Quality != "1080" {
		t.Errorf("locator request = %+v", loc.got[0])
	}
	if result.Timeline.Background.SourceURL != located.MediaURL || result.Timeline.Background.TrimStartSeconds != 30 {
		t.Errorf("background = %+v", result.Timeline.Background)
	}
	if len(result.Timeline.Captions) != 2 {
		t.Errorf("captions = %d, want 2", len(result.Timeline.Captions))
	}

	if len(sub.jobs) != 1 || len(sub.jobs[0].Timeline.Tracks) != 2 {
		t.Fatalf("submitted jobs = %+v", sub.jobs)
	}
	bg := sub.jobs[0].Timeline.Tracks[0].Clips[0].Asset
	if bg.Src != located.MediaURL || bg.Trim == nil || *bg.Trim != 30 {
		t.Errorf("background asset = %+v", bg)
	}
	if sub.jobs[0].Output.Size.Height != 1920 {
		t.Errorf("output = %+v, want default output", sub.jobs[0].Output)
	}

	if len(rec.entries) != 1 {
		t.Fatalf("recorded entries = %d, want 1", len(rec.entries))
	}
	entry := rec.entries[0]
	if entry.Service != models.ServiceHeyGen || entry.Operation != RenderOperation || entry.Cost != 1 || entry.Requests != 1 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.ID != result.JobID {
		t.Errorf("entry id = %q, want job id %q", entry.ID, result.JobID)
	}
}

func TestProduce_CaptionsDisabledAndCustomOutput(t *testing.T) {
	sub := &fakeSubmitter{}
	p := New(&fakeLocator{outcome: located}, sub, nil, models.ServiceHeyGen)

	spec := models.OutputSpec{Format: "webm", Resolution: "sd", Width: 720, Height: 1280}
	result, err := p.Produce(context.Background(), ContentRequest{
		SourceURL:       "https://youtu.be/dQw4w9WgXcQ",
		Script:          "words that will not show",
		DurationSeconds: 10,
		DisableCaptions: true,
		Output:          &spec,
	})
	if err != nil {
		t.Fatalf("Produce() failed: %v", err)
	}
	if len(result.Job.Timeline.Tracks) != 1 {
		t.Errorf("tracks = %d, want background only", len(result.Job.Timeline.Tracks))
	}
	if result.Job.Output.Format != "webm" || result.Job.Output.Size.Width != 720 {
		t.Errorf("output = %+v", result.Job.Output)
	}
}

func TestProduce_LocateFailure(t *testing.T) {
	sub := &fakeSubmitter{}
	rec := newRecorder()
	p := New(&fakeLocator{outcome: models.ExtractionFailure{Reason: "exhausted", Attempts: 3}}, sub, rec, models.ServiceHeyGen)

	_, err := p.Produce(context.Background(), ContentRequest{SourceURL: "https://youtu.be/dQw4w9WgXcQ", DurationSeconds: 5})

	var locErr *LocateError
	if !errors.As(err, &locErr) {
		t.Fatalf("Produce() error = %v, want *LocateError", err)
	}
	if locErr.Reason != "exhausted" || locErr.Attempts != 3 {
		t.Errorf("LocateError = %+v", locErr)
	}
	if len(sub.jobs) != 0 || len(rec.entries) != 0 {
		t.Error("nothing should be submitted or billed after a locate failure")
	}
}

func TestProduce_InvalidInput(t *testing.T) {
	loc := &fakeLocator{outcome: located}
	p := New(loc, &fakeSubmitter{}, nil, models.ServiceHeyGen)

	_, err := p.Produce(context.Background(), ContentRequest{SourceURL: "https://youtu.be/dQw4w9WgXcQ", DurationSeconds: 0})
	if !errors.Is(err, timeline.ErrInvalidDuration) {
		t.Errorf("Produce() error = %v, want ErrInvalidDuration", err)
	}

	_, err = p.Produce(context.Background(), ContentRequest{
		SourceURL: "https://youtu.be/dQw4w9WgXcQ", DurationSeconds: 5, TrimStartSeconds: -1,
	})
	if err == nil {
		t.Error("Produce() should reject a negative trim")
	}
	if len(loc.got) != 0 {
		t.Error("locator called for invalid input")
	}
}

func TestProduce_SubmitFailureIsReported(t *testing.T) {
	rec := newRecorder()
	submitErr := &render.HTTPError{StatusCode: 500}
	p := New(&fakeLocator{outcome: located}, &fakeSubmitter{err: submitErr}, rec, models.ServiceHeyGen)

	result, err := p.Produce(context.Background(), ContentRequest{
		SourceURL: "https://youtu.be/dQw4w9WgXcQ", Script: "hi", DurationSeconds: 5,
	})
	if err != nil {
		t.Fatalf("Produce() error = %v, want nil", err)
	}
	if result.Queued() {
		t.Error("result should not be queued")
	}
	if !errors.Is(result.SubmitError, submitErr) {
		t.Errorf("SubmitError = %v", result.SubmitError)
	}
	if len(rec.entries) != 0 {
		t.Error("failed submissions must not be billed")
	}
	if len(result.Job.Timeline.Tracks) == 0 {
		t.Error("composed job should still be returned")
	}
}

func TestProduce_LedgerFailureDoesNotAbort(t *testing.T) {
	rec := newRecorder()
	rec.err = errors.New("invalid entry")
	p := New(&fakeLocator{outcome: located}, &fakeSubmitter{}, rec, models.ServiceHeyGen)

	result, err := p.Produce(context.Background(), ContentRequest{
		SourceURL: "https://youtu.be/dQw4w9WgXcQ", DurationSeconds: 5,
	})
	if err != nil || !result.Queued() {
		t.Errorf("Produce() = %+v, %v; want queued result", result, err)
	}
}

func TestProduce_UnlimitedBilledServiceCostsZero(t *testing.T) {
	rec := &fakeRecorder{}
	p := New(&fakeLocator{outcome: located}, &fakeSubmitter{}, rec, models.ServiceOpenAI)

	if _, err := p.Produce(context.Background(), ContentRequest{SourceURL: "x", DurationSeconds: 5}); err != nil {
		t.Fatalf("Produce() failed: %v", err)
	}
	if len(rec.entries) != 1 || rec.entries[0].Cost != 0 {
		t.Errorf("entries = %+v", rec.entries)
	}
}

func TestLocateError(t *testing.T) {
	err := &LocateError{Reason: "error.api.content.video.region", Attempts: 1}
	if got := err.Error(); got != "media location failed: error.api.content.video.region after 1 attempts" {
		t.Errorf("Error() = %q", got)
	}
}
