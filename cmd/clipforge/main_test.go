package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/clipforge/internal/models"
	"github.com/j-veylop/clipforge/internal/services/usage"
	"github.com/j-veylop/clipforge/internal/store"
)

// setupEnv points configuration at a throwaway fs store.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USAGE_STORE", "fs")
	t.Setenv("USAGE_DIR", filepath.Join(home, "usage"))
	t.Setenv("SERVICE_LIMITS_PATH", "")
	t.Setenv("RENDER_BILLED_SERVICE", "heygen")
	t.Setenv("LOG_LEVEL", "error")
	return home
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeScript(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestTimelineCommand(t *testing.T) {
	home := setupEnv(t)
	script := writeScript(t, home, "the quick brown fox jumps over")

	out, err := run(t, "timeline", "--script", script, "--duration", "3")
	if err != nil {
		t.Fatalf("timeline failed: %v", err)
	}

	var tl models.RenderTimeline
	if err := json.Unmarshal([]byte(out), &tl); err != nil {
		t.Fatalf("output is not a timeline: %v\n%s", err, out)
	}
	if len(tl.Captions) != 1 || tl.Captions[0].Text != "the quick brown fox jumps over" {
		t.Errorf("captions = %+v", tl.Captions)
	}
}

func TestTimelineCommand_Errors(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "timeline"); err == nil {
		t.Error("expected error without --duration")
	}
	if _, err := run(t, "timeline", "--duration", "0"); err == nil {
		t.Error("expected error for zero duration")
	}
	if _, err := run(t, "timeline", "--duration", "5", "--script", "/does/not/exist"); err == nil {
		t.Error("expected error for missing script file")
	}
}

func TestComposeCommand(t *testing.T) {
	home := setupEnv(t)
	script := writeScript(t, home, "one two three four five six seven")

	out, err := run(t, "compose", "--media-url", "https://cdn.example/v.mp4", "--script", script,
		"--duration", "4", "--trim", "2", "--width", "720", "--height", "1280")
	if err != nil {
		t.Fatalf("compose failed: %v", err)
	}

	var job models.RenderJobRequest
	if err := json.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("output is not a render job: %v\n%s", err, out)
	}
	if len(job.Timeline.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(job.Timeline.Tracks))
	}
	bg := job.Timeline.Tracks[0].Clips[0].Asset
	if bg.Src != "https://cdn.example/v.mp4" || bg.Trim == nil || *bg.Trim != 2 {
		t.Errorf("background asset = %+v", bg)
	}
	if job.Output.Size.Width != 720 || job.Output.Size.Height != 1280 {
		t.Errorf("output size = %+v", job.Output.Size)
	}

	if _, err := run(t, "compose", "--media-url", "u", "--duration", "4", "--trim", "-1"); err == nil {
		t.Error("expected error for negative trim")
	}
}

func TestUsageRecordAndTotals(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "usage", "record", "--service", "heygen", "--operation", "render",
		"--cost", "3", "--date", "2024-02-05"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if _, err := run(t, "usage", "record", "--service", "elevenlabs", "--operation", "tts",
		"--cost", "0.5", "--characters", "1200", "--date", "2024-02-06"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	out, err := run(t, "usage", "daily", "--date", "2024-02-05")
	if err != nil {
		t.Fatalf("daily failed: %v", err)
	}
	if row := rowFor(ansi.Strip(out), "heygen"); !strings.Contains(row, "3.00") {
		t.Errorf("daily heygen row = %q", row)
	}

	out, err = run(t, "usage", "monthly", "--month", "2024-02")
	if err != nil {
		t.Fatalf("monthly failed: %v", err)
	}
	plain := ansi.Strip(out)
	if row := rowFor(plain, "elevenlabs"); !strings.Contains(row, "1200") {
		t.Errorf("monthly elevenlabs row = %q", row)
	}

	out, err = run(t, "usage", "report", "--month", "2024-02", "--json")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	var reports []models.ServiceUsageReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out)
	}
	for _, r := range reports {
		if r.Service == models.ServiceHeyGen && r.Used != 3 {
			t.Errorf("heygen used = %v, want 3", r.Used)
		}
	}
}

func TestUsageDaysCommand(t *testing.T) {
	setupEnv(t)

	for _, date := range []string{"2024-02-20", "2024-02-05", "2024-03-01"} {
		if _, err := run(t, "usage", "record", "--service", "openai", "--operation", "script", "--date", date); err != nil {
			t.Fatalf("record %s failed: %v", date, err)
		}
	}

	out, err := run(t, "usage", "days", "--month", "2024-02")
	if err != nil {
		t.Fatalf("days failed: %v", err)
	}
	if out != "2024-02-05\n2024-02-20\n" {
		t.Errorf("days = %q", out)
	}
}

func TestUsageLimitsCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "usage", "limits")
	if err != nil {
		t.Fatalf("limits failed: %v", err)
	}
	var limits []models.ServiceLimit
	if err := json.Unmarshal([]byte(out), &limits); err != nil {
		t.Fatalf("limits is not JSON: %v\n%s", err, out)
	}
	if len(limits) != len(models.AllServices) {
		t.Errorf("limits = %d entries, want %d", len(limits), len(models.AllServices))
	}
}

func rowFor(out, service string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, service) {
			return line
		}
	}
	return ""
}

func TestUsageRecord_Errors(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown service", []string{"--service", "nope", "--operation", "x"}},
		{"zero requests", []string{"--service", "heygen", "--operation", "x", "--requests", "0"}},
		{"negative cost", []string{"--service", "heygen", "--operation", "x", "--cost", "-1"}},
		{"bad date", []string{"--service", "heygen", "--operation", "x", "--date", "05/02/2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"usage", "record"}, tt.args...)
			if _, err := run(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestUsageStatusCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "usage", "status", "--service", "heygen", "--usage", "7")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if got := strings.TrimSpace(ansi.Strip(out)); got != "heygen 7.00 warning" {
		t.Errorf("status = %q", got)
	}
}

func TestUsageCapacityCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "usage", "capacity")
	if err != nil {
		t.Fatalf("capacity failed: %v", err)
	}
	plain := ansi.Strip(out)
	if !strings.Contains(plain, "heygen") || !strings.Contains(plain, "days") {
		t.Errorf("capacity output:\n%s", plain)
	}
}

func TestProduceCommand(t *testing.T) {
	home := setupEnv(t)
	script := writeScript(t, home, "hello there general kenobi")

	locatorSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"tunnel","url":"https://cdn.example/bg.mp4","filename":"bg.mp4"}`)
	}))
	defer locatorSrv.Close()

	var submitted models.RenderJobRequest
	renderSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&submitted)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true,"response":{"id":"render-1","message":"Render queued"}}`)
	}))
	defer renderSrv.Close()

	t.Setenv("LOCATOR_API_URL", locatorSrv.URL)
	t.Setenv("RENDER_API_URL", renderSrv.URL)

	out, err := run(t, "produce", "--source", "https://youtu.be/dQw4w9WgXcQ", "--script", script, "--duration", "10")
	if err != nil {
		t.Fatalf("produce failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"renderId": "render-1"`) {
		t.Errorf("output missing render id:\n%s", out)
	}
	if len(submitted.Timeline.Tracks) == 0 || submitted.Timeline.Tracks[0].Clips[0].Asset.Src != "https://cdn.example/bg.mp4" {
		t.Errorf("submitted job = %+v", submitted)
	}

	out, err = run(t, "usage", "daily")
	if err != nil {
		t.Fatalf("daily failed: %v", err)
	}
	if row := rowFor(ansi.Strip(out), "heygen"); !strings.Contains(row, "1.00") {
		t.Errorf("render was not billed: %q", row)
	}
}

func TestProduceCommand_LocateFailure(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "produce", "--source", "not a link", "--duration", "10")
	if err == nil || !strings.Contains(err.Error(), "invalid_reference") {
		t.Errorf("err = %v, want invalid_reference", err)
	}
}

func TestLocateCommand_InvalidReference(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "locate", "ftp://example.com/video")
	if err == nil {
		t.Fatal("expected error")
	}
	var failure models.ExtractionFailure
	if jsonErr := json.Unmarshal([]byte(out), &failure); jsonErr != nil {
		t.Fatalf("output is not JSON: %v\n%s", jsonErr, out)
	}
	if failure.Reason != "invalid_reference" || failure.Attempts != 0 {
		t.Errorf("failure = %+v", failure)
	}
}

func TestVersionCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "clipforge ") {
		t.Errorf("version = %q", out)
	}
}

func TestConfigErrorStopsCommands(t *testing.T) {
	setupEnv(t)
	t.Setenv("USAGE_STORE", "postgres")

	if _, err := run(t, "version"); err == nil {
		t.Error("expected configuration error")
	}
}

// reportWriter buffers watcher output and signals after every write.
type reportWriter struct {
	writes chan struct{}
	buf    bytes.Buffer
	mu     sync.Mutex
}

func (r *reportWriter) Write(p []byte) (int, error) {
	r.mu.Lock()
	n, err := r.buf.Write(p)
	r.mu.Unlock()
	r.writes <- struct{}{}
	return n, err
}

func (r *reportWriter) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func waitForWrite(t *testing.T, out *reportWriter) {
	t.Helper()
	select {
	case <-out.writes:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher printed nothing")
	}
}

func TestWatcherRefreshesOnChange(t *testing.T) {
	fs, err := store.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS() error = %v", err)
	}
	now := time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC)
	ledger := usage.New(fs, nil, usage.WithClock(func() time.Time { return now }))

	out := &reportWriter{writes: make(chan struct{}, 8)}
	w := &watcher{ledger: ledger, out: out, width: 80}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- w.run(ctx, changes) }()

	waitForWrite(t, out)
	changes <- struct{}{}
	waitForWrite(t, out)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	if got := strings.Count(ansi.Strip(out.String()), "Usage 2024-02"); got != 2 {
		t.Errorf("report printed %d times, want 2", got)
	}
}
