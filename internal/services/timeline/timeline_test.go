package timeline

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestBuild_EmptyScript(t *testing.T) {
	tl := Build("", 10, true)

	if len(tl.Captions) != 0 {
		t.Errorf("captions = %v, want none", tl.Captions)
	}
	if tl.Background.LengthSeconds != 10 {
		t.Errorf("background length = %v, want 10", tl.Background.LengthSeconds)
	}
	if tl.Background.Volume != DefaultBackgroundVolume {
		t.Errorf("background volume = %v", tl.Background.Volume)
	}
}

func TestBuild_QuickBrownFox(t *testing.T) {
	tl := Build("the quick brown fox jumps over the lazy dog", 3, true)

	if len(tl.Captions) != 1 {
		t.Fatalf("captions = %d, want 1 (second chunk has no time left)", len(tl.Captions))
	}
	c := tl.Captions[0]
	if c.Text != "the quick brown fox jumps over" {
		t.Errorf("text = %q", c.Text)
	}
	if c.StartSeconds != 0 || c.DurationSeconds != 3 {
		t.Errorf("clip = %+v", c)
	}
	if total := tl.TotalCaptionSeconds(); total > 3 {
		t.Errorf("total caption time %v exceeds 3", total)
	}
}

func TestBuild_ClipsAreContiguous(t *testing.T) {
	tests := []struct {
		name      string
		words     int
		duration  float64
		wantClips int
		lastLen   float64
	}{
		{"ExactFit", 12, 6, 2, 3},
		{"ShortTail", 18, 7.5, 3, 1.5},
		{"FewerWordsThanTime", 7, 60, 2, 3},
		{"TrailingWordsDropped", 30, 4, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := make([]string, tt.words)
			for i := range words {
				words[i] = "w"
			}
			tl := Build(strings.Join(words, " "), tt.duration, true)

			if len(tl.Captions) != tt.wantClips {
				t.Fatalf("clips = %d, want %d", len(tl.Captions), tt.wantClips)
			}

			elapsed := 0.0
			for i, c := range tl.Captions {
				if c.StartSeconds != elapsed {
					t.Errorf("clip %d starts at %v, want %v", i, c.StartSeconds, elapsed)
				}
				if c.DurationSeconds <= 0 || c.DurationSeconds > ChunkSeconds {
					t.Errorf("clip %d duration %v out of range", i, c.DurationSeconds)
				}
				if n := len(strings.Fields(c.Text)); n > WordsPerChunk {
					t.Errorf("clip %d has %d words", i, n)
				}
				elapsed += c.DurationSeconds
			}
			if elapsed > tt.duration {
				t.Errorf("caption time %v exceeds %v", elapsed, tt.duration)
			}
			if last := tl.Captions[len(tl.Captions)-1].DurationSeconds; math.Abs(last-tt.lastLen) > 1e-9 {
				t.Errorf("last clip length = %v, want %v", last, tt.lastLen)
			}
		})
	}
}

func TestBuild_WhitespaceHandling(t *testing.T) {
	tl := Build("  one\ttwo\n\nthree   four five six seven ", 10, true)

	if len(tl.Captions) != 2 {
		t.Fatalf("clips = %d, want 2", len(tl.Captions))
	}
	if tl.Captions[0].Text != "one two three four five six" {
		t.Errorf("first clip = %q", tl.Captions[0].Text)
	}
	if tl.Captions[1].Text != "seven" {
		t.Errorf("second clip = %q", tl.Captions[1].Text)
	}
}

func TestBuild_CaptionsDisabled(t *testing.T) {
	tl := Build("the quick brown fox", 10, false)

	if len(tl.Captions) != 0 {
		t.Errorf("captions = %v, want none", tl.Captions)
	}
	if tl.Background.LengthSeconds != 10 {
		t.Errorf("background length = %v, want 10", tl.Background.LengthSeconds)
	}
}

func TestBuild_NonPositiveDuration(t *testing.T) {
	for _, d := range []float64{0, -5} {
		tl := Build("some words here", d, true)
		if len(tl.Captions) != 0 {
			t.Errorf("Build(%v) captions = %v, want none", d, tl.Captions)
		}
		if tl.Background.LengthSeconds != d {
			t.Errorf("Build(%v) background length = %v", d, tl.Background.LengthSeconds)
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	script := "alpha beta gamma delta epsilon zeta eta theta iota kappa"
	a := Build(script, 5, true)
	b := Build(script, 5, true)

	if len(a.Captions) != len(b.Captions) {
		t.Fatal("caption counts differ")
	}
	for i := range a.Captions {
		if a.Captions[i] != b.Captions[i] {
			t.Errorf("clip %d differs: %+v vs %+v", i, a.Captions[i], b.Captions[i])
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		duration float64
		wantErr  bool
	}{
		{30, false},
		{0.5, false},
		{0, true},
		{-1, true},
		{math.NaN(), true},
		{math.Inf(1), true},
	}

	for _, tt := range tests {
		err := Validate(tt.duration)
		if tt.wantErr && !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("Validate(%v) error = %v, want ErrInvalidDuration", tt.duration, err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("Validate(%v) error = %v", tt.duration, err)
		}
	}
}
