// Package timeline turns a narration script into timed caption clips.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/j-veylop/clipforge/internal/models"
)

// Caption pacing.
const (
	WordsPerSecond          = 2.0
	ChunkSeconds            = 3.0
	DefaultBackgroundVolume = 0.0
)

// ErrInvalidDuration is returned by Validate for non-positive durations.
var ErrInvalidDuration = errors.New("duration must be positive")

// WordsPerChunk is the number of words shown in one caption clip.
var WordsPerChunk = int(math.Ceil(WordsPerSecond * ChunkSeconds))

// Validate rejects durations Build would turn into an empty caption track.
func Validate(totalDurationSeconds float64) error {
	if totalDurationSeconds <= 0 || math.IsNaN(totalDurationSeconds) || math.IsInf(totalDurationSeconds, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidDuration, totalDurationSeconds)
	}
	return nil
}

// Build splits script into caption clips of WordsPerChunk words, each lasting at most
// ChunkSeconds, until totalDurationSeconds is used up. Words past the end are dropped.
// The background clip always spans the full duration and has no source yet.
func Build(script string, totalDurationSeconds float64, captionsEnabled bool) models.RenderTimeline {
	tl := models.RenderTimeline{
		Captions: []models.CaptionClip{},
		Background: models.BackgroundClip{
			LengthSeconds: totalDurationSeconds,
			Volume:        DefaultBackgroundVolume,
		},
	}
	if !captionsEnabled {
		return tl
	}

	words := strings.Fields(script)
	elapsed := 0.0
	for start := 0; start < len(words); start += WordsPerChunk {
		remaining := totalDurationSeconds - elapsed
		if remaining <= 0 {
			break
		}
		end := min(start+WordsPerChunk, len(words))
		duration := min(ChunkSeconds, remaining)

		tl.Captions = append(tl.Captions, models.CaptionClip{
			Text:            strings.Join(words[start:end], " "),
			StartSeconds:    elapsed,
			DurationSeconds: duration,
		})
		elapsed += duration
	}
	return tl
}
