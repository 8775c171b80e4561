// Package render builds render-service payloads and submits them.
package render

import (
	"github.com/j-veylop/clipforge/internal/models"
)

// Asset and transition names understood by the render service.
const (
	AssetVideo     = "video"
	AssetTitle     = "title"
	CaptionStyle   = "subtitle"
	TransitionFade = "fade"
)

// Compose merges a located media URL and a caption timeline into a render job.
// The background track always comes first so captions draw above it; the caption
// track is left out when there are no captions. Identical inputs give identical output.
func Compose(mediaURL string, trimStartSeconds float64, tl models.RenderTimeline, output models.OutputSpec) models.RenderJobRequest {
	trim := trimStartSeconds
	volume := tl.Background.Volume

	tracks := []models.RenderTrack{{
		Clips: []models.RenderClip{{
			Asset: models.RenderAsset{
				Type:   AssetVideo,
				Src:    mediaURL,
				Trim:   &trim,
				Volume: &volume,
			},
			Start:  0,
			Length: tl.Background.LengthSeconds,
		}},
	}}

	if len(tl.Captions) > 0 {
		captions := make([]models.RenderClip, 0, len(tl.Captions))
		for _, c := range tl.Captions {
			captions = append(captions, models.RenderClip{
				Asset: models.RenderAsset{
					Type:  AssetTitle,
					Text:  c.Text,
					Style: CaptionStyle,
				},
				Start:      c.StartSeconds,
				Length:     c.DurationSeconds,
				Transition: &models.RenderTransition{In: TransitionFade, Out: TransitionFade},
			})
		}
		tracks = append(tracks, models.RenderTrack{Clips: captions})
	}

	return models.RenderJobRequest{
		Timeline: models.RenderJobTimeline{Tracks: tracks},
		Output: models.RenderJobOutput{
			Format:     output.Format,
			Resolution: output.Resolution,
			Size:       models.RenderSize{Width: output.Width, Height: output.Height},
		},
	}
}
