// Package models defines data structures and domain types.
package models

// CaptionClip is one timed on-screen text overlay.
type CaptionClip struct {
	Text            string  `json:"text"`
	StartSeconds    float64 `json:"startOffsetSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// BackgroundClip is the single background video of a timeline.
type BackgroundClip struct {
	SourceURL        string  `json:"sourceUrl"`
	TrimStartSeconds float64 `json:"trimStartSeconds"`
	LengthSeconds    float64 `json:"lengthSeconds"`
	Volume           float64 `json:"volume"`
}

// RenderTimeline pairs the background clip with ordered caption clips.
type RenderTimeline struct {
	Captions   []CaptionClip  `json:"captionClips"`
	Background BackgroundClip `json:"backgroundClip"`
}

// TotalCaptionSeconds sums the caption durations.
func (t RenderTimeline) TotalCaptionSeconds() float64 {
	var total float64
	for _, c := range t.Captions {
		total += c.DurationSeconds
	}
	return total
}

// OutputSpec describes the requested render output.
type OutputSpec struct {
	Format     string `json:"format"`
	Resolution string `json:"resolution"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// DefaultOutputSpec is a vertical 1080x1920 mp4.
func DefaultOutputSpec() OutputSpec {
	return OutputSpec{
		Format:     "mp4",
		Resolution: "hd",
		Width:      1080,
		Height:     1920,
	}
}

// RenderJobRequest is the payload submitted to the render service.
type RenderJobRequest struct {
	Timeline RenderJobTimeline `json:"timeline"`
	Output   RenderJobOutput   `json:"output"`
}

// RenderJobTimeline holds the ordered tracks; earlier tracks render first.
type RenderJobTimeline struct {
	Tracks []RenderTrack `json:"tracks"`
}

// RenderTrack is one layer of clips.
type RenderTrack struct {
	Clips []RenderClip `json:"clips"`
}

// RenderClip places an asset on the timeline.
type RenderClip struct {
	Transition *RenderTransition `json:"transition,omitempty"`
	Asset      RenderAsset       `json:"asset"`
	Start      float64           `json:"start"`
	Length     float64           `json:"length"`
}

// RenderAsset is a video or title asset. Unused fields are omitted per type.
type RenderAsset struct {
	Trim   *float64 `json:"trim,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
	Type   string   `json:"type"`
	Src    string   `json:"src,omitempty"`
	Text   string   `json:"text,omitempty"`
	Style  string   `json:"style,omitempty"`
}

// RenderTransition sets the in/out effects of a clip.
type RenderTransition struct {
	In  string `json:"in"`
	Out string `json:"out"`
}

// RenderJobOutput is the output section of the payload.
type RenderJobOutput struct {
	Format     string     `json:"format"`
	Resolution string     `json:"resolution"`
	Size       RenderSize `json:"size"`
}

// RenderSize is the output frame size in pixels.
type RenderSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
