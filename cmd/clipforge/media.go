package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/clipforge/internal/models"
	"github.com/j-veylop/clipforge/internal/services/pipeline"
	"github.com/j-veylop/clipforge/internal/services/render"
	"github.com/j-veylop/clipforge/internal/services/timeline"
)

// timelineFlags are shared by every command that builds a caption timeline.
type timelineFlags struct {
	scriptPath string
	duration   float64
	noCaptions bool
}

func (f *timelineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scriptPath, "script", "", "Path to the narration script (- for stdin)")
	cmd.Flags().Float64Var(&f.duration, "duration", 0, "Total video duration in seconds")
	cmd.Flags().BoolVar(&f.noCaptions, "no-captions", false, "Leave the caption track out")
	_ = cmd.MarkFlagRequired("duration")
}

func (f *timelineFlags) build(cmd *cobra.Command) (models.RenderTimeline, error) {
	if err := timeline.Validate(f.duration); err != nil {
		return models.RenderTimeline{}, err
	}
	script, err := readScript(cmd, f.scriptPath)
	if err != nil {
		return models.RenderTimeline{}, err
	}
	return timeline.Build(script, f.duration, !f.noCaptions), nil
}

type outputFlags struct {
	spec models.OutputSpec
}

func (f *outputFlags) register(cmd *cobra.Command) {
	f.spec = models.DefaultOutputSpec()
	cmd.Flags().StringVar(&f.spec.Format, "format", f.spec.Format, "Render output format")
	cmd.Flags().StringVar(&f.spec.Resolution, "resolution", f.spec.Resolution, "Render output resolution")
	cmd.Flags().IntVar(&f.spec.Width, "width", f.spec.Width, "Render output width in pixels")
	cmd.Flags().IntVar(&f.spec.Height, "height", f.spec.Height, "Render output height in pixels")
}

func newLocateCmd(a *app) *cobra.Command {
	var quality, audioFormat string

	cmd := &cobra.Command{
		Use:   "locate <url>",
		Short: "Find a downloadable media URL for a video link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome := a.newLocator().Locate(cmd.Context(), models.ExtractionRequest{
				SourceURL:   args[0],
				Quality:     quality,
				AudioFormat: audioFormat,
			})
			if err := writeJSON(cmd.OutOrStdout(), outcome); err != nil {
				return err
			}
			if failure, ok := outcome.(models.ExtractionFailure); ok {
				return &pipeline.LocateError{Reason: failure.Reason, Attempts: failure.Attempts}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&quality, "quality", "", "Video quality (defaults to LOCATOR_VIDEO_QUALITY)")
	cmd.Flags().StringVar(&audioFormat, "audio-format", "", "Audio format (defaults to LOCATOR_AUDIO_FORMAT)")
	return cmd
}

func newTimelineCmd() *cobra.Command {
	var tf timelineFlags

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Split a script into timed caption clips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tl, err := tf.build(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tl)
		},
	}

	tf.register(cmd)
	return cmd
}

func newComposeCmd() *cobra.Command {
	var (
		tf       timelineFlags
		of       outputFlags
		mediaURL string
		trim     float64
	)

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Build a render job payload without submitting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if trim < 0 {
				return fmt.Errorf("--trim must be >= 0, got %v", trim)
			}
			tl, err := tf.build(cmd)
			if err != nil {
				return err
			}
			tl.Background.SourceURL = mediaURL
			tl.Background.TrimStartSeconds = trim
			return writeJSON(cmd.OutOrStdout(), render.Compose(mediaURL, trim, tl, of.spec))
		},
	}

	tf.register(cmd)
	of.register(cmd)
	cmd.Flags().StringVar(&mediaURL, "media-url", "", "Located media URL for the background track")
	cmd.Flags().Float64Var(&trim, "trim", 0, "Seconds to skip at the start of the media")
	_ = cmd.MarkFlagRequired("media-url")
	return cmd
}

func newProduceCmd(a *app) *cobra.Command {
	var (
		tf      timelineFlags
		of      outputFlags
		source  string
		quality string
		trim    float64
	)

	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Locate, compose and submit a render in one go",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			script, err := readScript(cmd, tf.scriptPath)
			if err != nil {
				return err
			}
			billed, err := models.ParseService(a.cfg.RenderBilledService)
			if err != nil {
				return fmt.Errorf("RENDER_BILLED_SERVICE: %w", err)
			}

			ledger, s, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(s)

			p := pipeline.New(a.newLocator(), a.newRenderClient(), ledger, billed)
			output := of.spec
			result, err := p.Produce(cmd.Context(), pipeline.ContentRequest{
				SourceURL:        source,
				Script:           script,
				Quality:          quality,
				DurationSeconds:  tf.duration,
				TrimStartSeconds: trim,
				DisableCaptions:  tf.noCaptions,
				Output:           &output,
			})
			if err != nil {
				return err
			}

			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Queued() {
				return fmt.Errorf("job %s was not queued: %w", result.JobID, submitCause(result))
			}
			return nil
		},
	}

	tf.register(cmd)
	of.register(cmd)
	cmd.Flags().StringVar(&source, "source", "", "Video link to use as the background")
	cmd.Flags().StringVar(&quality, "quality", "", "Video quality (defaults to LOCATOR_VIDEO_QUALITY)")
	cmd.Flags().Float64Var(&trim, "trim", 0, "Seconds to skip at the start of the media")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func submitCause(result *pipeline.ContentResult) error {
	if result.SubmitError != nil {
		return result.SubmitError
	}
	return errors.New("render service returned no id")
}
