package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/j-veylop/clipforge/internal/config"
	"github.com/j-veylop/clipforge/internal/logger"
	"github.com/j-veylop/clipforge/internal/services/locator"
	"github.com/j-veylop/clipforge/internal/services/render"
	"github.com/j-veylop/clipforge/internal/services/usage"
	"github.com/j-veylop/clipforge/internal/store"
	"github.com/j-veylop/clipforge/internal/version"
)

// app carries what the subcommands share once configuration is loaded.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "clipforge",
		Short:         "Turn a video link and a script into a captioned short-form render",
		Long:          `clipforge locates a downloadable stream for a video link, splits a narration script into timed captions, submits the composed job to a render service and keeps a per-day ledger of billed API usage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			a.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		newLocateCmd(a),
		newTimelineCmd(),
		newComposeCmd(),
		newProduceCmd(a),
		newUsageCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

func (a *app) newLocator() *locator.Client {
	return locator.New(locator.Config{
		URL:          a.cfg.LocatorURL,
		APIKey:       a.cfg.LocatorAPIKey,
		VideoCodec:   a.cfg.LocatorVideoCodec,
		VideoQuality: a.cfg.LocatorVideoQuality,
		AudioFormat:  a.cfg.LocatorAudioFormat,
		Timeout:      a.cfg.LocatorTimeout,
	})
}

func (a *app) newRenderClient() *render.Client {
	return render.NewClient(a.cfg.RenderURL, a.cfg.RenderAPIKey, nil, a.cfg.RenderTimeout)
}

// openLedger opens the configured store and wraps it in a ledger.
// The caller closes the returned store.
func (a *app) openLedger(ctx context.Context) (*usage.Ledger, store.ObjectStore, error) {
	limits, err := config.LoadLimits(a.cfg.ServiceLimitsPath)
	if err != nil {
		return nil, nil, err
	}

	s, err := store.Open(ctx, a.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open usage store: %w", err)
	}
	return usage.New(s, limits), s, nil
}

func closeStore(s store.ObjectStore) {
	if err := s.Close(); err != nil {
		logger.Error("failed to close usage store", "error", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readScript reads a narration script from path, or from stdin when path is "-".
func readScript(cmd *cobra.Command, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read script from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(data), nil
}
