package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/j-veylop/clipforge/internal/logger"
	"github.com/j-veylop/clipforge/internal/models"
	"github.com/j-veylop/clipforge/internal/report"
	"github.com/j-veylop/clipforge/internal/services/usage"
	"github.com/j-veylop/clipforge/internal/store"
)

const defaultReportWidth = 100

func newUsageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Record and inspect billed API usage",
	}
	cmd.AddCommand(
		newUsageRecordCmd(a),
		newUsageDailyCmd(a),
		newUsageMonthlyCmd(a),
		newUsageStatusCmd(a),
		newUsageCapacityCmd(a),
		newUsageReportCmd(a),
		newUsageDaysCmd(a),
		newUsageLimitsCmd(a),
		newUsageWatchCmd(a),
	)
	return cmd
}

// withLedger opens the ledger for the duration of fn.
func (a *app) withLedger(ctx context.Context, fn func(*usage.Ledger) error) error {
	ledger, s, err := a.openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeStore(s)
	return fn(ledger)
}

func parseDate(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now, nil
	}
	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", value)
	}
	return d, nil
}

func monthOrCurrent(value string, now time.Time) string {
	if value == "" {
		return now.Format(models.MonthLayout)
	}
	return value
}

func newUsageRecordCmd(a *app) *cobra.Command {
	var (
		service    string
		operation  string
		date       string
		requests   int64
		cost       float64
		tokens     int64
		characters int64
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Append one usage entry to a daily log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := models.ParseService(service)
			if err != nil {
				return err
			}
			entry := models.UsageEntry{
				Service:   svc,
				Operation: operation,
				Requests:  requests,
				Cost:      cost,
			}
			if cmd.Flags().Changed("tokens") {
				entry.Tokens = models.Int64(tokens)
			}
			if cmd.Flags().Changed("characters") {
				entry.Characters = models.Int64(characters)
			}

			return a.withLedger(cmd.Context(), func(l *usage.Ledger) error {
				day, err := parseDate(date, l.Now())
				if err != nil {
					return err
				}
				if err := l.Record(cmd.Context(), day, entry); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "recorded %s %s on %s\n", svc, operation, day.Format(models.DateLayout))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Billed service name")
	cmd.Flags().StringVar(&operation, "operation", "", "Operation label")
	cmd.Flags().StringVar(&date, "date", "", "Log date as YYYY-MM-DD (defaults to today)")
	cmd.Flags().Int64Var(&requests, "requests", 1, "Number of requests")
	cmd.Flags().Float64Var(&cost, "cost", 0, "Cost in quota units")
	cmd.Flags().Int64Var(&tokens, "tokens", 0, "Tokens consumed")
	cmd.Flags().Int64Var(&characters, "characters", 0, "Characters consumed")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("operation")
	return cmd
}

func newUsageDailyCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Show per-service totals for one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd.Context(), func(l *usage.Ledger) error {
				day, err := parseDate(date, l.Now())
				if err != nil {
					return err
				}
				totals := l.DailyTotals(cmd.Context(), day)
				_, err = fmt.Fprintln(cmd.OutOrStdout(), report.RenderTotals(day.Format(models.DateLayout), totals))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Log date as YYYY-MM-DD (defaults to today)")
	return cmd
}

func newUsageMonthlyCmd(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Show per-service totals for a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd.Context(), func(l *usage.Ledger) error {
				ym := monthOrCurrent(month, l.Now())
				totals, err := l.MonthlyTotals(cmd.Context(), ym)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), report.RenderTotals(ym, totals))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (defaults to the current month)")
	return cmd
}

func newUsageStatusCmd(a *app) *cobra.Command {
	var (
		service string
		amount  float64
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Classify a usage figure against a service quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := models.ParseService(service)
			if err != nil {
				return err
			}
			return a.withLedger(cmd.Context(), func(l *usage.Ledger) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), report.RenderStatus(svc, amount, l.Status(svc, amount)))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Service name")
	cmd.Flags().Float64Var(&amount, "usage", 0, "Usage in quota units")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("usage")
	return cmd
}

func newUsageCapacityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "capacity",
		Short: "Estimate how many more items the bottleneck service allows this month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd.Context(), func(l *usage.Ledger) error {
				c, err := l.RemainingCapacity(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), report.RenderCapacity(c))
				return err
			})
		},
	}
}

func newUsageReportCmd(a *app) *cobra.Command {
	var (
		month  string
		chart  string
		width  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show quota usage and month-end projections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd.Context(), func(l *usage.Ledger) error {
				ym := monthOrCurrent(month, l.Now())
				reports, err := l.Report(cmd.Context(), ym)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), reports)
				}

				out := cmd.OutOrStdout()
				if _, err := fmt.Fprintln(out, report.RenderUsage(ym, reports, width)); err != nil {
					return err
				}
				if chart == "" {
					return nil
				}
				return writeChart(cmd.Context(), out, l, ym, chart, width)
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (defaults to the current month)")
	cmd.Flags().StringVar(&chart, "chart", "", "Plot daily cost for this service")
	cmd.Flags().IntVar(&width, "width", defaultReportWidth, "Output width in cells")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func newUsageDaysCmd(a *app) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "days",
		Short: "List the days of a month that have a usage log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd.Context(), func(l *usage.Ledger) error {
				dates, err := l.LoggedDays(cmd.Context(), monthOrCurrent(month, l.Now()))
				if err != nil {
					return err
				}
				for _, d := range dates {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), d); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (defaults to the current month)")
	return cmd
}

func newUsageLimitsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Print the service quota table in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLedger(cmd.Context(), func(l *usage.Ledger) error {
				return writeJSON(cmd.OutOrStdout(), l.Limits())
			})
		},
	}
}

func writeChart(ctx context.Context, w io.Writer, l *usage.Ledger, yearMonth, service string, width int) error {
	svc, err := models.ParseService(service)
	if err != nil {
		return err
	}
	series, err := l.DailySeries(ctx, yearMonth, svc)
	if err != nil {
		return err
	}
	caption := fmt.Sprintf("%s daily cost, %s", svc, yearMonth)
	_, err = fmt.Fprintln(w, "\n"+report.RenderDailyChart(series, width-10, 8, caption))
	return err
}

func newUsageWatchCmd(a *app) *cobra.Command {
	var (
		notify bool
		width  int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-print the usage report whenever the ledger changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("notify") {
				notify = a.cfg.UsageNotify
			}
			ledger, s, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore(s)

			w := &watcher{ledger: ledger, out: cmd.OutOrStdout(), width: width}
			if notify {
				w.alerter = usage.NewAlerter(nil)
			}
			return w.run(cmd.Context(), a.storeChanges(cmd.Context(), s))
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Send desktop notifications on health changes (defaults to USAGE_NOTIFY)")
	cmd.Flags().IntVar(&width, "width", defaultReportWidth, "Output width in cells")
	return cmd
}

// storeChanges returns a channel that ticks whenever the ledger may have changed.
// A filesystem store reports writes directly; other stores are polled.
func (a *app) storeChanges(ctx context.Context, s store.ObjectStore) <-chan struct{} {
	changes := make(chan struct{}, 1)
	changed := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	if fs, ok := s.(*store.FSStore); ok {
		err := fs.Watch(ctx, func(key string) {
			logger.Debug("usage log changed", "key", key)
			changed()
		})
		if err == nil {
			return changes
		}
		logger.Warn("file watch unavailable, falling back to polling", "error", err)
	}

	go func() {
		ticker := time.NewTicker(a.cfg.UsageWatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				changed()
			}
		}
	}()
	return changes
}

// watcher prints the current month's report on every change signal.
type watcher struct {
	ledger  *usage.Ledger
	alerter *usage.Alerter
	out     io.Writer
	width   int
}

func (w *watcher) run(ctx context.Context, changes <-chan struct{}) error {
	if err := w.refresh(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			if err := w.refresh(ctx); err != nil {
				logger.Error("failed to refresh usage report", "error", err)
			}
		}
	}
}

func (w *watcher) refresh(ctx context.Context) error {
	ym := w.ledger.Now().Format(models.MonthLayout)
	reports, err := w.ledger.Report(ctx, ym)
	if err != nil {
		return err
	}
	if w.alerter != nil {
		for _, alert := range w.alerter.Check(reports) {
			logger.Info("usage health changed", "service", alert.Service, "from", alert.From, "to", alert.To, "percent", alert.Percent)
		}
	}
	_, err = fmt.Fprintf(w.out, "%s\n\n", report.RenderUsage(ym, reports, w.width))
	return err
}
