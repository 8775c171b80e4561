// Package usage records billed operations per day and evaluates them against quotas.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/clipforge/internal/config"
	"github.com/j-veylop/clipforge/internal/logger"
	"github.com/j-veylop/clipforge/internal/models"
	"github.com/j-veylop/clipforge/internal/store"
)

var (
	// ErrInvalidEntry wraps validation failures from Record.
	ErrInvalidEntry = errors.New("invalid usage entry")
	// ErrInvalidMonth is returned for year-month strings not in YYYY-MM form.
	ErrInvalidMonth = errors.New("invalid year-month")
	// ErrListingUnsupported is returned by LoggedDays when the store cannot list keys.
	ErrListingUnsupported = errors.New("store cannot list usage logs")
)

// maxConcurrentReads bounds the store reads issued while folding a month.
const maxConcurrentReads = 8

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithIDGenerator replaces the uuid generator used for entries without an ID.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) {
		l.newID = newID
	}
}

// Ledger is an append-only usage log keyed by calendar date.
//
// Record is a read-modify-write of the whole daily object. Writers in this process are
// serialised per date; separate processes writing the same date can still lose an update
// (last write wins).
type Ledger struct {
	store     store.ObjectStore
	limits    map[models.Service]models.ServiceLimit
	now       func() time.Time
	newID     func() string
	dateLocks map[string]*dateLock
	order     []models.ServiceLimit
	mu        sync.Mutex
}

// New creates a ledger over s using the given quota table.
func New(s store.ObjectStore, limits []models.ServiceLimit, opts ...Option) *Ledger {
	l := &Ledger{
		store:     s,
		limits:    make(map[models.Service]models.ServiceLimit, len(limits)),
		now:       time.Now,
		newID:     uuid.NewString,
		dateLocks: make(map[string]*dateLock),
		order:     append([]models.ServiceLimit(nil), limits...),
	}
	for _, limit := range limits {
		l.limits[limit.Service] = limit
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured limit for service.
func (l *Ledger) Limit(service models.Service) (models.ServiceLimit, bool) {
	limit, ok := l.limits[service]
	return limit, ok
}

// Limits returns the quota table in configuration order.
func (l *Ledger) Limits() []models.ServiceLimit {
	return append([]models.ServiceLimit(nil), l.order...)
}

// Now returns the ledger's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// dateLock serialises writers of one date. refs counts holders and waiters.
type dateLock struct {
	mu   sync.Mutex
	refs int
}

// lockDate locks date and returns the unlock func. The entry is dropped once the
// last holder releases it.
func (l *Ledger) lockDate(date string) func() {
	l.mu.Lock()
	dl, ok := l.dateLocks[date]
	if !ok {
		dl = &dateLock{}
		l.dateLocks[date] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.mu.Lock()
	return func() {
		dl.mu.Unlock()

		l.mu.Lock()
		dl.refs--
		if dl.refs == 0 {
			delete(l.dateLocks, date)
		}
		l.mu.Unlock()
	}
}

// Record appends entry to the log for date. Only validation failures are returned;
// store failures are logged and the entry is dropped.
func (l *Ledger) Record(ctx context.Context, date time.Time, entry models.UsageEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	if entry.ID == "" {
		entry.ID = l.newID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	isoDate := date.Format(models.DateLayout)
	unlock := l.lockDate(isoDate)
	defer unlock()

	log, err := l.loadLog(ctx, isoDate)
	if err != nil {
		logger.Error("failed to read usage log, entry dropped",
			"date", isoDate, "service", entry.Service, "error", err)
		return nil
	}

	log.Append(entry, l.now())

	data, err := json.Marshal(log)
	if err != nil {
		logger.Error("failed to encode usage log", "date", isoDate, "error", err)
		return nil
	}
	if err := l.store.Put(ctx, store.DailyLogKeyFor(isoDate), data); err != nil {
		logger.Error("failed to write usage log, entry dropped",
			"date", isoDate, "service", entry.Service, "error", err)
		return nil
	}

	logger.Debug("recorded usage", "date", isoDate, "service", entry.Service,
		"operation", entry.Operation, "cost", entry.Cost)
	return nil
}

// loadLog returns the stored log for isoDate, or a fresh empty one if none exists.
func (l *Ledger) loadLog(ctx context.Context, isoDate string) (*models.DailyUsageLog, error) {
	data, err := l.store.Get(ctx, store.DailyLogKeyFor(isoDate))
	if errors.Is(err, store.ErrNotFound) {
		return models.NewDailyUsageLog(isoDate), nil
	}
	if err != nil {
		return nil, err
	}

	var log models.DailyUsageLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("corrupt usage log %s: %w", isoDate, err)
	}
	if log.Date == "" {
		log.Date = isoDate
	}
	if log.Entries == nil {
		log.Entries = []models.UsageEntry{}
	}
	if log.Totals == nil {
		log.Totals = make(map[models.Service]models.ServiceCounters)
	}
	return &log, nil
}

// DailyTotals returns the per-service counters for date. Every known service is present;
// a missing or unreadable log yields all-zero counters.
func (l *Ledger) DailyTotals(ctx context.Context, date time.Time) map[models.Service]models.ServiceCounters {
	return l.dailyTotals(ctx, date.Format(models.DateLayout))
}

func (l *Ledger) dailyTotals(ctx context.Context, isoDate string) map[models.Service]models.ServiceCounters {
	totals := models.ZeroTotals()

	log, err := l.loadLog(ctx, isoDate)
	if err != nil {
		logger.Warn("failed to read usage log, using zero totals", "date", isoDate, "error", err)
		return totals
	}
	for service, counters := range log.Totals {
		c := totals[service]
		c.Merge(counters)
		totals[service] = c
	}
	return totals
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(yearMonth string) (time.Time, error) {
	month, err := time.Parse(models.MonthLayout, yearMonth)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, yearMonth)
	}
	return month, nil
}

// DaysIn returns the number of days in month.
func DaysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// LoggedDays returns the ISO dates in yearMonth that have a stored daily log.
func (l *Ledger) LoggedDays(ctx context.Context, yearMonth string) ([]string, error) {
	if _, err := ParseMonth(yearMonth); err != nil {
		return nil, err
	}
	lister, ok := l.store.(store.Lister)
	if !ok {
		return nil, ErrListingUnsupported
	}

	keys, err := lister.Keys(ctx, store.DailyLogPrefix+yearMonth+"-")
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(key, store.DailyLogPrefix), ".json")
		if _, err := time.Parse(models.DateLayout, name); err == nil {
			dates = append(dates, name)
		}
	}
	return dates, nil
}

// monthDays reads every day of yearMonth concurrently. The result is indexed by day-1.
// When the store can list its keys only days with a log are read.
func (l *Ledger) monthDays(ctx context.Context, yearMonth string) ([]map[models.Service]models.ServiceCounters, error) {
	month, err := ParseMonth(yearMonth)
	if err != nil {
		return nil, err
	}

	var logged map[string]bool
	switch dates, err := l.LoggedDays(ctx, yearMonth); {
	case err == nil:
		logged = make(map[string]bool, len(dates))
		for _, d := range dates {
			logged[d] = true
		}
	case !errors.Is(err, ErrListingUnsupported):
		logger.Warn("failed to list usage logs, reading every day", "month", yearMonth, "error", err)
	}

	days := make([]map[models.Service]models.ServiceCounters, DaysIn(month))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)

	for i := range days {
		isoDate := time.Date(month.Year(), month.Month(), i+1, 0, 0, 0, 0, time.UTC).Format(models.DateLayout)
		if logged != nil && !logged[isoDate] {
			days[i] = models.ZeroTotals()
			continue
		}
		g.Go(func() error {
			days[i] = l.dailyTotals(gctx, isoDate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

// MonthlyTotals folds the daily totals of every day in yearMonth (YYYY-MM).
// Missing days contribute zero; only a malformed month or cancellation is an error.
func (l *Ledger) MonthlyTotals(ctx context.Context, yearMonth string) (map[models.Service]models.ServiceCounters, error) {
	days, err := l.monthDays(ctx, yearMonth)
	if err != nil {
		return nil, err
	}

	totals := models.ZeroTotals()
	for _, day := range days {
		for service, counters := range day {
			c := totals[service]
			c.Merge(counters)
			totals[service] = c
		}
	}
	return totals, nil
}

// DailySeries returns the cost recorded for service on each day of yearMonth.
func (l *Ledger) DailySeries(ctx context.Context, yearMonth string, service models.Service) ([]float64, error) {
	days, err := l.monthDays(ctx, yearMonth)
	if err != nil {
		return nil, err
	}
	series := make([]float64, len(days))
	for i, day := range days {
		series[i] = day[service].Cost
	}
	return series, nil
}

// Status classifies currentUsage (in quota units) against the service's limit.
// A service without a limit, or with a zero quota, is always ok.
func (l *Ledger) Status(service models.Service, currentUsage float64) models.Health {
	limit, ok := l.limits[service]
	if !ok || limit.Quota() <= 0 {
		return models.HealthOK
	}
	return classify(limit, percentOf(currentUsage, limit.Quota()))
}

func classify(limit models.ServiceLimit, percent float64) models.Health {
	warning, critical := limit.Thresholds()
	switch {
	case percent >= critical:
		return models.HealthCritical
	case percent >= warning:
		return models.HealthWarning
	default:
		return models.HealthOK
	}
}

func percentOf(used, quota float64) float64 {
	if quota <= 0 {
		return 0
	}
	return used / quota * 100
}

// RemainingCapacity estimates what the bottleneck service can still produce this month.
func (l *Ledger) RemainingCapacity(ctx context.Context) (models.Capacity, error) {
	limit, err := config.Bottleneck(l.order)
	if err != nil {
		return models.Capacity{}, err
	}

	now := l.now()
	totals, err := l.MonthlyTotals(ctx, now.Format(models.MonthLayout))
	if err != nil {
		return models.Capacity{}, err
	}

	units := math.Max(limit.Quota()-totals[limit.Service].Cost, 0)
	var items int64
	if limit.CostPerUnit > 0 {
		items = int64(math.Floor(units / limit.CostPerUnit))
	}

	return models.Capacity{
		Service:                 limit.Service,
		UnitsRemaining:          units,
		EstimatedItemsRemaining: items,
		DaysUntilReset:          DaysIn(now) - now.Day(),
	}, nil
}
