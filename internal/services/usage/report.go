package usage

import (
	"context"
	"time"

	"github.com/j-veylop/clipforge/internal/models"
)

// Report summarises every known service for yearMonth, with a linear month-end
// projection based on the days elapsed so far.
func (l *Ledger) Report(ctx context.Context, yearMonth string) ([]models.ServiceUsageReport, error) {
	month, err := ParseMonth(yearMonth)
	if err != nil {
		return nil, err
	}
	totals, err := l.MonthlyTotals(ctx, yearMonth)
	if err != nil {
		return nil, err
	}

	days := DaysIn(month)
	elapsed := elapsedDays(month, l.now(), days)

	reports := make([]models.ServiceUsageReport, 0, len(models.AllServices))
	for _, service := range models.AllServices {
		counters := totals[service]
		r := models.ServiceUsageReport{
			Service:         service,
			Totals:          counters,
			Used:            counters.Cost,
			Projected:       project(counters.Cost, elapsed, days),
			Health:          models.HealthOK,
			ProjectedHealth: models.HealthOK,
		}

		if limit, ok := l.limits[service]; ok && limit.Quota() > 0 {
			r.HasLimit = true
			r.IsBottleneck = limit.IsBottleneck
			r.Quota = limit.Quota()
			r.Percent = percentOf(r.Used, r.Quota)
			r.ProjectedPercent = percentOf(r.Projected, r.Quota)
			r.Health = classify(limit, r.Percent)
			r.ProjectedHealth = classify(limit, r.ProjectedPercent)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// elapsedDays counts the days of month that have started by now.
func elapsedDays(month, now time.Time, days int) int {
	y, m, _ := now.Date()
	switch {
	case y == month.Year() && m == month.Month():
		return now.Day()
	case y > month.Year() || (y == month.Year() && m > month.Month()):
		return days
	default:
		return 0
	}
}

// project extrapolates used over the whole month at the observed daily rate.
func project(used float64, elapsed, days int) float64 {
	if elapsed <= 0 || elapsed >= days {
		return used
	}
	return used / float64(elapsed) * float64(days)
}
