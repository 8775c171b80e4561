package usage

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/clipforge/internal/logger"
	"github.com/j-veylop/clipforge/internal/models"
)

// Notifier delivers a desktop notification.
type Notifier func(title, message string) error

// DesktopNotifier sends notifications through the OS notification center.
func DesktopNotifier(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Alert is a change in a service's health between two checks.
type Alert struct {
	Service models.Service
	From    models.Health
	To      models.Health
	Percent float64
}

// Alerter remembers the last health of each service and notifies on changes.
type Alerter struct {
	notify   Notifier
	previous map[models.Service]models.Health
	mu       sync.Mutex
}

// NewAlerter creates an alerter. A nil notify uses DesktopNotifier.
func NewAlerter(notify Notifier) *Alerter {
	if notify == nil {
		notify = DesktopNotifier
	}
	return &Alerter{
		notify:   notify,
		previous: make(map[models.Service]models.Health),
	}
}

// Check compares reports with the previous call. The first sighting of a service only
// sets its baseline. A worsening health raises an alert, and so does a return to ok.
func (a *Alerter) Check(reports []models.ServiceUsageReport) []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()

	var alerts []Alert
	for _, r := range reports {
		if !r.HasLimit {
			continue
		}
		prev, seen := a.previous[r.Service]
		a.previous[r.Service] = r.Health
		if !seen || prev == r.Health {
			continue
		}

		worse := r.Health.Severity() > prev.Severity()
		if !worse && r.Health != models.HealthOK {
			continue
		}

		alert := Alert{Service: r.Service, From: prev, To: r.Health, Percent: r.Percent}
		alerts = append(alerts, alert)

		title, body := alertText(alert, worse)
		if err := a.notify(title, body); err != nil {
			logger.Warn("failed to send notification", "service", r.Service, "error", err)
		}
	}
	return alerts
}

func alertText(a Alert, worse bool) (string, string) {
	if !worse {
		return fmt.Sprintf("Quota Recovered: %s", a.Service),
			fmt.Sprintf("Usage is back to %.1f%% of quota", a.Percent)
	}
	if a.To == models.HealthCritical {
		return fmt.Sprintf("Critical Quota: %s", a.Service),
			fmt.Sprintf("Usage reached %.1f%% of quota", a.Percent)
	}
	return fmt.Sprintf("Quota Warning: %s", a.Service),
		fmt.Sprintf("Usage reached %.1f%% of quota", a.Percent)
}
