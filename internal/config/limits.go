// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/j-veylop/clipforge/internal/models"
)

// ErrNoBottleneck is returned when no service limit is flagged as the bottleneck.
var ErrNoBottleneck = errors.New("no bottleneck service configured")

// limitsFile is the on-disk shape of SERVICE_LIMITS_PATH.
type limitsFile struct {
	Limits []models.ServiceLimit `yaml:"limits"`
}

// HeyGenWarningThreshold is the built-in warning percentage for heygen credits.
const HeyGenWarningThreshold = 70.0

// DefaultLimits returns the built-in quota table.
func DefaultLimits() []models.ServiceLimit {
	return []models.ServiceLimit{
		{
			Service:           models.ServiceOpenAI,
			MonthlyBudget:     models.Float64(50),
			WarningThreshold:  models.DefaultWarningThreshold,
			CriticalThreshold: models.DefaultCriticalThreshold,
		},
		{
			Service:           models.ServiceAnthropic,
			MonthlyBudget:     models.Float64(50),
			WarningThreshold:  models.DefaultWarningThreshold,
			CriticalThreshold: models.DefaultCriticalThreshold,
		},
		{
			Service:           models.ServiceElevenLabs,
			MonthlyBudget:     models.Float64(22),
			WarningThreshold:  models.DefaultWarningThreshold,
			CriticalThreshold: models.DefaultCriticalThreshold,
		},
		{
			Service:           models.ServiceHeyGen,
			MonthlyCredits:    models.Float64(10),
			// Credits run out in whole videos, so warn one video earlier.
			WarningThreshold:  HeyGenWarningThreshold,
			CriticalThreshold: models.DefaultCriticalThreshold,
			CostPerUnit:       1,
			IsBottleneck:      true,
		},
		{
			Service:           models.ServiceGoogleCloud,
			TotalCredit:       models.Float64(300),
			WarningThreshold:  models.DefaultWarningThreshold,
			CriticalThreshold: models.DefaultCriticalThreshold,
		},
	}
}

// LoadLimits reads the service limit table from a YAML file.
// An empty path returns DefaultLimits.
func LoadLimits(path string) ([]models.ServiceLimit, error) {
	if path == "" {
		return DefaultLimits(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service limits: %w", err)
	}

	var file limitsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := ValidateLimits(file.Limits); err != nil {
		return nil, fmt.Errorf("invalid service limits in %s: %w", path, err)
	}
	return file.Limits, nil
}

// ValidateLimits checks every limit and the table as a whole.
func ValidateLimits(limits []models.ServiceLimit) error {
	seen := make(map[models.Service]bool, len(limits))
	bottlenecks := 0

	for _, l := range limits {
		if !l.Service.Valid() {
			return fmt.Errorf("%w: %q", models.ErrUnknownService, l.Service)
		}
		if seen[l.Service] {
			return fmt.Errorf("duplicate limit for %s", l.Service)
		}
		seen[l.Service] = true

		if n := l.QuotaFieldCount(); n != 1 {
			return fmt.Errorf("%s: exactly one of monthlyBudget, monthlyCredits, totalCredit must be set (got %d)", l.Service, n)
		}
		if l.Quota() <= 0 {
			return fmt.Errorf("%s: quota must be positive", l.Service)
		}

		warning, critical := l.Thresholds()
		if warning > 100 || critical > 100 {
			return fmt.Errorf("%s: thresholds must be <= 100", l.Service)
		}
		if warning >= critical {
			return fmt.Errorf("%s: warning threshold must be below critical", l.Service)
		}
		if l.CostPerUnit < 0 {
			return fmt.Errorf("%s: costPerUnit must be >= 0", l.Service)
		}
		if l.IsBottleneck {
			if l.CostPerUnit <= 0 {
				return fmt.Errorf("%s: bottleneck service needs a positive costPerUnit", l.Service)
			}
			bottlenecks++
		}
	}

	if bottlenecks > 1 {
		return fmt.Errorf("at most one bottleneck service allowed, got %d", bottlenecks)
	}
	return nil
}

// Bottleneck returns the limit flagged as the bottleneck.
func Bottleneck(limits []models.ServiceLimit) (models.ServiceLimit, error) {
	for _, l := range limits {
		if l.IsBottleneck {
			return l, nil
		}
	}
	return models.ServiceLimit{}, ErrNoBottleneck
}
