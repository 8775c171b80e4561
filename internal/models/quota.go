// Package models defines data structures and domain types.
package models

// Default threshold percentages applied when a limit leaves them unset.
const (
	DefaultWarningThreshold  = 75.0
	DefaultCriticalThreshold = 90.0
)

// ServiceLimit is the static quota configuration for one service.
// Exactly one of MonthlyBudget, MonthlyCredits and TotalCredit is expected to be set.
type ServiceLimit struct {
	MonthlyBudget     *float64 `yaml:"monthlyBudget,omitempty" json:"monthlyBudget,omitempty"`
	MonthlyCredits    *float64 `yaml:"monthlyCredits,omitempty" json:"monthlyCredits,omitempty"`
	TotalCredit       *float64 `yaml:"totalCredit,omitempty" json:"totalCredit,omitempty"`
	Service           Service  `yaml:"service" json:"service"`
	WarningThreshold  float64  `yaml:"warningThreshold" json:"warningThreshold"`
	CriticalThreshold float64  `yaml:"criticalThreshold" json:"criticalThreshold"`
	CostPerUnit       float64  `yaml:"costPerUnit" json:"costPerUnit"`
	IsBottleneck      bool     `yaml:"isBottleneck" json:"isBottleneck"`
}

// Quota returns whichever quota field is set, or 0 when none is.
func (l ServiceLimit) Quota() float64 {
	switch {
	case l.MonthlyBudget != nil:
		return *l.MonthlyBudget
	case l.MonthlyCredits != nil:
		return *l.MonthlyCredits
	case l.TotalCredit != nil:
		return *l.TotalCredit
	default:
		return 0
	}
}

// QuotaFieldCount returns how many quota fields are set.
func (l ServiceLimit) QuotaFieldCount() int {
	n := 0
	for _, f := range []*float64{l.MonthlyBudget, l.MonthlyCredits, l.TotalCredit} {
		if f != nil {
			n++
		}
	}
	return n
}

// Thresholds returns the warning and critical percentages with defaults applied.
func (l ServiceLimit) Thresholds() (warning, critical float64) {
	warning, critical = l.WarningThreshold, l.CriticalThreshold
	if warning <= 0 {
		warning = DefaultWarningThreshold
	}
	if critical <= 0 {
		critical = DefaultCriticalThreshold
	}
	return warning, critical
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// Health classifies a service's quota consumption.
type Health string

const (
	// HealthOK means usage is below the warning threshold.
	HealthOK Health = "ok"
	// HealthWarning means usage reached the warning threshold.
	HealthWarning Health = "warning"
	// HealthCritical means usage reached the critical threshold.
	HealthCritical Health = "critical"
)

// Severity orders health values so transitions can be compared.
func (h Health) Severity() int {
	switch h {
	case HealthWarning:
		return 1
	case HealthCritical:
		return 2
	default:
		return 0
	}
}

// Capacity estimates how much more the bottleneck service can produce this month.
type Capacity struct {
	Service                 Service `json:"service"`
	UnitsRemaining          float64 `json:"unitsRemaining"`
	EstimatedItemsRemaining int64   `json:"estimatedItemsRemaining"`
	DaysUntilReset          int     `json:"daysUntilReset"`
}
