// Package models defines data structures and domain types.
package models

// ServiceUsageReport summarises one service's usage for a month.
type ServiceUsageReport struct {
	Totals ServiceCounters `json:"totals"`
	// Used is consumption in quota units (the summed cost).
	Used  float64 `json:"used"`
	Quota float64 `json:"quota"`
	// Percent is Used relative to Quota, 0 when no quota is configured.
	Percent float64 `json:"percent"`
	// Projected is the linear month-end estimate of Used.
	Projected        float64 `json:"projected"`
	ProjectedPercent float64 `json:"projectedPercent"`
	Service          Service `json:"service"`
	Health           Health  `json:"health"`
	ProjectedHealth  Health  `json:"projectedHealth"`
	HasLimit         bool    `json:"hasLimit"`
	IsBottleneck     bool    `json:"isBottleneck"`
}
