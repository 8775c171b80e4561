// Package models defines data structures and domain types.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Service identifies a billed external provider.
type Service string

const (
	// ServiceOpenAI is the OpenAI API.
	ServiceOpenAI Service = "openai"
	// ServiceAnthropic is the Anthropic API.
	ServiceAnthropic Service = "anthropic"
	// ServiceElevenLabs is the ElevenLabs voice API.
	ServiceElevenLabs Service = "elevenlabs"
	// ServiceHeyGen is the HeyGen video API.
	ServiceHeyGen Service = "heygen"
	// ServiceGoogleCloud covers Google Cloud APIs.
	ServiceGoogleCloud Service = "googleCloud"
)

// AllServices lists every known service in display order.
var AllServices = []Service{
	ServiceOpenAI,
	ServiceAnthropic,
	ServiceElevenLabs,
	ServiceHeyGen,
	ServiceGoogleCloud,
}

// ErrUnknownService is returned when a service name is not recognised.
var ErrUnknownService = errors.New("unknown service")

// ParseService converts a name into a Service.
func ParseService(name string) (Service, error) {
	for _, s := range AllServices {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownService, name)
}

// Valid reports whether s is one of the known services.
func (s Service) Valid() bool {
	_, err := ParseService(string(s))
	return err == nil
}

// UsageEntry records one billed external operation.
type UsageEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Tokens     *int64    `json:"tokens,omitempty"`
	Characters *int64    `json:"characters,omitempty"`
	ID         string    `json:"id,omitempty"`
	Service    Service   `json:"service"`
	Operation  string    `json:"operation"`
	Requests   int64     `json:"requests"`
	Cost       float64   `json:"cost"`
}

// Validate checks the entry invariants.
func (e UsageEntry) Validate() error {
	if !e.Service.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownService, e.Service)
	}
	if e.Requests < 1 {
		return fmt.Errorf("requests must be >= 1, got %d", e.Requests)
	}
	if e.Cost < 0 {
		return fmt.Errorf("cost must be >= 0, got %v", e.Cost)
	}
	if e.Tokens != nil && *e.Tokens < 0 {
		return fmt.Errorf("tokens must be >= 0, got %d", *e.Tokens)
	}
	if e.Characters != nil && *e.Characters < 0 {
		return fmt.Errorf("characters must be >= 0, got %d", *e.Characters)
	}
	return nil
}

// ServiceCounters holds aggregated usage for one service.
// Tokens and Characters stay nil until an entry carrying them is added.
type ServiceCounters struct {
	Tokens     *int64  `json:"tokens,omitempty"`
	Characters *int64  `json:"characters,omitempty"`
	Requests   int64   `json:"requests"`
	Cost       float64 `json:"cost"`
}

// Add folds a single entry into the counters.
func (c *ServiceCounters) Add(e UsageEntry) {
	c.Requests += e.Requests
	c.Cost += e.Cost
	c.Tokens = addOptional(c.Tokens, e.Tokens)
	c.Characters = addOptional(c.Characters, e.Characters)
}

// Merge folds another set of counters into c.
func (c *ServiceCounters) Merge(o ServiceCounters) {
	c.Requests += o.Requests
	c.Cost += o.Cost
	c.Tokens = addOptional(c.Tokens, o.Tokens)
	c.Characters = addOptional(c.Characters, o.Characters)
}

// TokenCount returns the token counter, treating absence as zero.
func (c ServiceCounters) TokenCount() int64 {
	if c.Tokens == nil {
		return 0
	}
	return *c.Tokens
}

// CharacterCount returns the character counter, treating absence as zero.
func (c ServiceCounters) CharacterCount() int64 {
	if c.Characters == nil {
		return 0
	}
	return *c.Characters
}

func addOptional(total, delta *int64) *int64 {
	if delta == nil {
		return total
	}
	sum := *delta
	if total != nil {
		sum += *total
	}
	return &sum
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}

// ZeroTotals returns empty counters for every known service.
func ZeroTotals() map[Service]ServiceCounters {
	totals := make(map[Service]ServiceCounters, len(AllServices))
	for _, s := range AllServices {
		totals[s] = ServiceCounters{}
	}
	return totals
}

// DateLayout is the ISO calendar date format used for daily logs.
const DateLayout = "2006-01-02"

// MonthLayout is the year-month format used for monthly aggregation.
const MonthLayout = "2006-01"

// DailyUsageLog holds every entry recorded for one calendar date.
type DailyUsageLog struct {
	LastUpdated time.Time                   `json:"lastUpdated"`
	Totals      map[Service]ServiceCounters `json:"totals"`
	Date        string                      `json:"date"`
	Entries     []UsageEntry                `json:"entries"`
}

// NewDailyUsageLog returns an empty log for date.
func NewDailyUsageLog(date string) *DailyUsageLog {
	return &DailyUsageLog{
		Date:    date,
		Entries: []UsageEntry{},
		Totals:  make(map[Service]ServiceCounters),
	}
}

// Append adds an entry and updates the matching service totals.
func (l *DailyUsageLog) Append(e UsageEntry, now time.Time) {
	if l.Totals == nil {
		l.Totals = make(map[Service]ServiceCounters)
	}
	l.Entries = append(l.Entries, e)
	counters := l.Totals[e.Service]
	counters.Add(e)
	l.Totals[e.Service] = counters
	l.LastUpdated = now
}
