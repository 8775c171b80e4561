// Package report renders usage summaries for the terminal.
package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/clipforge/internal/models"
)

// Color definitions.
var (
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(0, 1)

// LabelStyle styles row labels.
var LabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary)

// ValueStyle styles numbers.
var ValueStyle = lipgloss.NewStyle().
	Foreground(TextPrimary)

// MutedStyle styles secondary information.
var MutedStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

var (
	healthOKStyle       = lipgloss.NewStyle().Foreground(Success)
	healthWarningStyle  = lipgloss.NewStyle().Foreground(Warning).Bold(true)
	healthCriticalStyle = lipgloss.NewStyle().Foreground(Error).Bold(true)
)

// HealthStyle returns the style for a health classification.
func HealthStyle(h models.Health) lipgloss.Style {
	switch h {
	case models.HealthCritical:
		return healthCriticalStyle
	case models.HealthWarning:
		return healthWarningStyle
	default:
		return healthOKStyle
	}
}
