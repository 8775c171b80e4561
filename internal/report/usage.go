package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/clipforge/internal/models"
)

const (
	nameWidth    = 12
	percentWidth = 6
	minBarWidth  = 10
	// Room taken by everything on a usage row except the bar.
	rowReserve = nameWidth + percentWidth + 40
)

// truncateName fits a label into width cells.
func truncateName(name string, width int) string {
	if ansi.StringWidth(name) <= width {
		return name
	}
	return ansi.Truncate(name, width, "…")
}

func newBar(width int) progress.Model {
	return progress.New(
		progress.WithScaledGradient("#51cf66", "#ff6b6b"),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
}

// RenderUsage renders one quota row per service. Bottleneck services are marked with *.
func RenderUsage(yearMonth string, reports []models.ServiceUsageReport, width int) string {
	barWidth := max(width-rowReserve, minBarWidth)
	bar := newBar(barWidth)

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Usage " + yearMonth))
	b.WriteString("\n")

	for _, r := range reports {
		name := string(r.Service)
		if r.IsBottleneck {
			name += "*"
		}
		label := LabelStyle.Width(nameWidth + 1).Render(truncateName(name, nameWidth))

		if !r.HasLimit {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
				label,
				MutedStyle.Width(barWidth).Render("no limit"),
				" ",
				ValueStyle.Render(fmt.Sprintf("%.2f spent", r.Used)),
			))
			b.WriteString("\n")
			continue
		}

		fill := min(r.Percent/100, 1)
		percentStr := HealthStyle(r.Health).
			Width(percentWidth).
			Align(lipgloss.Right).
			Render(fmt.Sprintf("%.0f%%", r.Percent))

		details := fmt.Sprintf("%.2f/%.2f  %s  → %.0f%% %s",
			r.Used, r.Quota, r.Health, r.ProjectedPercent, r.ProjectedHealth)

		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
			label,
			bar.ViewAs(fill),
			" ",
			percentStr,
			"  ",
			MutedStyle.Render(details),
		))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderTotals renders a per-service counter table.
func RenderTotals(title string, totals map[models.Service]models.ServiceCounters) string {
	header := fmt.Sprintf("%-*s %10s %10s %12s %12s", nameWidth, "service", "requests", "cost", "tokens", "characters")

	lines := []string{SubTitleStyle.Render(title), MutedStyle.Render(header)}
	for _, service := range models.AllServices {
		c := totals[service]
		row := fmt.Sprintf("%-*s %10d %10.2f %12s %12s",
			nameWidth, truncateName(string(service), nameWidth),
			c.Requests, c.Cost, optionalCount(c.Tokens), optionalCount(c.Characters))
		if c.Requests == 0 {
			lines = append(lines, MutedStyle.Render(row))
			continue
		}
		lines = append(lines, ValueStyle.Render(row))
	}
	return strings.Join(lines, "\n")
}

func optionalCount(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

// RenderCapacity renders the bottleneck capacity estimate as a card.
func RenderCapacity(c models.Capacity) string {
	rows := []string{
		SubTitleStyle.Render("Remaining capacity: " + string(c.Service)),
		LabelStyle.Render("units left   ") + ValueStyle.Render(fmt.Sprintf("%.2f", c.UnitsRemaining)),
		LabelStyle.Render("items left   ") + ValueStyle.Render(fmt.Sprintf("%d", c.EstimatedItemsRemaining)),
		LabelStyle.Render("resets in    ") + ValueStyle.Render(fmt.Sprintf("%d days", c.DaysUntilReset)),
	}
	return CardStyle.Render(strings.Join(rows, "\n"))
}

// RenderStatus renders a single health classification.
func RenderStatus(service models.Service, usage float64, h models.Health) string {
	return fmt.Sprintf("%s %s %s",
		LabelStyle.Render(string(service)),
		ValueStyle.Render(fmt.Sprintf("%.2f", usage)),
		HealthStyle(h).Render(string(h)))
}
