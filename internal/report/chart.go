package report

import (
	"github.com/guptarohit/asciigraph"
)

// RenderDailyChart plots one value per day.
func RenderDailyChart(series []float64, width, height int, caption string) string {
	if len(series) == 0 {
		return MutedStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
