// Package components provides render-only helpers used to compose terminal
// output.
package components

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/fleetmetrics/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// chartHeight is the fixed height for all trend charts.
const chartHeight = 8

// TrendChart renders a single daily series with a label header and a
// latest/min/max summary line. Returns a muted note if data is empty.
func TrendChart(label string, data []float64, width int, suffix string) string {
	if len(data) == 0 {
		return styles.MutedText.Render(label + ": no data")
	}

	// Reserve space for Y-axis labels (number + " ┤" ≈ 9 chars).
	plotWidth := max(width-9, 10)

	chart := asciigraph.Plot(data,
		asciigraph.Height(chartHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Precision(1),
		asciigraph.SeriesColors(asciigraph.DodgerBlue),
		asciigraph.LabelColor(asciigraph.Default),
	)

	lo, hi := minMax(data)
	summary := styles.MutedText.Render(
		fmt.Sprintf("  last: %s  min: %s  max: %s",
			FormatValue(data[len(data)-1], suffix),
			FormatValue(lo, suffix),
			FormatValue(hi, suffix),
		),
	)

	return lipgloss.JoinVertical(lipgloss.Left, styles.Label.Render(label), chart, summary)
}

// TrendDualChart overlays two daily series, e.g. average and peak, with a
// legend and a summary line per series.
func TrendDualChart(label string, series1, series2 []float64, legend1, legend2 string, width int, suffix string) string {
	if len(series2) == 0 {
		return TrendChart(label, series1, width, suffix)
	}
	if len(series1) == 0 {
		series1 = make([]float64, len(series2))
	}

	plotWidth := max(width-9, 10)

	chart := asciigraph.PlotMany(
		[][]float64{series1, series2},
		asciigraph.Height(chartHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Precision(1),
		asciigraph.SeriesColors(asciigraph.DodgerBlue, asciigraph.LightCoral),
		asciigraph.SeriesLegends(legend1, legend2),
		asciigraph.LabelColor(asciigraph.Default),
	)

	var parts []string
	for _, s := range []struct {
		legend string
		data   []float64
	}{{legend1, series1}, {legend2, series2}} {
		lo, hi := minMax(s.data)
		parts = append(parts, fmt.Sprintf("  %s  last: %s  min: %s  max: %s",
			s.legend, FormatValue(s.data[len(s.data)-1], suffix), FormatValue(lo, suffix), FormatValue(hi, suffix)))
	}
	summary := styles.MutedText.Render(strings.Join(parts, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left, styles.Label.Render(label), chart, summary)
}

// minMax returns the minimum and maximum values from a slice.
func minMax(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi := data[0], data[0]
	for _, v := range data[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// FormatValue renders a float with an optional suffix, abbreviating large
// values.
func FormatValue(v float64, suffix string) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.1fG%s", v/1_000_000_000, suffix)
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM%s", v/1_000_000, suffix)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK%s", v/1_000, suffix)
	default:
		return fmt.Sprintf("%.1f%s", v, suffix)
	}
}
