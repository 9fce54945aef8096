package components

import (
	"fmt"
	"math"
	"strings"
)

var bars = []rune("▁▂▃▄▅▆▇█")

// ProfitChart plots cumulative net profit, one column per trade.
type ProfitChart struct {
	points []float64
	width  int
	symbol string
}

// NewProfitChart creates a chart showing up to width points.
func NewProfitChart(width int, symbol string) *ProfitChart {
	return &ProfitChart{width: width, symbol: symbol}
}

// Push appends a point.
func (c *ProfitChart) Push(v float64) {
	c.points = append(c.points, v)
	if len(c.points) > c.width {
		c.points = c.points[len(c.points)-c.width:]
	}
}

// Points returns the plotted values.
func (c *ProfitChart) Points() []float64 {
	return c.points
}

// Sparkline renders the points as block characters scaled between the
// smallest and largest value.
func (c *ProfitChart) Sparkline() string {
	if len(c.points) == 0 {
		return ""
	}
	lo, hi := c.points[0], c.points[0]
	for _, p := range c.points {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}

	out := make([]rune, len(c.points))
	for i, p := range c.points {
		idx := 0
		if hi > lo {
			idx = int((p - lo) / (hi - lo) * float64(len(bars)-1))
		}
		out[i] = bars[idx]
	}
	return string(out)
}

// View renders the chart with its range.
func (c *ProfitChart) View() string {
	headerStyle, dimStyle := HeaderStyle, MutedStyle
	upStyle, downStyle := PositiveValue, NegativeValue

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("CUMULATIVE NET PROFIT"))
	sb.WriteString("\n\n")

	if len(c.points) == 0 {
		sb.WriteString(dimStyle.Render("  No trades yet"))
		return sb.String()
	}

	last := c.points[len(c.points)-1]
	style := upStyle
	if last < 0 {
		style = downStyle
	}
	sb.WriteString("  " + style.Render(c.Sparkline()))
	sb.WriteString("\n")

	lo, hi := c.points[0], c.points[0]
	for _, p := range c.points {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	sb.WriteString(dimStyle.Render(fmt.Sprintf("  min %.6f  max %.6f  now ", lo, hi)))
	sb.WriteString(style.Render(fmt.Sprintf("%.6f %s", last, c.symbol)))
	return sb.String()
}
