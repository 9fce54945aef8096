package components

import (
	"fmt"
	"strings"
)

// TickRow is one tick in the activity feed.
type TickRow struct {
	Tick     uint64
	Time     string
	Outcome  string
	Reason   string
	Offchain string
	Onchain  string
	// OnchainOK is false when the simulation call itself failed.
	OnchainOK bool
	Duration  string
}

// TicksComponent renders the latest ticks with both estimates side by side.
type TicksComponent struct {
	rows    []TickRow
	maxRows int
	symbol  string
}

// NewTicksComponent creates a feed of maxRows ticks.
func NewTicksComponent(maxRows int, symbol string) *TicksComponent {
	return &TicksComponent{
		rows:    make([]TickRow, 0, maxRows),
		maxRows: maxRows,
		symbol:  symbol,
	}
}

// Add appends a tick, dropping the oldest.
func (c *TicksComponent) Add(row TickRow) {
	c.rows = append(c.rows, row)
	if len(c.rows) > c.maxRows {
		c.rows = c.rows[len(c.rows)-c.maxRows:]
	}
}

// Clear removes all rows.
func (c *TicksComponent) Clear() {
	c.rows = c.rows[:0]
}

// View renders the component.
func (c *TicksComponent) View() string {
	headerStyle, dimStyle := HeaderStyle, MutedStyle
	okStyle, skipStyle, failStyle := PositiveValue, SubtleStyle, NegativeValue

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("ESTIMATES (%s)", c.symbol)))
	sb.WriteString("\n\n")

	if len(c.rows) == 0 {
		sb.WriteString(dimStyle.Render("  Waiting for the first tick..."))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("  %-6s  %-8s  %14s  %14s  %s\n", "Tick", "Time", "Offchain", "Onchain", "Outcome"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 62)) + "\n")

	for _, r := range c.rows {
		style := skipStyle
		switch r.Outcome {
		case "executed":
			style = okStyle
		case "failed":
			style = failStyle
		}

		onchain := r.Onchain
		if !r.OnchainOK {
			onchain = "n/a"
		}
		outcome := r.Outcome
		if r.Reason != "" {
			outcome += " · " + r.Reason
		}
		sb.WriteString(fmt.Sprintf("  %-6d  %-8s  %14s  %14s  %s\n",
			r.Tick, r.Time, r.Offchain, onchain, style.Render(outcome)))
	}
	return sb.String()
}
