// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
)

// TradeRow is one executed trade, already formatted for display.
type TradeRow struct {
	Index     uint64
	Time      string
	Block     uint64
	Profit    string
	GasCost   string
	NetProfit string
	Withdrawn bool
	TxHash    string
}

// TradesComponent renders the recent trades table.
type TradesComponent struct {
	rows    []TradeRow
	maxRows int
	table   table.Model
}

// NewTradesComponent creates a trades table keeping maxRows entries.
func NewTradesComponent(maxRows int) *TradesComponent {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 5},
			{Title: "Time", Width: 8},
			{Title: "Block", Width: 10},
			{Title: "Profit", Width: 12},
			{Title: "Gas", Width: 12},
			{Title: "Net", Width: 12},
			{Title: "W", Width: 1},
			{Title: "Tx", Width: 14},
		}),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)

	return &TradesComponent{
		rows:    make([]TradeRow, 0, maxRows),
		maxRows: maxRows,
		table:   t,
	}
}

// Add prepends a trade.
func (c *TradesComponent) Add(row TradeRow) {
	c.rows = append([]TradeRow{row}, c.rows...)
	if len(c.rows) > c.maxRows {
		c.rows = c.rows[:c.maxRows]
	}
	c.sync()
}

// Len returns the number of rows kept.
func (c *TradesComponent) Len() int {
	return len(c.rows)
}

// Clear removes all rows.
func (c *TradesComponent) Clear() {
	c.rows = c.rows[:0]
	c.sync()
}

// ScrollUp moves the cursor up.
func (c *TradesComponent) ScrollUp() {
	c.table.MoveUp(1)
}

// ScrollDown moves the cursor down.
func (c *TradesComponent) ScrollDown() {
	c.table.MoveDown(1)
}

func (c *TradesComponent) sync() {
	rows := make([]table.Row, len(c.rows))
	for i, r := range c.rows {
		w := ""
		if r.Withdrawn {
			w = "✓"
		}
		rows[i] = table.Row{
			fmt.Sprintf("%d", r.Index),
			r.Time,
			fmt.Sprintf("%d", r.Block),
			r.Profit,
			r.GasCost,
			r.NetProfit,
			w,
			shortHash(r.TxHash),
		}
	}
	c.table.SetRows(rows)
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "…" + h[len(h)-4:]
}

// View renders the component. Table cells stay plain so column widths
// hold; the latest net result is colored below the table.
func (c *TradesComponent) View() string {
	header := HeaderStyle.Render(fmt.Sprintf("TRADES (last %d)", c.maxRows))
	if len(c.rows) == 0 {
		return header + "\n\n" + MutedStyle.Render("  No trades executed yet...")
	}
	last := c.rows[0]
	return header + "\n" + c.table.View() + "\n" +
		MutedStyle.Render(fmt.Sprintf("  last #%d net ", last.Index)) + Signed(last.NetProfit)
}
