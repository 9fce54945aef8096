// Package components provides reusable TUI components.
package components

import "fmt"

// Stats holds loop counters for display. Amounts are pre-formatted.
type Stats struct {
	Ticks          uint64
	Skipped        uint64
	Executed       uint64
	Failed         uint64
	Trades         uint64
	Withdrawals    uint64
	SinceWithdraw  string
	TotalNet       string
	Threshold      string
	AvgTickLatency float64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// Stats returns the current statistics.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	valueStyle := ValueStyle
	errorStyle := NegativeValue.Bold(true)

	hitRate := float64(0)
	if s.stats.Ticks > 0 {
		hitRate = float64(s.stats.Executed) / float64(s.stats.Ticks) * 100
	}

	failedDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Failed))
	if s.stats.Failed > 0 {
		failedDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Failed))
	}

	return MutedStyle.Render("STATS") + "\n" +
		fmt.Sprintf("Ticks: %s  │  Skipped: %s  │  Executed: %s (%.1f%%)  │  Failed: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Ticks)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Skipped)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Executed)),
			hitRate,
			failedDisplay,
		) +
		fmt.Sprintf("Since withdraw: %s / %s  │  Session net: %s  │  Withdrawals: %s  │  Avg tick: %s",
			SignedStyle(s.stats.SinceWithdraw).Bold(true).Render(s.stats.SinceWithdraw),
			valueStyle.Render(s.stats.Threshold),
			SignedStyle(s.stats.TotalNet).Bold(true).Render(s.stats.TotalNet),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Withdrawals)),
			valueStyle.Render(fmt.Sprintf("%.0fms", s.stats.AvgTickLatency)),
		)
}
