package infra

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/pkg/ui"
)

// TUIReporter implements Reporter for the Bubble Tea dashboard.
type TUIReporter struct {
	send func(tea.Msg)
}

// NewTUIReporter creates a TUIReporter. A nil send forwards to the running
// ui.Program.
func NewTUIReporter(send func(tea.Msg)) *TUIReporter {
	if send == nil {
		send = ui.Send
	}
	return &TUIReporter{send: send}
}

// Start tells the dashboard the loop is up.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.send(ui.LogMsg{Level: "info", Message: "loop started"})
	return nil
}

// Report forwards a tick to the dashboard.
func (r *TUIReporter) Report(report domain.TickReport, snap domain.Snapshot) {
	r.send(ui.TickReportMsg{Report: report, Snapshot: snap})
}

// Stop tells the dashboard the loop has ended.
func (r *TUIReporter) Stop() error {
	r.send(ui.LogMsg{Level: "info", Message: "loop stopped"})
	return nil
}
