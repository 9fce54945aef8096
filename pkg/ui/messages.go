// Package ui provides the Bubble Tea dashboard for the executor.
package ui

import (
	"time"

	"github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
)

// Message types for TUI updates

// TickReportMsg is sent after every loop tick.
type TickReportMsg struct {
	Report   domain.TickReport
	Snapshot domain.Snapshot
}

// ConnectionStatusMsg is sent when an upstream changes state.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	// Reconnecting is set while a failed upstream is being retried.
	Reconnecting bool
	Detail       string
	Latency      time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg drives animations.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // "config", "rpc", "strategy", "relay"
	Status  string // "connecting", "connected", "failed"
	Message string
}
