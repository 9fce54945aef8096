// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents one upstream: an RPC endpoint or the relay.
type ConnectionStatus struct {
	Name      string
	Connected bool
	// Reconnecting marks an upstream that failed and is being retried.
	Reconnecting bool
	Detail       string
	Latency      time.Duration
	LastUpdate   time.Time
}

// StatusComponent renders connection status.
type StatusComponent struct {
	connections []ConnectionStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{
		connections: make([]ConnectionStatus, 0),
	}
}

// Update updates a connection's status.
func (s *StatusComponent) Update(status ConnectionStatus) {
	for i, conn := range s.connections {
		if conn.Name == status.Name {
			s.connections[i] = status
			return
		}
	}
	s.connections = append(s.connections, status)
}

// Connections returns the known connections in insertion order.
func (s *StatusComponent) Connections() []ConnectionStatus {
	return s.connections
}

// View renders the status component.
func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "No connections"
	}

	var sb strings.Builder
	for _, conn := range s.connections {
		status, style := connectionLabel(conn)

		line := fmt.Sprintf("├─ %s: %s", conn.Name, style.Render(status))
		if conn.Connected && conn.Latency > 0 {
			line += fmt.Sprintf(" (%s)", conn.Latency.Round(time.Millisecond))
		}
		if conn.Detail != "" {
			line += " " + conn.Detail
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func connectionLabel(conn ConnectionStatus) (string, lipgloss.Style) {
	switch {
	case conn.Connected:
		return "● Connected", StatusConnected
	case conn.Reconnecting:
		return "◐ Reconnecting", StatusReconnecting
	default:
		return "○ Disconnected", StatusDisconnected
	}
}
