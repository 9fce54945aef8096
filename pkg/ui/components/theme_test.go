package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestSignedStyle(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0.0003", "positive"},
		{"-0.0007", "negative"},
		{"0", "muted"},
		{"0.000", "muted"},
		{"", "muted"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got := SignedStyle(tt.amount).GetForeground()
			want := MutedStyle.GetForeground()
			switch tt.want {
			case "positive":
				want = PositiveValue.GetForeground()
			case "negative":
				want = NegativeValue.GetForeground()
			}
			if got != want {
				t.Errorf("SignedStyle(%q) foreground = %v, want %s", tt.amount, got, tt.want)
			}
		})
	}
}

func TestConnectionLabel(t *testing.T) {
	tests := []struct {
		name  string
		conn  ConnectionStatus
		label string
		color lipgloss.TerminalColor
	}{
		{"healthy", ConnectionStatus{Connected: true}, "● Connected", StatusConnected.GetForeground()},
		{"probing", ConnectionStatus{Reconnecting: true}, "◐ Reconnecting", StatusReconnecting.GetForeground()},
		{"tripped", ConnectionStatus{}, "○ Disconnected", StatusDisconnected.GetForeground()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, style := connectionLabel(tt.conn)
			if label != tt.label {
				t.Errorf("label = %q, want %q", label, tt.label)
			}
			if style.GetForeground() != tt.color {
				t.Errorf("foreground = %v, want %v", style.GetForeground(), tt.color)
			}
		})
	}
}

func TestTradesComponent_ViewShowsLatestNet(t *testing.T) {
	c := NewTradesComponent(5)
	c.Add(TradeRow{Index: 1, NetProfit: "0.0002"})
	c.Add(TradeRow{Index: 2, NetProfit: "-0.0007"})

	view := c.View()
	if !strings.Contains(view, "last #2 net") || !strings.Contains(view, "-0.0007") {
		t.Errorf("view missing latest net:\n%s", view)
	}
}

func TestStatusComponent_ViewMarksReconnecting(t *testing.T) {
	s := NewStatusComponent()
	s.Update(ConnectionStatus{Name: "https://rpc-a", Connected: true})
	s.Update(ConnectionStatus{Name: "https://rpc-b", Reconnecting: true, Detail: "probing"})

	view := s.View()
	if !strings.Contains(view, "https://rpc-b: ◐ Reconnecting") {
		t.Errorf("view = %q", view)
	}
}
