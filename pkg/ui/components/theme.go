package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Dashboard palette. Green and red always mean money gained or lost.
var (
	ColorAccent  = lipgloss.Color("#06B6D4") // cyan
	ColorProfit  = lipgloss.Color("#22C55E")
	ColorLoss    = lipgloss.Color("#F43F5E")
	ColorPending = lipgloss.Color("#EAB308")
	ColorMuted   = lipgloss.Color("#64748B")
	ColorSubtle  = lipgloss.Color("#94A3B8")
	ColorBorder  = lipgloss.Color("#334155")
	ColorText    = lipgloss.Color("#F8FAFC")
)

var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	SubtleStyle = lipgloss.NewStyle().Foreground(ColorSubtle)
	ValueStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText)

	PositiveValue = lipgloss.NewStyle().Foreground(ColorProfit)
	NegativeValue = lipgloss.NewStyle().Foreground(ColorLoss)

	StatusConnected    = lipgloss.NewStyle().Bold(true).Foreground(ColorProfit)
	StatusDisconnected = lipgloss.NewStyle().Bold(true).Foreground(ColorLoss)
	StatusReconnecting = lipgloss.NewStyle().Bold(true).Foreground(ColorPending)

	TableHeaderStyle = table.DefaultStyles().Header.
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(ColorBorder).
				BorderBottom(true).
				Bold(true).
				Foreground(ColorAccent)
	TableSelectedStyle = table.DefaultStyles().Selected.
				Foreground(ColorText).
				Background(ColorBorder).
				Bold(false)
)

// SignedStyle picks the style for a formatted decimal amount.
func SignedStyle(amount string) lipgloss.Style {
	switch {
	case strings.HasPrefix(amount, "-"):
		return NegativeValue
	case strings.Trim(amount, "0.") == "":
		return MutedStyle
	default:
		return PositiveValue
	}
}

// Signed renders a formatted amount green when positive, red when negative.
func Signed(amount string) string {
	return SignedStyle(amount).Render(amount)
}
