package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/arbitrage-executor/pkg/ui/components"
)

// Screen-level styles. Colors come from the components palette so panels
// and screens agree.
var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(components.ColorBorder).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(components.ColorText).
			Background(components.ColorAccent).
			Padding(0, 2)

	LogoStyle = lipgloss.NewStyle().Bold(true).Foreground(components.ColorAccent)

	BannerStyle = lipgloss.NewStyle().Bold(true).Foreground(components.ColorPending)

	ErrorStyle       = lipgloss.NewStyle().Foreground(components.ColorLoss)
	ErrorHeaderStyle = ErrorStyle.Bold(true)
	FrozenStyle      = lipgloss.NewStyle().Bold(true).Foreground(components.ColorPending)

	HelpStyle = lipgloss.NewStyle().
			Foreground(components.ColorMuted).
			Padding(0, 1)
)
