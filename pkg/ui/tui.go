package ui

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/internal/asset"
	"github.com/fd1az/arbitrage-executor/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var stepOrder = []string{"config", "rpc", "strategy", "relay"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Options describe what the dashboard is watching.
type Options struct {
	Network   string
	Symbol    string
	Decimals  uint8
	Threshold *big.Int
	Policy    string
	Submitter string
	// SkipWelcome starts on the startup screen.
	SkipWelcome bool
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	opts Options
	keys KeyMap
	help help.Model

	// Components
	trades *components.TradesComponent
	ticks  *components.TicksComponent
	chart  *components.ProfitChart
	stats  *components.StatsComponent
	status *components.StatusComponent

	// Phase state
	phase        Phase
	welcomeStart time.Time
	startupSteps map[string]*StartupStep
	startupTime  time.Time

	// State
	ready    bool
	quitting bool
	paused   bool
	width    int
	height   int
	snapshot domain.Snapshot
	lastTick time.Time
	errors   []ErrorEntry // last 3
	logs     []string     // last 5

	tickMillis float64
	tickCount  int
}

// New creates a new TUI model.
func New(opts Options) Model {
	now := time.Now()
	if opts.Symbol == "" {
		opts.Symbol = "TOKEN"
	}
	m := Model{
		opts:         opts,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		trades:       components.NewTradesComponent(50),
		ticks:        components.NewTicksComponent(8, opts.Symbol),
		chart:        components.NewProfitChart(60, opts.Symbol),
		stats:        components.NewStatsComponent(),
		status:       components.NewStatusComponent(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		startupSteps: map[string]*StartupStep{
			"config":   {Name: "Loading configuration", Status: "pending"},
			"rpc":      {Name: "Connecting to RPC endpoints", Status: "pending"},
			"strategy": {Name: "Binding strategy contract", Status: "pending"},
			"relay":    {Name: "Preparing submitter", Status: "pending"},
		},
		startupTime: now,
		errors:      make([]ErrorEntry, 0, 3),
		logs:        make([]string, 0, 5),
	}
	if opts.SkipWelcome {
		m.phase = PhaseStartup
	}
	return m
}

// Phase returns the current phase.
func (m Model) Phase() Phase { return m.phase }

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) enterStartup() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Trigger callback directly (don't use Send() from within Update)
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			m.enterStartup()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.ticks.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.trades.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.trades.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.enterStartup()
		}
		return m, tickCmd()

	case TickReportMsg:
		m.applyReport(msg)

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:         msg.Name,
			Connected:    msg.Connected,
			Reconnecting: msg.Reconnecting,
			Detail:       msg.Detail,
			Latency:      msg.Latency,
			LastUpdate:   time.Now(),
		})

	case ErrorMsg:
		m.pushError(msg.Error.Error())
		m.logs = addLog(m.logs, "error", msg.Error.Error())

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if msg.Status == "failed" && msg.Message != "" {
			m.pushError(msg.Message)
		}
		if m.phase == PhaseStartup && m.startupDone() {
			m.phase = PhaseDashboard
		}
	}

	return m, nil
}

func (m *Model) applyReport(msg TickReportMsg) {
	r, snap := msg.Report, msg.Snapshot
	m.snapshot = snap
	m.lastTick = time.Now()
	if m.phase != PhaseDashboard {
		m.phase = PhaseDashboard
	}

	m.tickMillis += float64(r.Duration.Milliseconds())
	m.tickCount++

	m.stats.Update(components.Stats{
		Ticks:          snap.Ticks,
		Skipped:        snap.Skipped,
		Executed:       snap.Executed,
		Failed:         snap.Failed,
		Trades:         snap.TradeCount,
		Withdrawals:    snap.Withdrawals,
		SinceWithdraw:  m.format(snap.CumulativeNetProfit),
		TotalNet:       m.format(snap.TotalNetProfit),
		Threshold:      m.format(m.opts.Threshold),
		AvgTickLatency: m.tickMillis / float64(m.tickCount),
	})

	if t := r.Trade; t != nil {
		hash := ""
		if len(t.TxHashes) > 0 {
			hash = t.TxHashes[0].Hex()
		}
		m.trades.Add(components.TradeRow{
			Index:     t.Index,
			Time:      t.Timestamp.Format("15:04:05"),
			Block:     t.BlockNumber,
			Profit:    m.format(t.Profit),
			GasCost:   m.format(t.GasCost),
			NetProfit: m.format(t.NetProfit),
			Withdrawn: t.Withdrawn,
			TxHash:    hash,
		})
		m.chart.Push(m.float(snap.TotalNetProfit))
	}

	if r.Err != nil {
		m.pushError(fmt.Sprintf("tick #%d %s: %v", r.Tick, r.Reason, r.Err))
	}

	if m.paused {
		return
	}
	m.ticks.Add(components.TickRow{
		Tick:      r.Tick,
		Time:      r.StartedAt.Format("15:04:05"),
		Outcome:   string(r.Outcome),
		Reason:    r.Reason,
		Offchain:  m.format(r.Offchain.EstimatedProfit),
		Onchain:   m.format(r.Onchain.EstimatedProfit),
		OnchainOK: r.Onchain.OK,
		Duration:  r.Duration.Round(time.Millisecond).String(),
	})
}

func (m Model) format(v *big.Int) string {
	if v == nil {
		return "-"
	}
	return asset.FormatUnits(v, m.opts.Decimals)
}

func (m Model) float(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	return asset.UnitsToDecimal(v, m.opts.Decimals).InexactFloat64()
}

func (m *Model) pushError(msg string) {
	m.errors = append(m.errors, ErrorEntry{Message: msg, Timestamp: time.Now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

func (m Model) startupDone() bool {
	for _, step := range m.startupSteps {
		if step.Status != "connected" && step.Status != "done" {
			return false
		}
	}
	return true
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	title := TitleStyle.Render(" Arbitrage Executor ")
	b.WriteString(title)
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	// Left: chart and estimates. Right: trades and connections.
	leftCol := m.chart.View() + "\n\n" + m.ticks.View()
	rightCol := m.trades.View() + "\n\n" + components.HeaderStyle.Render("UPSTREAMS") + "\n" + m.status.View()

	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := m.width - 4
		if width < 40 {
			width = 80
		}
		b.WriteString(BoxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(rightCol))
	}
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		mutedError := components.SubtleStyle

		b.WriteString(ErrorHeaderStyle.Render("ERRORS"))
		b.WriteString(mutedError.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(mutedError.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(m.logs) > 0 {
		for _, l := range m.logs {
			b.WriteString(components.MutedStyle.Render("  " + l))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(FrozenStyle.Render("⏸ FROZEN"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle, goldStyle := LogoStyle, BannerStyle
	mutedStyle, greenStyle := components.MutedStyle, components.PositiveValue

	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
     █████╗ ██████╗ ██████╗
    ██╔══██╗██╔══██╗██╔══██╗
    ███████║██████╔╝██████╔╝
    ██╔══██║██╔══██╗██╔══██╗
    ██║  ██║██║  ██║██████╔╝
    ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("         E X E C U T O R"))
	sb.WriteString("\n\n\n")

	network := m.opts.Network
	if network == "" {
		network = "unknown network"
	}
	sb.WriteString(goldStyle.Render(fmt.Sprintf("      %s · %s · %s", network, m.opts.Submitter, m.opts.Policy)))
	sb.WriteString("\n\n\n")

	sb.WriteString(greenStyle.Render(fmt.Sprintf("         Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("   Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	titleStyle := LogoStyle.MarginBottom(1)
	headerStyle := components.ValueStyle

	mutedStyle := components.MutedStyle
	successStyle := components.StatusConnected.UnsetBold()
	connectingStyle := components.StatusReconnecting.UnsetBold()
	failedStyle := ErrorStyle

	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  Arbitrage Executor"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range stepOrder {
		step, ok := m.startupSteps[k]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon = "✓"
			statusText = "Ready"
			style = successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon = spinners[idx]
			statusText = "Connecting..."
			style = connectingStyle
		case "failed":
			icon = "✗"
			statusText = "Failed"
			style = failedStyle
		default:
			icon = "○"
			statusText = "Pending"
			style = mutedStyle
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			mutedStyle.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("  Waiting for the first tick..."))
	sb.WriteString("\n")

	for _, e := range m.errors {
		sb.WriteString(failedStyle.Render("  • " + e.Message))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	if m.snapshot.Running {
		spinners := []string{"⟳", "◐", "◓", "◑", "◒"}
		idx := int(time.Now().UnixMilli()/100) % len(spinners)
		runningStyle := components.StatusConnected
		parts = append(parts, runningStyle.Render(spinners[idx]+" Tick running"))
	}

	if m.opts.Network != "" {
		parts = append(parts, m.opts.Network)
	}
	parts = append(parts, fmt.Sprintf("Submitter: %s", m.opts.Submitter))
	parts = append(parts, fmt.Sprintf("Policy: %s", m.opts.Policy))

	tradeStyle := components.PositiveValue
	parts = append(parts, tradeStyle.Render(fmt.Sprintf("Trades: %d", m.snapshot.TradeCount)))

	if !m.lastTick.IsZero() {
		ago := time.Since(m.lastTick).Round(time.Second)
		indicator := ""
		if ago < 2*time.Second {
			indicator = "▪"
		}
		parts = append(parts, components.MutedStyle.Render(fmt.Sprintf("Last tick: %s ago %s", ago, indicator)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// This is set by main.go to signal when to begin loading modules.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	Program = tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
