package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/albion-market-router/pkg/ui/components"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	opportunities *components.OpportunitiesComponent
	stats         *components.StatsComponent
	status        *components.StatusComponent
	keys          KeyMap
	help          help.Model

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	ready        bool
	quitting     bool
	paused       bool // Freeze the table while reading it
	width        int
	height       int
	lastUpdate   time.Time
	lastScanTime time.Time
	lastScanID   string
	errors       []ErrorEntry // Persistent error panel (last 3)
	logs         []string     // Recent log messages
}

// New creates a new TUI model.
func New() Model {
	return Model{
		opportunities: components.NewOpportunitiesComponent(15),
		stats:         components.NewStatsComponent(),
		status:        components.NewStatusComponent(),
		keys:          DefaultKeyMap(),
		help:          help.New(),
		phase:         PhaseWelcome,
		welcomeStart:  time.Now(),
		logs:          make([]string, 0, 5),
		errors:        make([]ErrorEntry, 0, 3),
	}
}

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

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to the dashboard
		if m.phase == PhaseWelcome {
			m.enterDashboard()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Refresh):
			if OnRefresh != nil {
				go OnRefresh()
			}
		case key.Matches(msg, m.keys.Errors):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			return m, m.opportunities.Update(msg)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.opportunities.SetHeight(msg.Height - 16)
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.enterDashboard()
		}
		return m, tickCmd()

	case ScanResultMsg:
		m.lastScanTime = time.Now()
		if m.paused {
			return m, nil
		}
		m.applyResult(msg)

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		m.lastUpdate = time.Now()

	case ErrorMsg:
		stats := m.stats.Stats()
		stats.Scans++
		stats.Errors++
		m.stats.Update(stats)

		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)
	}

	return m, nil
}

// enterDashboard leaves the welcome screen and asks the host to start scanning.
func (m *Model) enterDashboard() {
	m.phase = PhaseDashboard
	// Trigger callback directly (don't use Send() from within Update)
	if OnStartModules != nil {
		go OnStartModules()
	}
}

func (m *Model) applyResult(msg ScanResultMsg) {
	m.opportunities.SetRows(msg.Rows)

	stats := m.stats.Stats()
	stats.Scans++
	stats.Opportunities = int64(len(msg.Rows))
	stats.Items = msg.Items
	stats.Quotes = msg.Quotes
	stats.CatalogCoverage = msg.Coverage
	stats.ScanSource = msg.Source
	if !msg.Freshest.IsZero() {
		stats.FreshestQuote = msg.Freshest.Local().Format("15:04:05")
	}
	m.stats.Update(stats)

	m.lastScanID = msg.ID
	m.lastUpdate = time.Now()
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
	if m.phase == PhaseWelcome {
		return m.renderWelcomeScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Albion Market Router "))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	// Before the first WindowSizeMsg the terminal width is unknown.
	width := 110
	if m.width > 0 {
		width = max(m.width-4, 40)
	}
	b.WriteString(BoxStyle.Width(width).Render(m.opportunities.View()))
	b.WriteString("\n")
	b.WriteString(BoxStyle.Width(width).Render(m.stats.View()))
	b.WriteString("\n\n")

	// Persistent error panel (show last 3 errors)
	if len(m.errors) > 0 {
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(ErrorValue.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(PausedStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	goldStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)

	// Animated dots based on time
	elapsed := time.Since(m.welcomeStart)
	dots := strings.Repeat(".", int(elapsed.Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	sb.WriteString(titleStyle.Render("        A L B I O N   M A R K E T   R O U T E R"))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("     royal city flips and transports, fee adjusted"))
	sb.WriteString("\n\n\n")
	sb.WriteString(goldStyle.Render("              buy low in one city, sell high in another"))
	sb.WriteString("\n\n\n")
	sb.WriteString(PositiveValue.Render(fmt.Sprintf("                  Scanning markets%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedValue.Render("            Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	// Scanning indicator (animated when recently scanned)
	if time.Since(m.lastScanTime) < 500*time.Millisecond {
		spinners := []string{"⟳", "◐", "◓", "◑", "◒"}
		idx := int(time.Now().UnixMilli()/100) % len(spinners)
		parts = append(parts, PositiveValue.Bold(true).Render(spinners[idx]+" Scanning"))
	}

	parts = append(parts, m.status.View())

	if m.lastScanID != "" {
		parts = append(parts, MutedValue.Render("Scan "+shortID(m.lastScanID)))
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and scanning
// should start. Set by main.go.
var OnStartModules func()

// OnRefresh is called when the user asks for an immediate rescan.
var OnRefresh func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
