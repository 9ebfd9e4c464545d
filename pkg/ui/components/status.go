package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents an upstream's status.
type ConnectionStatus struct {
	Name       string
	Connected  bool
	Latency    time.Duration
	LastUpdate time.Time
}

// StatusComponent renders upstream status.
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

// View renders the status component.
func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "○ waiting for first scan"
	}

	var result string
	for i, conn := range s.connections {
		status := "● " + conn.Name
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
		if !conn.Connected {
			status = "○ " + conn.Name + " (unavailable)"
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
		}

		line := style.Render(status)
		if conn.Connected && conn.Latency > 0 {
			line += fmt.Sprintf(" (%dms)", conn.Latency.Milliseconds())
		}
		if i > 0 {
			result += "  │  "
		}
		result += line
	}

	return result
}
