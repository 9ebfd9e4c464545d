package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds scan statistics for display.
type Stats struct {
	Scans         int64
	Opportunities int64
	Errors        int64
	Items         int
	Quotes        int
	// CatalogCoverage is a percentage.
	CatalogCoverage float64
	ScanSource      string
	FreshestQuote   string
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
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	errorsDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	if s.stats.Errors > 0 {
		errorsDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	}

	freshest := s.stats.FreshestQuote
	if freshest == "" {
		freshest = "-"
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Scans: %s  │  Opportunities: %s  │  Errors: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Scans)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Opportunities)),
			errorsDisplay,
		) +
		fmt.Sprintf("Items: %s  │  Quotes: %s  │  Catalog: %s  │  Freshest: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Items)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Quotes)),
			valueStyle.Render(fmt.Sprintf("%.1f%%", s.stats.CatalogCoverage)),
			valueStyle.Render(freshest),
		) +
		style.Render("Source: "+s.stats.ScanSource)
}
