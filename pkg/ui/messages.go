// Package ui provides the Bubble Tea dashboard for the arbitrage scanner.
package ui

import (
	"time"

	"github.com/fd1az/albion-market-router/pkg/ui/components"
)

// Message types for TUI updates

// ScanResultMsg is sent when a scan completes.
type ScanResultMsg struct {
	ID        string
	Rows      []components.OpportunityRow
	Items     int
	Quotes    int
	Coverage  float64
	Source    string
	Freshest  time.Time
	Generated time.Time
}

// ConnectionStatusMsg is sent when upstream status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when a scan fails.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}
