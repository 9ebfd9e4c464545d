package infra

import (
	"context"
	"time"

	"github.com/fd1az/albion-market-router/business/arbitrage/app"
	"github.com/fd1az/albion-market-router/pkg/ui"
)

// TUIReporter implements Reporter for the Bubble Tea dashboard.
type TUIReporter struct {
	send func(msg any)
}

var _ app.Reporter = (*TUIReporter)(nil)

// NewTUIReporter creates a TUIReporter that sends to the running program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: func(msg any) { ui.Send(msg) }}
}

// Start is a no-op; the program is started by main.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// Report sends a scan result to the dashboard.
func (r *TUIReporter) Report(result *app.Result) {
	r.send(ToScanResultMsg(result))
}

// ReportError sends a failed scan to the error panel.
func (r *TUIReporter) ReportError(err error) {
	r.send(ui.ErrorMsg{Error: err})
}

// UpdateConnectionStatus sends connection status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{
		Name:      name,
		Connected: connected,
		Latency:   latency,
	})
}

// Stop is a no-op; the program exits on user quit.
func (r *TUIReporter) Stop() error {
	return nil
}

// ToScanResultMsg converts a Result into the dashboard message.
func ToScanResultMsg(result *app.Result) ui.ScanResultMsg {
	return ui.ScanResultMsg{
		ID:        result.ID,
		Rows:      ToRows(result.Opportunities),
		Items:     result.Meta.ItemCount,
		Quotes:    result.Meta.QuoteCount,
		Coverage:  result.Meta.CatalogCoverage,
		Source:    result.Meta.ScanSource,
		Freshest:  result.Meta.FreshestQuoteAt,
		Generated: result.Meta.GeneratedAt,
	}
}
