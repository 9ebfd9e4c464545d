// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fd1az/albion-market-router/business/arbitrage/app"
)

const rule = "================================================================================"

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

var _ app.Reporter = (*ConsoleReporter)(nil)

// NewConsoleReporter creates a new ConsoleReporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to w.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Albion Market Router Started")
	fmt.Fprintln(r.out, "============================")
	return nil
}

// Report prints a scan result as a table.
func (r *ConsoleReporter) Report(result *app.Result) {
	meta := result.Meta

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "SCAN %s  (%s, %s)\n", result.ID, meta.Mode, meta.ScanMode)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Generated:      %s\n", meta.GeneratedAt.Format(time.RFC3339))
	if !meta.FreshestQuoteAt.IsZero() {
		fmt.Fprintf(r.out, "Freshest quote: %s\n", meta.FreshestQuoteAt.Format(time.RFC3339))
	}
	fmt.Fprintf(r.out, "Items:          %d (%d quotes, %d cities, quality %d)\n",
		meta.ItemCount, meta.QuoteCount, meta.LocationCount, meta.Quality)
	fmt.Fprintf(r.out, "Catalog:        %.2f%% coverage, source %s\n", meta.CatalogCoverage, meta.ScanSource)
	if b := meta.Batches; b != nil {
		fmt.Fprintf(r.out, "Batches:        %d/%d completed", b.Completed, b.Batches)
		if b.TimedOut {
			fmt.Fprint(r.out, " (budget expired)")
		}
		fmt.Fprintln(r.out)
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")

	if len(result.Opportunities) == 0 {
		fmt.Fprintln(r.out, "No profitable routes.")
		fmt.Fprintln(r.out, rule)
		return
	}

	fmt.Fprintf(r.out, "%-24s %-28s %10s %10s %10s %8s %6s\n",
		"ITEM", "ROUTE", "BUY", "SELL", "NET", "PROFIT", "AGE")
	for _, row := range ToRows(result.Opportunities) {
		fmt.Fprintf(r.out, "%-24s %-28s %10s %10s %10s %7s%% %6s\n",
			truncate(row.Name, 24),
			truncate(row.Route(), 28),
			row.BuyPrice.StringFixed(0),
			row.SellPrice.StringFixed(0),
			row.NetProfit.StringFixed(0),
			row.ProfitPct.StringFixed(2),
			row.Age(),
		)
	}
	fmt.Fprintln(r.out, rule)
}

// ReportError prints a failed scan.
func (r *ConsoleReporter) ReportError(err error) {
	fmt.Fprintf(r.out, "[%s] scan failed: %v\n", time.Now().Format("15:04:05"), err)
}

// UpdateConnectionStatus outputs connection status changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	status := "disconnected"
	if connected {
		status = fmt.Sprintf("connected (%s)", latency.Round(time.Millisecond))
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Albion Market Router Stopped")
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
