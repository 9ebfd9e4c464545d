// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	catalogDomain "github.com/fd1az/albion-market-router/business/catalog/domain"
	marketApp "github.com/fd1az/albion-market-router/business/market/app"
	marketDomain "github.com/fd1az/albion-market-router/business/market/domain"
)

// BatchQuoteFetcher fetches a large item universe in bounded batches.
type BatchQuoteFetcher interface {
	FetchBatched(ctx context.Context, req marketApp.BatchRequest) ([]marketDomain.PriceQuote, marketApp.BatchStats, error)
}

// ItemCatalog supplies display metadata and the auto-scan universe.
type ItemCatalog interface {
	Lookup(id string) catalogDomain.Item
	Coverage(ids []string) float64
	KnownItemCount() int
	AutoScanItems(limit int) []string
	ScanSource() string
}

// QueryScanner runs one scan. Implemented by Scanner.
type QueryScanner interface {
	Scan(ctx context.Context, q Query) (*Result, error)
}

// Reporter defines the interface for presenting scan results.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report presents the result of a completed scan.
	Report(result *Result)

	// ReportError presents a scan that failed.
	ReportError(err error)

	// UpdateConnectionStatus updates the upstream status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
