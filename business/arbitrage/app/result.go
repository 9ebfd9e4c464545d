package app

import (
	"fmt"
	"time"

	"github.com/fd1az/albion-market-router/business/arbitrage/domain"
	marketApp "github.com/fd1az/albion-market-router/business/market/app"
)

// Listing is an Opportunity decorated with catalog metadata.
type Listing struct {
	domain.Opportunity
	ItemName string `json:"itemName"`
	Category string `json:"category"`
}

// Meta describes how a Result was produced.
type Meta struct {
	GeneratedAt     time.Time   `json:"generatedAt"`
	FreshestQuoteAt time.Time   `json:"lastUpdated"`
	ItemCount       int         `json:"itemCount"`
	Mode            domain.Mode `json:"mode"`
	ScanMode        ScanMode    `json:"scanMode"`
	ScanSource      string      `json:"scanSource"`
	CatalogCoverage float64     `json:"catalogCoveragePct"`
	KnownItemCount  int         `json:"knownItemCount"`
	Quality         int         `json:"quality"`
	LocationCount   int         `json:"cityCount"`
	QuoteCount      int         `json:"quoteCount"`
	// Batches is set for auto scans only.
	Batches *marketApp.BatchStats `json:"batches,omitempty"`
}

// Result is the outcome of one scan.
type Result struct {
	ID            string    `json:"id"`
	Opportunities []Listing `json:"opportunities"`
	Meta          Meta      `json:"meta"`
}

// CacheControl returns the Cache-Control value for a scan result cached
// upstream of the engine for ttl.
func CacheControl(ttl time.Duration) string {
	secs := int(ttl.Seconds())
	return fmt.Sprintf("max-age=0, s-maxage=%d, stale-while-revalidate=%d", secs, secs*2)
}
