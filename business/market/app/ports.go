// Package app contains application services and port definitions for the market data context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/albion-market-router/business/market/domain"
)

// PriceRequest identifies one upstream price query.
type PriceRequest struct {
	Items     []string
	Locations []domain.Location
	Quality   int
}

// PriceSource is the upstream market data API.
type PriceSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// FetchPrices issues a single request for every item and location in req.
	// Non-2xx answers return a *StatusError, bodies that are not a JSON array
	// return an error wrapping domain.ErrMalformedPayload.
	FetchPrices(ctx context.Context, req PriceRequest) ([]domain.RawPriceRow, error)
}

// PriceCache stores normalized quotes by cache key until they expire.
// Implementations must be safe for concurrent use.
type PriceCache interface {
	Get(ctx context.Context, key string) ([]domain.PriceQuote, bool)
	Set(ctx context.Context, key string, quotes []domain.PriceQuote, ttl time.Duration)
}

// QuoteFetcher returns normalized quotes for one request.
type QuoteFetcher interface {
	Fetch(ctx context.Context, req PriceRequest) ([]domain.PriceQuote, error)
}
