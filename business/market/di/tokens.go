// Package di contains dependency injection tokens for the market data context.
package di

import (
	"github.com/fd1az/albion-market-router/business/market/app"
	"github.com/fd1az/albion-market-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	QuoteFetcher = di.NewToken[*app.Fetcher]("market.QuoteFetcher")
	BatchFetcher = di.NewToken[*app.BatchFetcher]("market.BatchFetcher")
)

// Private dependency tokens - internal to market module
var (
	PriceSource = di.NewToken[app.PriceSource]("market:priceSource")
	PriceCache  = di.NewToken[app.PriceCache]("market:priceCache")
)

// Helper functions for type-safe access
func GetQuoteFetcher(c di.ServiceRegistry) *app.Fetcher {
	return di.GetToken(c, QuoteFetcher)
}

func GetBatchFetcher(c di.ServiceRegistry) *app.BatchFetcher {
	return di.GetToken(c, BatchFetcher)
}

func GetPriceSource(c di.ServiceRegistry) app.PriceSource {
	return di.GetToken(c, PriceSource)
}

func GetPriceCache(c di.ServiceRegistry) app.PriceCache {
	return di.GetToken(c, PriceCache)
}
