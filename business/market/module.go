// Package market implements the market data bounded context: upstream price
// acquisition, caching and batching.
package market

import (
	"context"
	"time"

	"github.com/fd1az/albion-market-router/business/market/app"
	marketDI "github.com/fd1az/albion-market-router/business/market/di"
	"github.com/fd1az/albion-market-router/business/market/infra/albion"
	"github.com/fd1az/albion-market-router/business/market/infra/memcache"
	"github.com/fd1az/albion-market-router/internal/clock"
	"github.com/fd1az/albion-market-router/internal/config"
	"github.com/fd1az/albion-market-router/internal/di"
	"github.com/fd1az/albion-market-router/internal/logger"
	"github.com/fd1az/albion-market-router/internal/monolith"
)

// Module implements the market data bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register PriceSource (Albion Data Project) - private dependency
	di.RegisterToken(c, marketDI.PriceSource, func(sr di.ServiceRegistry) app.PriceSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := albion.NewClient(albion.ClientConfig{
			BaseURL:                 cfg.Albion.BaseURL,
			Timeout:                 cfg.Albion.RequestTimeout,
			RateLimitPerMinute:      cfg.Albion.RateLimitPerMinute,
			RateLimitPerFiveMinutes: cfg.Albion.RateLimitPer5Min,
			BreakerFailures:         cfg.Albion.BreakerFailures,
			BreakerOpenTimeout:      cfg.Albion.BreakerOpenTimeout,
		}, log)
		if err != nil {
			panic("failed to create albion client: " + err.Error())
		}
		return client
	})

	// Register PriceCache (in-process) - private dependency
	di.RegisterToken(c, marketDI.PriceCache, func(sr di.ServiceRegistry) app.PriceCache {
		return memcache.New(sr.Get("clock").(clock.Clock))
	})

	// Register Fetcher (public - exposed to other modules)
	di.RegisterToken(c, marketDI.QuoteFetcher, func(sr di.ServiceRegistry) *app.Fetcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		fetcherCfg := app.DefaultFetcherConfig()
		fetcherCfg.CacheTTL = cfg.Cache.TTL
		fetcherCfg.RequestTimeout = cfg.Albion.RequestTimeout
		fetcherCfg.Retry.MaxAttempts = cfg.Albion.MaxAttempts
		fetcherCfg.Retry.Backoff = cfg.Albion.RetryBackoff

		fetcher, err := app.NewFetcher(
			marketDI.GetPriceSource(sr),
			marketDI.GetPriceCache(sr),
			sr.Get("clock").(clock.Clock),
			fetcherCfg,
			log,
		)
		if err != nil {
			panic("failed to create quote fetcher: " + err.Error())
		}
		return fetcher
	})

	// Register BatchFetcher (public)
	di.RegisterToken(c, marketDI.BatchFetcher, func(sr di.ServiceRegistry) *app.BatchFetcher {
		log := sr.Get("logger").(logger.LoggerInterface)

		batch, err := app.NewBatchFetcher(marketDI.GetQuoteFetcher(sr), log)
		if err != nil {
			panic("failed to create batch fetcher: " + err.Error())
		}
		return batch
	})

	return nil
}

// Startup registers the upstream health check and starts the cache sweeper.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	source := marketDI.GetPriceSource(mono.Services())
	if hs := mono.Health(); hs != nil {
		if checker, ok := source.(interface{ Check(context.Context) error }); ok {
			hs.RegisterCheck(source.Name(), func(ctx context.Context) (bool, string) {
				if err := checker.Check(ctx); err != nil {
					return false, err.Error()
				}
				return true, "ok"
			})
		}
	}

	// Expired entries are unreachable but still hold memory until swept.
	if sweeper, ok := marketDI.GetPriceCache(mono.Services()).(interface{ Sweep() int }); ok {
		interval := max(mono.Config().Cache.TTL, time.Second)
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := sweeper.Sweep(); n > 0 {
						log.Debug(ctx, "price cache swept", "expired", n)
					}
				}
			}
		}()
	}

	log.Info(ctx, "market module started", "source", source.Name())
	return nil
}
