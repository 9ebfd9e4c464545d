// Package arbitrage implements the arbitrage bounded context: route scoring,
// selection and the scan loop.
package arbitrage

import (
	"context"

	"github.com/fd1az/albion-market-router/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/albion-market-router/business/arbitrage/di"
	"github.com/fd1az/albion-market-router/business/arbitrage/domain"
	"github.com/fd1az/albion-market-router/business/arbitrage/infra"
	catalogDI "github.com/fd1az/albion-market-router/business/catalog/di"
	marketDI "github.com/fd1az/albion-market-router/business/market/di"
	"github.com/fd1az/albion-market-router/internal/clock"
	"github.com/fd1az/albion-market-router/internal/config"
	"github.com/fd1az/albion-market-router/internal/di"
	"github.com/fd1az/albion-market-router/internal/logger"
	"github.com/fd1az/albion-market-router/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Scanner
	di.RegisterToken(c, arbitrageDI.Scanner, func(sr di.ServiceRegistry) *app.Scanner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		scanner, err := app.NewScanner(
			marketDI.GetQuoteFetcher(sr),
			marketDI.GetBatchFetcher(sr),
			catalogDI.GetCatalog(sr),
			sr.Get("clock").(clock.Clock),
			ScannerConfig(cfg),
			log,
		)
		if err != nil {
			panic("failed to create scanner: " + err.Error())
		}
		return scanner
	})

	// Register Reporter (console or TUI based on config)
	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Scan.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter()
	})

	// Register Detector
	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewDetector(
			arbitrageDI.GetScanner(sr),
			arbitrageDI.GetReporter(sr),
			app.DetectorConfig{
				Query:      QueryFromConfig(cfg),
				Interval:   cfg.Scan.WatchInterval,
				SourceName: marketDI.GetPriceSource(sr).Name(),
			},
			log,
		)
	})

	return nil
}

// Startup resolves the scanner so wiring errors surface before the first scan.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	_ = arbitrageDI.GetScanner(mono.Services())

	mono.Logger().Info(ctx, "arbitrage module started",
		"mode", cfg.Scan.Mode,
		"auto", cfg.Scan.Auto,
		"items", len(cfg.Scan.Items),
		"watch_interval", cfg.Scan.WatchInterval,
	)
	return nil
}

// ScannerConfig maps the scan and fee settings onto scanner defaults.
func ScannerConfig(cfg *config.Config) app.ScannerConfig {
	return app.ScannerConfig{
		Fees:              feesFromConfig(cfg.Fees),
		Quality:           cfg.Scan.Quality,
		MaxDataAgeMinutes: cfg.Scan.MaxDataAgeMinutes,
		BatchSize:         cfg.Scan.BatchSize,
		BatchBudget:       cfg.Scan.BatchBudget,
		BatchConcurrency:  cfg.Scan.BatchConcurrency,
		MaxAutoScanItems:  cfg.Scan.MaxAutoScanItems,
	}
}

// QueryFromConfig builds the default query from the scan settings.
func QueryFromConfig(cfg *config.Config) app.Query {
	scanMode := app.ScanManual
	if cfg.Scan.Auto {
		scanMode = app.ScanAuto
	}
	return app.Query{
		Items:             cfg.Scan.Items,
		Locations:         cfg.Scan.Locations,
		Quality:           cfg.Scan.Quality,
		Mode:              domain.ParseMode(cfg.Scan.Mode),
		MinProfitPercent:  cfg.Scan.MinProfitPercent,
		MaxDataAgeMinutes: cfg.Scan.MaxDataAgeMinutes,
		ScanMode:          scanMode,
	}
}

func feesFromConfig(f config.FeesConfig) domain.FeeConfig {
	return domain.FeeConfig{
		BuyOrderFeeRate:  f.BuyOrderFeeRate,
		SellOrderFeeRate: f.SellOrderFeeRate,
		TaxRate:          f.TaxRate,
	}
}
