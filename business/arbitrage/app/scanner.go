package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/albion-market-router/business/arbitrage/domain"
	marketApp "github.com/fd1az/albion-market-router/business/market/app"
	marketDomain "github.com/fd1az/albion-market-router/business/market/domain"
	"github.com/fd1az/albion-market-router/internal/clock"
	"github.com/fd1az/albion-market-router/internal/logger"
)

const (
	tracerName = "github.com/fd1az/albion-market-router/business/arbitrage/app"
	meterName  = "github.com/fd1az/albion-market-router/business/arbitrage/app"

	// ScanSourceManual labels results scanned from a caller-supplied list.
	ScanSourceManual = "manual"
)

// ScannerConfig holds the defaults applied to queries that leave a field unset.
type ScannerConfig struct {
	Fees              domain.FeeConfig
	Quality           int
	MaxDataAgeMinutes int
	BatchSize         int
	BatchBudget       time.Duration
	BatchConcurrency  int
	MaxAutoScanItems  int
}

// DefaultScannerConfig returns the standard market fees and batching limits.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		Fees:              domain.FeeConfig{BuyOrderFeeRate: 0.025, SellOrderFeeRate: 0.025, TaxRate: 0.04},
		Quality:           1,
		MaxDataAgeMinutes: 180,
		BatchSize:         20,
		BatchBudget:       20 * time.Second,
		BatchConcurrency:  4,
		MaxAutoScanItems:  100,
	}
}

// Scanner runs the scan pipeline: validate, acquire quotes, generate and
// select routes, filter, decorate.
type Scanner struct {
	fetcher marketApp.QuoteFetcher
	batch   BatchQuoteFetcher
	catalog ItemCatalog
	clock   clock.Clock
	cfg     ScannerConfig
	logger  logger.LoggerInterface
	tracer  trace.Tracer

	scans         metric.Int64Counter
	opportunities metric.Int64Histogram
}

var _ QueryScanner = (*Scanner)(nil)

// NewScanner creates a Scanner.
func NewScanner(
	fetcher marketApp.QuoteFetcher,
	batch BatchQuoteFetcher,
	catalog ItemCatalog,
	clk clock.Clock,
	cfg ScannerConfig,
	log logger.LoggerInterface,
) (*Scanner, error) {
	if clk == nil {
		clk = clock.New()
	}

	meter := otel.Meter(meterName)

	scans, err := meter.Int64Counter(
		"arbitrage_scans_total",
		metric.WithDescription("Completed and failed scans"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, err
	}

	opportunities, err := meter.Int64Histogram(
		"arbitrage_scan_opportunities",
		metric.WithDescription("Opportunities returned per scan"),
		metric.WithUnit("{opportunity}"),
	)
	if err != nil {
		return nil, err
	}

	return &Scanner{
		fetcher:       fetcher,
		batch:         batch,
		catalog:       catalog,
		clock:         clk,
		cfg:           cfg,
		logger:        log,
		tracer:        otel.Tracer(tracerName),
		scans:         scans,
		opportunities: opportunities,
	}, nil
}

// Prepare applies configured defaults and normalizes q.
func (s *Scanner) Prepare(q Query) Query {
	if q.Quality == 0 {
		q.Quality = s.cfg.Quality
	}
	if q.MaxDataAgeMinutes == 0 {
		q.MaxDataAgeMinutes = s.cfg.MaxDataAgeMinutes
	}
	return q.Normalize()
}

// Scan validates q and returns the filtered opportunities. Validation
// failures happen before any fetch.
func (s *Scanner) Scan(ctx context.Context, q Query) (*Result, error) {
	q = s.Prepare(q)
	if err := q.Validate(); err != nil {
		s.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "invalid")))
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "arbitrage.scan",
		trace.WithAttributes(
			attribute.String("scan_mode", string(q.ScanMode)),
			attribute.String("mode", q.Mode.String()),
			attribute.Int("quality", q.Quality),
		),
	)
	defer span.End()

	fees := s.cfg.Fees
	if q.Fees != nil {
		fees = *q.Fees
	}

	items, source, quotes, stats, err := s.acquire(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		return nil, err
	}

	now := s.clock.Now()
	selected := domain.Select(domain.GroupByItem(quotes, fees, now), q.Mode)

	listings := make([]Listing, 0, len(selected))
	for _, opp := range selected {
		if opp.ProfitPercent < q.MinProfitPercent || opp.DataAgeMinutes > q.MaxDataAgeMinutes {
			continue
		}
		item := s.catalog.Lookup(opp.ItemID)
		listings = append(listings, Listing{
			Opportunity: opp,
			ItemName:    item.Name,
			Category:    item.Category,
		})
	}

	result := &Result{
		ID:            uuid.NewString(),
		Opportunities: listings,
		Meta: Meta{
			GeneratedAt:     now,
			FreshestQuoteAt: freshest(quotes, now),
			ItemCount:       len(items),
			Mode:            q.Mode,
			ScanMode:        q.ScanMode,
			ScanSource:      source,
			CatalogCoverage: s.catalog.Coverage(items),
			KnownItemCount:  s.catalog.KnownItemCount(),
			Quality:         q.Quality,
			LocationCount:   len(q.Locations),
			QuoteCount:      len(quotes),
			Batches:         stats,
		},
	}

	span.SetAttributes(
		attribute.Int("items", len(items)),
		attribute.Int("quotes", len(quotes)),
		attribute.Int("opportunities", len(listings)),
	)
	s.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	s.opportunities.Record(ctx, int64(len(listings)))

	s.logger.Info(ctx, "scan completed",
		"id", result.ID,
		"scan_mode", q.ScanMode,
		"mode", q.Mode,
		"items", len(items),
		"quotes", len(quotes),
		"opportunities", len(listings),
	)
	return result, nil
}

// acquire fetches quotes for the query's item list, or for the curated
// universe in auto mode.
func (s *Scanner) acquire(ctx context.Context, q Query) ([]string, string, []marketDomain.PriceQuote, *marketApp.BatchStats, error) {
	locs := q.locations()

	if q.ScanMode != ScanAuto {
		quotes, err := s.fetcher.Fetch(ctx, marketApp.PriceRequest{
			Items:     q.Items,
			Locations: locs,
			Quality:   q.Quality,
		})
		return q.Items, ScanSourceManual, quotes, nil, err
	}

	items := s.catalog.AutoScanItems(s.cfg.MaxAutoScanItems)

	req := marketApp.BatchRequest{
		Items:       items,
		Locations:   locs,
		Quality:     q.Quality,
		BatchSize:   s.cfg.BatchSize,
		Budget:      s.cfg.BatchBudget,
		Concurrency: s.cfg.BatchConcurrency,
	}
	if q.BatchSize > 0 {
		req.BatchSize = q.BatchSize
	}
	if q.BatchBudget > 0 {
		req.Budget = q.BatchBudget
	}

	quotes, stats, err := s.batch.FetchBatched(ctx, req)
	if err != nil {
		return items, s.catalog.ScanSource(), nil, nil, err
	}
	if stats.Failed > 0 {
		s.logger.Warn(ctx, "auto scan incomplete",
			"batches", stats.Batches,
			"failed", stats.Failed,
			"timed_out", stats.TimedOut,
		)
	}
	return items, s.catalog.ScanSource(), quotes, &stats, nil
}

// freshest returns the newest observation among quotes, or fallback.
func freshest(quotes []marketDomain.PriceQuote, fallback time.Time) time.Time {
	var latest time.Time
	for _, q := range quotes {
		if ts := q.Latest(); ts.After(latest) {
			latest = ts
		}
	}
	if latest.IsZero() {
		return fallback
	}
	return latest
}
