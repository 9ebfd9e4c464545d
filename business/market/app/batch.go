package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/albion-market-router/business/market/domain"
	"github.com/fd1az/albion-market-router/internal/logger"
)

// BatchRequest describes a best-effort scan over a large item universe.
type BatchRequest struct {
	Items       []string
	Locations   []domain.Location
	Quality     int
	BatchSize   int
	Budget      time.Duration
	Concurrency int
}

// BatchStats reports how a batched scan went.
type BatchStats struct {
	Batches   int `json:"batches"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	// TimedOut is true when the budget expired before every batch finished.
	TimedOut bool `json:"timedOut"`
}

// BatchFetcher runs a QuoteFetcher over fixed-size item chunks under one
// overall time budget.
type BatchFetcher struct {
	fetcher QuoteFetcher
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	batches metric.Int64Counter
	skipped metric.Int64Counter
}

// NewBatchFetcher creates a BatchFetcher.
func NewBatchFetcher(fetcher QuoteFetcher, log logger.LoggerInterface) (*BatchFetcher, error) {
	meter := otel.Meter(meterName)

	batches, err := meter.Int64Counter(
		"market_scan_batches_total",
		metric.WithDescription("Item batches dispatched by batched scans"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, err
	}

	skipped, err := meter.Int64Counter(
		"market_scan_batches_skipped_total",
		metric.WithDescription("Item batches that failed or ran out of budget"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, err
	}

	return &BatchFetcher{
		fetcher: fetcher,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
		batches: batches,
		skipped: skipped,
	}, nil
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk(items []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// FetchBatched fetches every chunk, concurrently up to req.Concurrency, and
// concatenates the quotes in chunk order. Chunks that fail or miss the
// budget contribute nothing. An error is returned only when every chunk
// failed before the budget expired.
func (b *BatchFetcher) FetchBatched(ctx context.Context, req BatchRequest) ([]domain.PriceQuote, BatchStats, error) {
	chunks := Chunk(req.Items, req.BatchSize)
	stats := BatchStats{Batches: len(chunks)}
	if len(chunks) == 0 {
		return nil, stats, nil
	}

	ctx, span := b.tracer.Start(ctx, "market.fetch_batched",
		trace.WithAttributes(
			attribute.Int("items", len(req.Items)),
			attribute.Int("batches", len(chunks)),
			attribute.Int64("budget_ms", req.Budget.Milliseconds()),
		),
	)
	defer span.End()

	if req.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Budget)
		defer cancel()
	}

	results := make([][]domain.PriceQuote, len(chunks))
	errs := make([]error, len(chunks))

	var g errgroup.Group
	if req.Concurrency > 0 {
		g.SetLimit(req.Concurrency)
	}

	for i, chunk := range chunks {
		b.batches.Add(ctx, 1)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			quotes, err := b.fetcher.Fetch(ctx, PriceRequest{
				Items:     chunk,
				Locations: req.Locations,
				Quality:   req.Quality,
			})
			results[i], errs[i] = quotes, err
			return nil
		})
	}
	_ = g.Wait()

	stats.TimedOut = ctx.Err() != nil

	var quotes []domain.PriceQuote
	var firstErr error
	for i := range chunks {
		if errs[i] != nil {
			stats.Failed++
			if firstErr == nil {
				firstErr = errs[i]
			}
			b.skipped.Add(ctx, 1)
			b.logger.Debug(ctx, "scan batch skipped", "batch", i, "items", len(chunks[i]), "error", errs[i])
			continue
		}
		stats.Completed++
		quotes = append(quotes, results[i]...)
	}

	span.SetAttributes(
		attribute.Int("completed", stats.Completed),
		attribute.Int("failed", stats.Failed),
		attribute.Bool("timed_out", stats.TimedOut),
		attribute.Int("quotes", len(quotes)),
	)

	if stats.Completed == 0 && !stats.TimedOut {
		return nil, stats, firstErr
	}
	return quotes, stats, nil
}
