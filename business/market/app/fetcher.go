package app

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/fd1az/albion-market-router/business/market/domain"
	"github.com/fd1az/albion-market-router/internal/apperror"
	"github.com/fd1az/albion-market-router/internal/clock"
	"github.com/fd1az/albion-market-router/internal/logger"
)

const (
	tracerName = "github.com/fd1az/albion-market-router/business/market/app"
	meterName  = "github.com/fd1az/albion-market-router/business/market/app"
)

// FetcherConfig holds cache and timeout settings for the Fetcher.
type FetcherConfig struct {
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	Retry          RetryPolicy
}

// DefaultFetcherConfig returns a 30s cache, 12s per-attempt timeout and
// the default retry policy.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		CacheTTL:       30 * time.Second,
		RequestTimeout: 12 * time.Second,
		Retry:          DefaultRetryPolicy(),
	}
}

// fetcherMetrics holds OTEL metric instruments.
type fetcherMetrics struct {
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	attempts      metric.Int64Counter
	failures      metric.Int64Counter
	fetchDuration metric.Float64Histogram
}

// Fetcher acquires normalized quotes through a short-lived cache, coalescing
// concurrent misses for the same key into one upstream call.
type Fetcher struct {
	source  PriceSource
	cache   PriceCache
	clock   clock.Clock
	cfg     FetcherConfig
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *fetcherMetrics
	group   singleflight.Group
}

// NewFetcher creates a Fetcher.
func NewFetcher(source PriceSource, cache PriceCache, clk clock.Clock, cfg FetcherConfig, log logger.LoggerInterface) (*Fetcher, error) {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultFetcherConfig().CacheTTL
	}

	f := &Fetcher{
		source: source,
		cache:  cache,
		clock:  clk,
		cfg:    cfg,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := f.initMetrics(); err != nil {
		return nil, err
	}
	return f, nil
}

// CacheKey encodes a request independently of item and location order.
func CacheKey(req PriceRequest) string {
	items := uniqueSorted(req.Items)

	locs := make([]string, 0, len(req.Locations))
	for _, l := range req.Locations {
		locs = append(locs, string(l))
	}
	locs = uniqueSorted(locs)

	return strings.Join(items, ",") + "::" + strings.Join(locs, ",") + "::q" + strconv.Itoa(req.Quality)
}

// Fetch returns quotes for req from the cache or the upstream. The returned
// slice is owned by the caller.
func (f *Fetcher) Fetch(ctx context.Context, req PriceRequest) ([]domain.PriceQuote, error) {
	req = canonicalRequest(req)
	if len(req.Items) == 0 || len(req.Locations) == 0 {
		return nil, nil
	}

	key := CacheKey(req)

	ctx, span := f.tracer.Start(ctx, "market.fetch",
		trace.WithAttributes(
			attribute.Int("items", len(req.Items)),
			attribute.Int("locations", len(req.Locations)),
			attribute.Int("quality", req.Quality),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		f.metrics.fetchDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	}()

	if quotes, ok := f.cache.Get(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		f.metrics.cacheHits.Add(ctx, 1)
		return slices.Clone(quotes), nil
	}
	f.metrics.cacheMisses.Add(ctx, 1)

	ch := f.group.DoChan(key, func() (any, error) {
		// The shared call serves every waiter, so no single caller's
		// cancellation ends it. It is bounded by the retry budget instead.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.sharedBudget())
		defer cancel()

		// A coalesced caller may have filled the entry while we queued.
		if quotes, ok := f.cache.Get(shared, key); ok {
			return quotes, nil
		}

		quotes, err := f.fetchWithRetry(shared, req)
		if err != nil {
			return nil, err
		}
		f.cache.Set(shared, key, quotes, f.cfg.CacheTTL)
		return quotes, nil
	})

	select {
	case <-ctx.Done():
		err := apperror.New(apperror.CodeServiceTimeout,
			apperror.WithMessage("Stopped waiting for upstream prices"),
			apperror.WithCause(ctx.Err()),
			apperror.WithContext("price fetch abandoned"),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "abandoned")
		return nil, err

	case res := <-ch:
		span.SetAttributes(attribute.Bool("shared", res.Shared))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
			return nil, res.Err
		}
		quotes := res.Val.([]domain.PriceQuote)
		span.SetAttributes(attribute.Int("quotes", len(quotes)))
		return slices.Clone(quotes), nil
	}
}

// fetchWithRetry calls the source until it succeeds or the retry policy
// gives up.
func (f *Fetcher) fetchWithRetry(ctx context.Context, req PriceRequest) ([]domain.PriceQuote, error) {
	policy := f.cfg.Retry
	maxAttempts := policy.attempts()

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		attempt++

		if attempt > 1 {
			if err := sleep(ctx, policy.delay(attempt)); err != nil {
				break
			}
		}

		rows, err := f.attempt(ctx, req, attempt)
		if err == nil {
			return domain.Normalize(rows, f.clock.Now()), nil
		}

		lastErr = err
		f.metrics.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("malformed", IsMalformed(err)),
			attribute.Int("status", statusOf(err)),
		))
		f.logger.Debug(ctx, "price fetch attempt failed",
			"source", f.source.Name(),
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)

		if !policy.retryable(err) || ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return nil, fetchFailure(lastErr, attempt, len(req.Items))
}

// attempt performs one bounded upstream call.
func (f *Fetcher) attempt(ctx context.Context, req PriceRequest, n int) ([]domain.RawPriceRow, error) {
	f.metrics.attempts.Add(ctx, 1)

	if f.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, f.cfg.RequestTimeout, ErrAttemptTimeout)
		defer cancel()
	}

	ctx, span := f.tracer.Start(ctx, "market.fetch.attempt",
		trace.WithAttributes(attribute.Int("attempt", n)),
	)
	defer span.End()

	rows, err := f.source.FetchPrices(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			span.SetAttributes(attribute.Bool("timeout", true))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

// sharedBudget is the longest a coalesced upstream call may run: every
// attempt at its full timeout plus the backoff between them.
func (f *Fetcher) sharedBudget() time.Duration {
	per := f.cfg.RequestTimeout
	if per <= 0 {
		per = DefaultFetcherConfig().RequestTimeout
	}

	policy := f.cfg.Retry
	budget := time.Duration(policy.attempts()) * per
	for n := 2; n <= policy.attempts(); n++ {
		budget += policy.delay(n)
	}
	return budget
}

func (f *Fetcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &fetcherMetrics{}

	f.metrics.cacheHits, err = meter.Int64Counter(
		"market_price_cache_hits_total",
		metric.WithDescription("Price requests served from cache"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	f.metrics.cacheMisses, err = meter.Int64Counter(
		"market_price_cache_misses_total",
		metric.WithDescription("Price requests that needed the upstream"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	f.metrics.attempts, err = meter.Int64Counter(
		"market_upstream_attempts_total",
		metric.WithDescription("Upstream price requests issued, including retries"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	f.metrics.failures, err = meter.Int64Counter(
		"market_upstream_failures_total",
		metric.WithDescription("Failed upstream price requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	f.metrics.fetchDuration, err = meter.Float64Histogram(
		"market_fetch_duration_ms",
		metric.WithDescription("Fetch latency including cache lookups and retries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// canonicalRequest trims and de-duplicates items and locations, keeping
// first-seen order for the upstream call.
func canonicalRequest(req PriceRequest) PriceRequest {
	items := make([]string, 0, len(req.Items))
	seenItems := make(map[string]bool, len(req.Items))
	for _, id := range req.Items {
		id = strings.TrimSpace(id)
		if id == "" || seenItems[id] {
			continue
		}
		seenItems[id] = true
		items = append(items, id)
	}

	locs := make([]domain.Location, 0, len(req.Locations))
	seenLocs := make(map[domain.Location]bool, len(req.Locations))
	for _, l := range req.Locations {
		if seenLocs[l] {
			continue
		}
		seenLocs[l] = true
		locs = append(locs, l)
	}

	return PriceRequest{Items: items, Locations: locs, Quality: req.Quality}
}

func uniqueSorted(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
