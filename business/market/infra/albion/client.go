// Package albion adapts the Albion Online Data Project prices API.
package albion

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/albion-market-router/business/market/app"
	"github.com/fd1az/albion-market-router/business/market/domain"
	"github.com/fd1az/albion-market-router/internal/apperror"
	"github.com/fd1az/albion-market-router/internal/circuitbreaker"
	"github.com/fd1az/albion-market-router/internal/httpclient"
	"github.com/fd1az/albion-market-router/internal/logger"
	"github.com/fd1az/albion-market-router/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/albion-market-router/business/market/infra/albion"

	// DefaultBaseURL is the west (Americas) server prices endpoint.
	DefaultBaseURL = "https://west.albion-online-data.com/api/v2/stats/prices"

	sourceName = "albion-data"

	// maxErrorBody bounds how much of an error body is kept in StatusError.
	maxErrorBody = 256
)

// ClientConfig holds configuration for the prices client.
type ClientConfig struct {
	BaseURL            string
	Timeout            time.Duration
	RateLimitPerMinute int
	// RateLimitPerFiveMinutes is the longer public quota window.
	RateLimitPerFiveMinutes int
	BreakerFailures         uint32
	BreakerOpenTimeout      time.Duration
}

// DefaultClientConfig returns the public API limits: 180 requests a minute
// and 300 per five minutes.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:                 DefaultBaseURL,
		Timeout:                 12 * time.Second,
		RateLimitPerMinute:      180,
		RateLimitPerFiveMinutes: 300,
		BreakerFailures:         5,
		BreakerOpenTimeout:      30 * time.Second,
	}
}

// Client implements app.PriceSource over HTTP.
type Client struct {
	client  httpclient.Client
	config  ClientConfig
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[[]domain.RawPriceRow]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

var _ app.PriceSource = (*Client)(nil)

// NewClient creates a prices client. Extra options are passed to the
// underlying instrumented HTTP client.
func NewClient(cfg ClientConfig, log logger.LoggerInterface, opts ...httpclient.ClientOption) (*Client, error) {
	defaults := DefaultClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = defaults.BreakerFailures
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = defaults.BreakerOpenTimeout
	}

	tracer := otel.Tracer(tracerName)

	clientOpts := append([]httpclient.ClientOption{
		httpclient.WithProviderName(sourceName),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithTracer(tracer),
		httpclient.WithHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": "albion-market-router",
		}),
	}, opts...)

	client, err := httpclient.NewInstrumentedClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	c := &Client{
		client: client,
		config: cfg,
		limiter: ratelimit.New(
			ratelimit.Window{Requests: cfg.RateLimitPerMinute, Per: time.Minute},
			ratelimit.Window{Requests: cfg.RateLimitPerFiveMinutes, Per: 5 * time.Minute},
		),
		logger: log,
		tracer: tracer,
	}

	cbCfg := circuitbreaker.DefaultConfig(sourceName)
	cbCfg.ConsecutiveFailures = cfg.BreakerFailures
	cbCfg.Timeout = cfg.BreakerOpenTimeout
	cbCfg.IsSuccessful = func(err error) bool {
		// A caller giving up says nothing about the upstream.
		var aborted *callerAbortedError
		return err == nil || errors.As(err, &aborted)
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.breaker = circuitbreaker.New[[]domain.RawPriceRow](cbCfg)

	return c, nil
}

// Name identifies the source.
func (c *Client) Name() string {
	return sourceName
}

// FetchPrices issues one GET for every item, location and the quality tier.
func (c *Client) FetchPrices(ctx context.Context, req app.PriceRequest) ([]domain.RawPriceRow, error) {
	ctx, span := c.tracer.Start(ctx, "albion.fetch_prices",
		trace.WithAttributes(
			attribute.Int("items", len(req.Items)),
			attribute.Int("locations", len(req.Locations)),
			attribute.Int("quality", req.Quality),
		),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext("waiting for upstream rate limit"))
	}

	rows, err := c.breaker.Execute(func() ([]domain.RawPriceRow, error) {
		rows, err := c.get(ctx, req)
		if err != nil && callerAborted(ctx) {
			return nil, &callerAbortedError{err: err}
		}
		return rows, err
	})
	var aborted *callerAbortedError
	if errors.As(err, &aborted) {
		err = aborted.err
	}
	if err != nil {
		if circuitbreaker.IsRejection(err) {
			err = apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err),
				apperror.WithContext(sourceName))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

func (c *Client) get(ctx context.Context, req app.PriceRequest) ([]domain.RawPriceRow, error) {
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "prices")),
		httpclient.WithResponseErrorHandler(albionErrorHandler),
	).
		SetQueryParam("locations", joinLocations(req.Locations)).
		SetQueryParam("qualities", strconv.Itoa(req.Quality)).
		Get(ctx, ItemsPath(req.Items))
	if err != nil {
		return nil, err
	}

	rows, err := domain.DecodeRows(resp.Body())
	if err != nil {
		return nil, err
	}

	c.logger.Debug(ctx, "fetched prices",
		"items", len(req.Items),
		"rows", len(rows))

	return rows, nil
}

// Check reports the source unhealthy while its breaker rejects calls.
func (c *Client) Check(_ context.Context) error {
	if c.breaker.IsOpen() {
		return apperror.New(apperror.CodeCircuitOpen, apperror.WithContext(sourceName))
	}
	return nil
}

// callerAbortedError marks a failure caused by the caller's context ending,
// which the breaker does not count.
type callerAbortedError struct {
	err error
}

func (e *callerAbortedError) Error() string { return e.err.Error() }

func (e *callerAbortedError) Unwrap() error { return e.err }

// callerAborted reports whether ctx ended for a reason other than the
// per-attempt upstream timeout, such as cancellation or a scan budget.
func callerAborted(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	return !errors.Is(context.Cause(ctx), app.ErrAttemptTimeout)
}

// ItemsPath returns the path segment for a comma-joined item list.
func ItemsPath(items []string) string {
	escaped := make([]string, len(items))
	for i, id := range items {
		escaped[i] = url.PathEscape(id)
	}
	return "/" + strings.Join(escaped, ",")
}

func joinLocations(locs []domain.Location) string {
	names := make([]string, len(locs))
	for i, l := range locs {
		names[i] = string(l)
	}
	return strings.Join(names, ",")
}

// albionErrorHandler turns any non-2xx answer into a StatusError.
func albionErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &app.StatusError{StatusCode: statusCode, Body: text}
}
