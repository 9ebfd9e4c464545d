package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrResponseTooLarge is returned when a body exceeds the configured limit.
var ErrResponseTooLarge = errors.New("httpclient: response body exceeds limit")

// Request is the interface for building and executing HTTP requests.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)

	SetHeader(key, value string) Request
	// SetQueryParam appends a query parameter; values are URL-encoded.
	SetQueryParam(key, value string) Request
	// SetResult decodes a successful JSON body into result.
	SetResult(result any) Request
}

// Response wraps http.Response with additional helpers.
type Response struct {
	*http.Response
	body      []byte
	decodeErr error
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the response body as string.
func (r *Response) String() string {
	return string(r.body)
}

// IsError returns true if the status code is outside the 2xx range.
func (r *Response) IsError() bool {
	return r.StatusCode < 200 || r.StatusCode >= 300
}

// DecodeErr returns the JSON decode error for SetResult, if any.
func (r *Response) DecodeErr() error {
	return r.decodeErr
}

// requestBuilder implements Request.
type requestBuilder struct {
	c            *InstrumentedClient
	headers      map[string]string
	query        url.Values
	result       any
	errorHandler ResponseErrorHandler
	labels       []*Label
}

// Get executes a GET request.
func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, path)
}

// SetHeader sets a single header.
func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

// SetQueryParam appends a query parameter.
func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Add(key, value)
	return r
}

// SetResult sets the result target for JSON unmarshaling.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

// BuildURL joins base and path and appends the encoded query.
func BuildURL(base, path string, query url.Values) string {
	full := path
	if base != "" && !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		full = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(query) == 0 {
		return full
	}
	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + query.Encode()
}

// execute performs the HTTP request with instrumentation.
func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	fullURL := BuildURL(r.c.baseURL, path, r.query)

	ctx, span := r.c.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", fullURL),
			attribute.String("provider", r.c.providerName),
		),
	)
	defer span.End()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.c.client.Do(req)
	if err != nil {
		r.recordError(ctx, span, err, start)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.c.maxResponseBytes+1))
	if err != nil {
		r.recordError(ctx, span, err, start)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > r.c.maxResponseBytes {
		r.recordError(ctx, span, ErrResponseTooLarge, start)
		return nil, ErrResponseTooLarge
	}

	response := &Response{Response: resp, body: body}

	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.Int("http.response_size", len(body)),
	)

	if r.result != nil && !response.IsError() {
		if err := json.Unmarshal(body, r.result); err != nil {
			span.RecordError(err)
			response.decodeErr = err
		}
	}

	if r.errorHandler != nil {
		if handlerErr := r.errorHandler(resp.StatusCode, body); handlerErr != nil {
			r.recordMetrics(ctx, false, start)
			span.SetStatus(codes.Error, handlerErr.Error())
			return response, handlerErr
		}
	}

	r.recordMetrics(ctx, !response.IsError(), start)

	return response, nil
}

// recordError logs network errors to the span.
func (r *requestBuilder) recordError(ctx context.Context, span trace.Span, err error, start time.Time) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	span.SetStatus(codes.Error, err.Error())
	r.recordMetrics(ctx, false, start)
}

// recordMetrics increments the request counter and records latency.
func (r *requestBuilder) recordMetrics(ctx context.Context, success bool, start time.Time) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", r.c.providerName),
		attribute.Bool("success", success),
	}

	for _, label := range r.labels {
		attrs = append(attrs, attribute.String(label.Key, label.Value))
	}

	opt := metric.WithAttributes(attrs...)
	r.c.requestCounter.Add(ctx, 1, opt)
	r.c.requestDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, opt)
}
