package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fd1az/albion-market-router/business/market/domain"
	"github.com/fd1az/albion-market-router/internal/apperror"
	"github.com/fd1az/albion-market-router/internal/clock"
	"github.com/fd1az/albion-market-router/internal/logger"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any)               {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any)              {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any)  {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

// fakeSource answers from a scripted list of results, repeating the last one.
type fakeSource struct {
	mu       sync.Mutex
	calls    int
	requests []PriceRequest
	results  []fakeResult
	delay    time.Duration
}

type fakeResult struct {
	rows []domain.RawPriceRow
	err  error
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) FetchPrices(ctx context.Context, req PriceRequest) ([]domain.RawPriceRow, error) {
	s.mu.Lock()
	s.calls++
	s.requests = append(s.requests, req)
	idx := min(s.calls-1, len(s.results)-1)
	res := s.results[idx]
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return res.rows, res.err
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// mapCache is a minimal PriceCache honoring the mock clock.
type mapCache struct {
	mu    sync.Mutex
	clock clock.Clock
	data  map[string]cached
}

type cached struct {
	quotes    []domain.PriceQuote
	expiresAt time.Time
}

func newMapCache(clk clock.Clock) *mapCache {
	return &mapCache{clock: clk, data: map[string]cached{}}
}

func (c *mapCache) Get(_ context.Context, key string) ([]domain.PriceQuote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		return nil, false
	}
	return e.quotes, true
}

func (c *mapCache) Set(_ context.Context, key string, quotes []domain.PriceQuote, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cached{quotes: quotes, expiresAt: c.clock.Now().Add(ttl)}
}

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleRows() []domain.RawPriceRow {
	return []domain.RawPriceRow{
		{ItemID: "T4_BAG", City: "Martlock", Quality: 1, SellPriceMin: 1000, SellPriceMinDate: "2024-05-01T11:50:00", BuyPriceMax: 900, BuyPriceMaxDate: "2024-05-01T11:40:00"},
		{ItemID: "T4_BAG", City: "Lymhurst", Quality: 1, SellPriceMin: 1300, BuyPriceMax: 1400},
		{ItemID: "T4_BAG", City: "Black Market", Quality: 1, SellPriceMin: 1, BuyPriceMax: 5000},
	}
}

func newTestFetcher(t *testing.T, src PriceSource, clk clock.Clock, cfg FetcherConfig) *Fetcher {
	t.Helper()
	f, err := NewFetcher(src, newMapCache(clk), clk, cfg, &mockLogger{})
	if err != nil {
		t.Fatalf("NewFetcher() error = %v", err)
	}
	return f
}

func noBackoff() FetcherConfig {
	cfg := DefaultFetcherConfig()
	cfg.Retry.Backoff = 0
	cfg.RequestTimeout = time.Second
	return cfg
}

var bagRequest = PriceRequest{
	Items:     []string{"T4_BAG"},
	Locations: []domain.Location{domain.Martlock, domain.Lymhurst},
	Quality:   1,
}

func TestCacheKey_OrderIndependent(t *testing.T) {
	a := CacheKey(PriceRequest{
		Items:     []string{"T4_BAG", "T4_CAPE"},
		Locations: []domain.Location{domain.Martlock, domain.FortSterling},
		Quality:   1,
	})
	b := CacheKey(PriceRequest{
		Items:     []string{"T4_CAPE", "T4_BAG", "T4_CAPE"},
		Locations: []domain.Location{domain.FortSterling, domain.Martlock},
		Quality:   1,
	})
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if a != "T4_BAG,T4_CAPE::Fort Sterling,Martlock::q1" {
		t.Errorf("key = %q", a)
	}

	c := CacheKey(PriceRequest{Items: []string{"T4_BAG", "T4_CAPE"}, Locations: []domain.Location{domain.Martlock, domain.FortSterling}, Quality: 2})
	if c == a {
		t.Error("quality must be part of the key")
	}
}

func TestFetcher_NormalizesAndCaches(t *testing.T) {
	clk := clock.NewMock(testNow)
	src := &fakeSource{results: []fakeResult{{rows: sampleRows()}}}
	f := newTestFetcher(t, src, clk, noBackoff())
	ctx := context.Background()

	first, err := f.Fetch(ctx, bagRequest)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("len(quotes) = %d, want 2 (Black Market dropped)", len(first))
	}
	if !first[1].LowestSellOrderAt.Equal(testNow) {
		t.Errorf("missing timestamp = %v, want fallback to now", first[1].LowestSellOrderAt)
	}

	clk.Advance(29 * time.Second)
	second, err := f.Fetch(ctx, PriceRequest{
		Items:     []string{"T4_BAG"},
		Locations: []domain.Location{domain.Lymhurst, domain.Martlock},
		Quality:   1,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if src.callCount() != 1 {
		t.Fatalf("upstream calls = %d, want 1 (cache hit)", src.callCount())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("quote %d differs between fetch and cache hit: %+v vs %+v", i, first[i], second[i])
		}
	}

	clk.Advance(time.Second)
	if _, err := f.Fetch(ctx, bagRequest); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if src.callCount() != 2 {
		t.Errorf("upstream calls = %d, want 2 after TTL expiry", src.callCount())
	}
}

func TestFetcher_ReturnsCallerOwnedSlice(t *testing.T) {
	clk := clock.NewMock(testNow)
	src := &fakeSource{results: []fakeResult{{rows: sampleRows()}}}
	f := newTestFetcher(t, src, clk, noBackoff())

	first, _ := f.Fetch(context.Background(), bagRequest)
	first[0].LowestSellOrder = 1

	second, _ := f.Fetch(context.Background(), bagRequest)
	if second[0].LowestSellOrder != 1000 {
		t.Errorf("cached quotes mutated through returned slice")
	}
}

func TestFetcher_RetriesTransportFailures(t *testing.T) {
	src := &fakeSource{results: []fakeResult{
		{err: &StatusError{StatusCode: http.StatusInternalServerError}},
		{err: errors.New("connection reset")},
		{rows: sampleRows()},
	}}
	f := newTestFetcher(t, src, clock.NewMock(testNow), noBackoff())

	quotes, err := f.Fetch(context.Background(), bagRequest)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(quotes) != 2 || src.callCount() != 3 {
		t.Errorf("quotes = %d, calls = %d; want 2 quotes after 3 calls", len(quotes), src.callCount())
	}
}

func TestFetcher_ExhaustedRetriesAreUnavailable(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{err: &StatusError{StatusCode: http.StatusServiceUnavailable, Body: "maintenance"}}}}
	f := newTestFetcher(t, src, clock.NewMock(testNow), noBackoff())

	_, err := f.Fetch(context.Background(), bagRequest)
	if apperror.GetCode(err) != apperror.CodeUpstreamUnavailable {
		t.Fatalf("code = %s, want UPSTREAM_UNAVAILABLE (err %v)", apperror.GetCode(err), err)
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %v, want 503", appErr)
	}

	var attemptErr *AttemptError
	if !errors.As(err, &attemptErr) {
		t.Fatalf("err %v does not carry AttemptError", err)
	}
	if attemptErr.Attempts != 3 || attemptErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("AttemptError = %+v, want 3 attempts, last status 503", attemptErr)
	}
	if src.callCount() != 3 {
		t.Errorf("calls = %d, want 3", src.callCount())
	}
}

func TestFetcher_MalformedPayloadIsNotRetried(t *testing.T) {
	_, decodeErr := domain.DecodeRows([]byte(`{"message":"changed"}`))
	src := &fakeSource{results: []fakeResult{{err: decodeErr}}}
	f := newTestFetcher(t, src, clock.NewMock(testNow), noBackoff())

	_, err := f.Fetch(context.Background(), bagRequest)
	if apperror.GetCode(err) != apperror.CodeMalformedUpstreamPayload {
		t.Fatalf("code = %s, want MALFORMED_UPSTREAM_PAYLOAD", apperror.GetCode(err))
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", appErr.StatusCode)
	}
	if src.callCount() != 1 {
		t.Errorf("calls = %d, want 1", src.callCount())
	}
}

func TestFetcher_CustomRetryPolicy(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{err: errors.New("flaky")}}}
	cfg := noBackoff()
	cfg.Retry = RetryPolicy{MaxAttempts: 5, Retryable: func(error) bool { return true }}
	f := newTestFetcher(t, src, clock.NewMock(testNow), cfg)

	if _, err := f.Fetch(context.Background(), bagRequest); err == nil {
		t.Fatal("expected error")
	}
	if src.callCount() != 5 {
		t.Errorf("calls = %d, want 5", src.callCount())
	}
}

func TestFetcher_PerAttemptTimeout(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{rows: sampleRows()}}, delay: time.Second}
	cfg := noBackoff()
	cfg.RequestTimeout = 20 * time.Millisecond
	cfg.Retry.MaxAttempts = 2
	f := newTestFetcher(t, src, clock.NewMock(testNow), cfg)

	start := time.Now()
	_, err := f.Fetch(context.Background(), bagRequest)
	if apperror.GetCode(err) != apperror.CodeUpstreamUnavailable {
		t.Fatalf("code = %s, want UPSTREAM_UNAVAILABLE", apperror.GetCode(err))
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want wrapped deadline", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("fetch took %v, per-attempt timeout not applied", elapsed)
	}
	if src.callCount() != 2 {
		t.Errorf("calls = %d, want 2", src.callCount())
	}
}

func TestFetcher_CoalescesConcurrentMisses(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{rows: sampleRows()}}, delay: 50 * time.Millisecond}
	f := newTestFetcher(t, src, clock.NewMock(testNow), noBackoff())

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q, err := f.Fetch(context.Background(), bagRequest); err != nil || len(q) != 2 {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Errorf("%d fetches failed", failures.Load())
	}
	if src.callCount() != 1 {
		t.Errorf("upstream calls = %d, want 1", src.callCount())
	}
}

func TestFetcher_SharedCallOutlivesInitiator(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{rows: sampleRows()}}, delay: 100 * time.Millisecond}
	f := newTestFetcher(t, src, clock.NewMock(testNow), noBackoff())

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, bagRequest)
		first <- err
	}()

	deadline := time.Now().Add(time.Second)
	for src.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("upstream never called")
		}
		time.Sleep(time.Millisecond)
	}

	second := make(chan error, 1)
	go func() {
		q, err := f.Fetch(context.Background(), bagRequest)
		if err == nil && len(q) != 2 {
			err = errors.New("unexpected quotes")
		}
		second <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-first
	if apperror.GetCode(err) != apperror.CodeServiceTimeout {
		t.Errorf("initiator err = %v, want SERVICE_TIMEOUT", err)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message != "Stopped waiting for upstream prices" {
		t.Errorf("message = %q", appErr.Message)
	}
	if err := <-second; err != nil {
		t.Errorf("waiter err = %v, want shared result", err)
	}
	if src.callCount() != 1 {
		t.Errorf("upstream calls = %d, want 1", src.callCount())
	}

	// The abandoned call still filled the cache.
	if _, err := f.Fetch(context.Background(), bagRequest); err != nil || src.callCount() != 1 {
		t.Errorf("cached fetch = %v, calls %d", err, src.callCount())
	}
}

func TestFetcher_SharedBudget(t *testing.T) {
	cfg := DefaultFetcherConfig()
	f := newTestFetcher(t, &fakeSource{}, clock.NewMock(testNow), cfg)

	// 3 x 12s plus 250ms and 500ms backoff.
	if got, want := f.sharedBudget(), 36*time.Second+750*time.Millisecond; got != want {
		t.Errorf("sharedBudget() = %v, want %v", got, want)
	}
}

func TestFetcher_EmptyRequest(t *testing.T) {
	src := &fakeSource{results: []fakeResult{{rows: sampleRows()}}}
	f := newTestFetcher(t, src, clock.NewMock(testNow), noBackoff())

	quotes, err := f.Fetch(context.Background(), PriceRequest{Locations: []domain.Location{domain.Martlock}})
	if err != nil || len(quotes) != 0 || src.callCount() != 0 {
		t.Errorf("Fetch(empty) = %v, %v, calls %d", quotes, err, src.callCount())
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{Backoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}
	tests := map[int]time.Duration{2: 100 * time.Millisecond, 3: 200 * time.Millisecond, 4: 300 * time.Millisecond, 6: 300 * time.Millisecond}
	for n, want := range tests {
		if got := p.delay(n); got != want {
			t.Errorf("delay(%d) = %v, want %v", n, got, want)
		}
	}
	if got := (RetryPolicy{}).delay(3); got != 0 {
		t.Errorf("zero backoff delay = %v", got)
	}
}

func TestIsRetryable(t *testing.T) {
	_, malformed := domain.DecodeRows([]byte(`"x"`))
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"status", &StatusError{StatusCode: 500}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"malformed", malformed, false},
		{"canceled", context.Canceled, false},
		{"circuit open", apperror.New(apperror.CodeCircuitOpen), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
