package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fd1az/albion-market-router/internal/logger"
)

func TestPrometheusPipeline(t *testing.T) {
	reg := prometheus.NewRegistry()

	mp, err := NewMetricProvider(
		WithServiceName("albion-test"),
		WithRegisterer(reg),
		WithProviderConfig(ProviderFromName("prometheus", "")),
	)
	if err != nil {
		t.Fatalf("NewMetricProvider() error = %v", err)
	}
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := mp.Meter("test").Int64Counter("market_price_cache_hits_total")
	if err != nil {
		t.Fatal(err)
	}
	counter.Add(context.Background(), 3)

	log := logger.New(io.Discard, logger.LevelInfo, "metrics-test", nil)
	srv := NewPrometheusServer(log, WithGatherer(reg))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Scope labels may follow the metric name.
	var found bool
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "market_price_cache_hits_total") && strings.HasSuffix(line, " 3") {
			found = true
		}
	}
	if !found {
		t.Errorf("scrape missing counter:\n%s", rec.Body.String())
	}
}

func TestProviderFromName(t *testing.T) {
	if got := ProviderFromName("otlp", "http://collector:4317"); got.Provider != OtelCollector || got.Endpoint != "http://collector:4317" {
		t.Errorf("otlp = %+v", got)
	}
	if got := ProviderFromName("", ""); got.Provider != PrometheusProvider {
		t.Errorf("default = %+v", got)
	}
}
