// Package main is the entry point for the Albion market arbitrage scanner.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/albion-market-router/business/arbitrage"
	arbitrageApp "github.com/fd1az/albion-market-router/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/albion-market-router/business/arbitrage/di"
	"github.com/fd1az/albion-market-router/business/catalog"
	"github.com/fd1az/albion-market-router/business/market"
	"github.com/fd1az/albion-market-router/internal/apm"
	"github.com/fd1az/albion-market-router/internal/apperror"
	"github.com/fd1az/albion-market-router/internal/config"
	"github.com/fd1az/albion-market-router/internal/health"
	"github.com/fd1az/albion-market-router/internal/logger"
	"github.com/fd1az/albion-market-router/internal/metrics"
	"github.com/fd1az/albion-market-router/internal/monolith"
	"github.com/fd1az/albion-market-router/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// flags holds command-line overrides for the configured default query.
type flags struct {
	configPath string
	items      string
	locations  string
	mode       string
	quality    int
	minProfit  float64
	maxAge     int
	auto       bool
	jsonOut    bool
	tui        bool
	watch      time.Duration
	set        map[string]bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&f.items, "items", "", "Comma-separated item ids to scan")
	flag.StringVar(&f.locations, "locations", "", "Comma-separated cities (default: all royal cities)")
	flag.StringVar(&f.mode, "mode", "", "Selection mode: best, top3, flips, transport")
	flag.IntVar(&f.quality, "quality", 0, "Item quality tier 1-5")
	flag.Float64Var(&f.minProfit, "min-profit", 0, "Minimum profit percent")
	flag.IntVar(&f.maxAge, "max-age", 0, "Maximum data age in minutes")
	flag.BoolVar(&f.auto, "auto", false, "Scan the curated item universe instead of -items")
	flag.BoolVar(&f.jsonOut, "json", false, "Run one scan and print the result as JSON")
	flag.BoolVar(&f.tui, "tui", false, "Run the interactive dashboard")
	flag.DurationVar(&f.watch, "watch", 0, "Rescan interval (0 scans once)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("albion-arbitrage %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	f.set = make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !f.tui {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	// Run application
	if err := run(ctx, f); err != nil {
		if !f.jsonOut {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	// Load configuration
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cfg, f)

	// Set TUI mode in config so modules know
	cfg.Scan.TUIMode = f.tui && !f.jsonOut

	log := newLogger(cfg, cfg.Scan.TUIMode || f.jsonOut)
	log.Info(ctx, "starting albion market router",
		"version", version,
		"environment", cfg.App.Environment,
	)

	// Initialize observability if enabled
	stopTelemetry, err := startTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	var healthServer *health.Server
	if cfg.Health.Port > 0 && !f.jsonOut {
		healthServer = health.NewServer(cfg.Health.Port, version, log)
		if err := healthServer.Start(); err != nil {
			log.Warn(ctx, "failed to start health server", "error", err)
		} else {
			log.Info(ctx, "health server started", "port", cfg.Health.Port)
		}
		defer healthServer.Stop(context.Background())
	}

	// Create monolith (application container)
	mono := monolith.New(cfg, log, nil, healthServer)

	// Define modules in dependency order
	modules := []monolith.Module{
		&catalog.Module{}, // Item metadata and the auto-scan universe
		&market.Module{},  // Quote acquisition, cache and batching
		&arbitrage.Module{},
	}

	// Register all module services
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if f.jsonOut {
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		scanner := arbitrageDI.GetScanner(mono.Services())
		return runJSON(ctx, os.Stdout, scanner, arbitrage.QueryFromConfig(cfg))
	}

	if cfg.Scan.TUIMode {
		// TUI mode: Start modules in background so TUI shows immediately
		var detector detectorHandle
		startFunc := func() error {
			if err := mono.StartModules(ctx, modules...); err != nil {
				return fmt.Errorf("failed to start modules: %w", err)
			}
			d := arbitrageDI.GetDetector(mono.Services())
			detector.set(d)
			return d.Start(ctx)
		}
		refresh := func() { detector.refresh(ctx) }
		return runTUI(ctx, startFunc, detector.stop, refresh)
	}

	// CLI mode: Start modules synchronously
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	detector := arbitrageDI.GetDetector(mono.Services())
	return runCLI(ctx, detector, cfg.Scan.WatchInterval, log)
}

// applyFlags overrides the configured default query with explicit flags.
func applyFlags(cfg *config.Config, f flags) {
	if f.set["items"] {
		cfg.Scan.Items = splitList(f.items)
	}
	if f.set["locations"] {
		cfg.Scan.Locations = splitList(f.locations)
	}
	if f.set["mode"] {
		cfg.Scan.Mode = f.mode
	}
	if f.set["quality"] {
		cfg.Scan.Quality = f.quality
	}
	if f.set["min-profit"] {
		cfg.Scan.MinProfitPercent = f.minProfit
	}
	if f.set["max-age"] {
		cfg.Scan.MaxDataAgeMinutes = f.maxAge
	}
	if f.set["auto"] {
		cfg.Scan.Auto = f.auto
	}
	// A single JSON scan never watches.
	switch {
	case f.jsonOut:
		cfg.Scan.WatchInterval = 0
	case f.set["watch"]:
		cfg.Scan.WatchInterval = f.watch
	case !f.tui:
		cfg.Scan.WatchInterval = 0
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newLogger(cfg *config.Config, quiet bool) *logger.Logger {
	level := logger.ParseLevel(cfg.App.LogLevel)

	// The dashboard owns the terminal and JSON output owns stdout.
	if quiet {
		return logger.New(io.Discard, level, cfg.App.Name, traceID)
	}
	if cfg.App.LogFormat == "text" {
		return logger.NewText(os.Stderr, level, cfg.App.Name, traceID)
	}
	return logger.New(os.Stderr, level, cfg.App.Name, traceID)
}

func traceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func startTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	endpoint := cfg.Telemetry.OTLPEndpoint
	if apm.Provider(cfg.Telemetry.TraceProvider) == apm.ZipkinProvider {
		endpoint = cfg.Telemetry.ZipkinEndpoint
	}
	tp, err := apm.NewTraceProvider(apm.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    apm.Provider(cfg.Telemetry.TraceProvider),
		Endpoint:    endpoint,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start tracing: %w", err)
	}

	mp, err := metrics.NewMetricProvider(
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderFromName(cfg.Telemetry.MetricsExporter, cfg.Telemetry.OTLPEndpoint)),
	)
	if err != nil {
		_ = tp.Stop()
		return nil, fmt.Errorf("failed to start metrics: %w", err)
	}

	var promServer *metrics.PrometheusServer
	if metrics.Provider(cfg.Telemetry.MetricsExporter) == metrics.PrometheusProvider && cfg.Telemetry.PrometheusPort > 0 {
		promServer = metrics.NewPrometheusServer(log, metrics.WithPort(strconv.Itoa(cfg.Telemetry.PrometheusPort)))
		promServer.Start(ctx)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if promServer != nil {
			_ = promServer.Stop(shutdownCtx)
		}
		_ = mp.Shutdown(shutdownCtx)
		_ = tp.Stop()
	}, nil
}

// runJSON runs one scan and prints the result, or the error response.
func runJSON(ctx context.Context, w io.Writer, scanner arbitrageApp.QueryScanner, q arbitrageApp.Query) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	result, err := scanner.Scan(ctx, q)
	if err != nil {
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			appErr = apperror.Wrap(err, apperror.CodeInternalError, "scan")
		}
		if traceID := traceID(ctx); traceID != "" {
			appErr.WithTraceID(traceID)
		}
		_ = enc.Encode(appErr.ToResponse())
		return err
	}

	return enc.Encode(result)
}

func runCLI(ctx context.Context, detector *arbitrageApp.Detector, interval time.Duration, log *logger.Logger) error {
	log.Info(ctx, "all modules started, beginning scan")

	// Start the detector
	if err := detector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start detector: %w", err)
	}

	if interval <= 0 {
		// Single scan: the loop exits after reporting.
		detector.Wait()
	} else {
		// Wait for shutdown
		<-ctx.Done()
		log.Info(ctx, "shutting down")
	}

	// Stop detector gracefully
	if err := detector.Stop(); err != nil {
		log.Error(ctx, "error stopping detector", "error", err)
	}

	return nil
}

func runTUI(ctx context.Context, startFunc func() error, stopFunc func(), refresh func()) error {
	// Hooks are set before the program starts; the UI loop only reads them.
	ui.OnRefresh = refresh

	// Channel to receive the welcome-complete signal
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// Run scan logic in background (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		// Wait for welcome screen to complete
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		// Wait for context cancellation
		<-ctx.Done()

		stopFunc()
		errCh <- nil
	}()

	// Run TUI (blocking) - shows immediately with welcome screen
	if err := ui.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Check for scan errors
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// detectorHandle publishes the detector to the UI goroutines once the
// modules have started in the background.
type detectorHandle struct {
	p atomic.Pointer[arbitrageApp.Detector]
}

func (h *detectorHandle) set(d *arbitrageApp.Detector) {
	h.p.Store(d)
}

// refresh runs an immediate scan; it does nothing before the detector exists.
func (h *detectorHandle) refresh(ctx context.Context) {
	if d := h.p.Load(); d != nil {
		d.ScanOnce(ctx)
	}
}

func (h *detectorHandle) stop() {
	if d := h.p.Load(); d != nil {
		_ = d.Stop()
	}
}
