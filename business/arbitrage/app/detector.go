package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fd1az/albion-market-router/internal/apperror"
	"github.com/fd1az/albion-market-router/internal/logger"
)

// DetectorConfig holds configuration for the watch loop.
type DetectorConfig struct {
	Query Query
	// Interval between scans. Zero runs a single scan.
	Interval time.Duration
	// SourceName labels the upstream in status updates.
	SourceName string
}

// Detector re-runs one query periodically and feeds the Reporter.
type Detector struct {
	scanner  QueryScanner
	reporter Reporter
	config   DetectorConfig
	logger   logger.LoggerInterface

	wg sync.WaitGroup
}

// NewDetector creates a new Detector.
func NewDetector(scanner QueryScanner, reporter Reporter, config DetectorConfig, log logger.LoggerInterface) *Detector {
	if config.SourceName == "" {
		config.SourceName = "albion-data"
	}
	return &Detector{
		scanner:  scanner,
		reporter: reporter,
		config:   config,
		logger:   log,
	}
}

// Start starts the reporter and the scan loop. The loop stops when ctx is
// done.
func (d *Detector) Start(ctx context.Context) error {
	d.logger.Info(ctx, "starting arbitrage detector", "interval", d.config.Interval)

	if err := d.reporter.Start(ctx); err != nil {
		return err
	}

	d.wg.Add(1)
	go d.run(ctx)

	return nil
}

func (d *Detector) run(ctx context.Context) {
	defer d.wg.Done()

	d.ScanOnce(ctx)
	if d.config.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info(ctx, "detector stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			d.ScanOnce(ctx)
		}
	}
}

// ScanOnce runs the configured query and reports the outcome.
func (d *Detector) ScanOnce(ctx context.Context) {
	start := time.Now()
	result, err := d.scanner.Scan(ctx, d.config.Query)
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		return
	}

	d.reporter.UpdateConnectionStatus(d.config.SourceName, err == nil, elapsed)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			d.logger.Warn(ctx, "scan failed", "error", appErr.ToLog())
		} else {
			d.logger.Warn(ctx, "scan failed", "error", err)
		}
		d.reporter.ReportError(err)
		return
	}
	d.reporter.Report(result)
}

// Wait blocks until the scan loop has exited.
func (d *Detector) Wait() {
	d.wg.Wait()
}

// Stop gracefully shuts down the detector. Cancel the Start context first.
func (d *Detector) Stop() error {
	d.logger.Info(context.Background(), "stopping arbitrage detector")
	d.wg.Wait()
	return d.reporter.Stop()
}
