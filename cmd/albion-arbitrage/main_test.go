package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	arbitrageApp "github.com/fd1az/albion-market-router/business/arbitrage/app"
	"github.com/fd1az/albion-market-router/internal/apperror"
	"github.com/fd1az/albion-market-router/internal/config"
	"github.com/fd1az/albion-market-router/internal/logger"
)

type stubScanner struct {
	result *arbitrageApp.Result
	err    error
}

func (s stubScanner) Scan(context.Context, arbitrageApp.Query) (*arbitrageApp.Result, error) {
	return s.result, s.err
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name      string
		f         flags
		wantItems []string
		wantWatch time.Duration
		wantAuto  bool
	}{
		{
			name:      "unset flags keep config",
			f:         flags{set: map[string]bool{}},
			wantItems: []string{"T4_BAG"},
			wantWatch: 0,
		},
		{
			name:      "items and watch",
			f:         flags{items: " T4_ORE, ,T5_HIDE ", watch: time.Minute, set: map[string]bool{"items": true, "watch": true}},
			wantItems: []string{"T4_ORE", "T5_HIDE"},
			wantWatch: time.Minute,
		},
		{
			name:      "json never watches",
			f:         flags{jsonOut: true, watch: time.Minute, auto: true, set: map[string]bool{"watch": true, "auto": true}},
			wantItems: []string{"T4_BAG"},
			wantWatch: 0,
			wantAuto:  true,
		},
		{
			name:      "tui keeps configured interval",
			f:         flags{tui: true, set: map[string]bool{"tui": true}},
			wantItems: []string{"T4_BAG"},
			wantWatch: 30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Scan: config.ScanConfig{Items: []string{"T4_BAG"}, WatchInterval: 30 * time.Second}}
			applyFlags(cfg, tt.f)

			if len(cfg.Scan.Items) != len(tt.wantItems) {
				t.Fatalf("items = %v, want %v", cfg.Scan.Items, tt.wantItems)
			}
			for i := range tt.wantItems {
				if cfg.Scan.Items[i] != tt.wantItems[i] {
					t.Errorf("items = %v, want %v", cfg.Scan.Items, tt.wantItems)
				}
			}
			if cfg.Scan.WatchInterval != tt.wantWatch {
				t.Errorf("watch = %v, want %v", cfg.Scan.WatchInterval, tt.wantWatch)
			}
			if cfg.Scan.Auto != tt.wantAuto {
				t.Errorf("auto = %v, want %v", cfg.Scan.Auto, tt.wantAuto)
			}
		})
	}
}

func TestRunJSON_Result(t *testing.T) {
	var buf bytes.Buffer
	res := &arbitrageApp.Result{ID: "scan-1", Opportunities: []arbitrageApp.Listing{}}

	if err := runJSON(context.Background(), &buf, stubScanner{result: res}, arbitrageApp.Query{}); err != nil {
		t.Fatalf("runJSON() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got["id"] != "scan-1" {
		t.Errorf("id = %v", got["id"])
	}
	if _, ok := got["meta"]; !ok {
		t.Error("meta missing")
	}
}

func TestRunJSON_Error(t *testing.T) {
	var buf bytes.Buffer
	scanErr := apperror.New(apperror.CodeInvalidLocation, apperror.WithContext("Atlantis"))

	err := runJSON(context.Background(), &buf, stubScanner{err: scanErr}, arbitrageApp.Query{})
	if err == nil {
		t.Fatal("expected error")
	}

	var got struct {
		Error struct {
			Code       string `json:"code"`
			StatusCode int    `json:"statusCode"`
			Context    string `json:"context"`
		} `json:"error"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got.Error.Code != "INVALID_LOCATION" || got.Error.StatusCode != 400 || got.Error.Context != "Atlantis" {
		t.Errorf("error body = %+v", got.Error)
	}
}

func TestSplitList(t *testing.T) {
	if got := splitList(""); len(got) != 0 {
		t.Errorf("splitList(\"\") = %v", got)
	}
	if got := splitList("Martlock, Fort Sterling"); len(got) != 2 || got[1] != "Fort Sterling" {
		t.Errorf("splitList = %v", got)
	}
}

// countingReporter counts completed scans.
type countingReporter struct {
	reports atomic.Int32
}

func (r *countingReporter) Start(context.Context) error                        { return nil }
func (r *countingReporter) Report(*arbitrageApp.Result)                        { r.reports.Add(1) }
func (r *countingReporter) ReportError(error)                                  {}
func (r *countingReporter) UpdateConnectionStatus(string, bool, time.Duration) {}
func (r *countingReporter) Stop() error                                        { return nil }

func TestDetectorHandle(t *testing.T) {
	var h detectorHandle
	ctx := context.Background()

	// Before the modules start, refresh and stop are no-ops.
	h.refresh(ctx)
	h.stop()

	reporter := &countingReporter{}
	detector := arbitrageApp.NewDetector(
		stubScanner{result: &arbitrageApp.Result{ID: "r1"}},
		reporter,
		arbitrageApp.DetectorConfig{},
		logger.New(io.Discard, logger.LevelDebug, "main-test", nil),
	)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.refresh(ctx)
		}()
	}
	h.set(detector)
	wg.Wait()

	before := reporter.reports.Load()
	h.refresh(ctx)
	if got := reporter.reports.Load(); got != before+1 {
		t.Errorf("reports = %d, want %d", got, before+1)
	}
	h.stop()
}
