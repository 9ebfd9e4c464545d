package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubScanner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubScanner) Scan(_ context.Context, q Query) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Result{ID: "scan", Meta: Meta{ItemCount: len(q.Items)}}, nil
}

func (s *stubScanner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingReporter struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	results  []*Result
	errs     []error
	statuses []bool
}

func (r *recordingReporter) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
	return nil
}

func (r *recordingReporter) Report(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recordingReporter) ReportError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) UpdateConnectionStatus(_ string, connected bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, connected)
}

func (r *recordingReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	return nil
}

func TestDetector_SingleScan(t *testing.T) {
	scanner := &stubScanner{}
	reporter := &recordingReporter{}
	d := NewDetector(scanner, reporter, DetectorConfig{Query: Query{Items: []string{"T4_BAG"}}}, &mockLogger{})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	d.Wait()
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if !reporter.started || !reporter.stopped {
		t.Errorf("reporter lifecycle: started=%v stopped=%v", reporter.started, reporter.stopped)
	}
	if len(reporter.results) != 1 || reporter.results[0].Meta.ItemCount != 1 {
		t.Errorf("results = %+v", reporter.results)
	}
	if len(reporter.statuses) != 1 || !reporter.statuses[0] {
		t.Errorf("statuses = %v", reporter.statuses)
	}
}

func TestDetector_ReportsErrors(t *testing.T) {
	scanner := &stubScanner{err: errors.New("upstream down")}
	reporter := &recordingReporter{}
	d := NewDetector(scanner, reporter, DetectorConfig{}, &mockLogger{})

	d.ScanOnce(context.Background())

	if len(reporter.errs) != 1 || len(reporter.results) != 0 {
		t.Errorf("errs = %v, results = %v", reporter.errs, reporter.results)
	}
	if len(reporter.statuses) != 1 || reporter.statuses[0] {
		t.Errorf("statuses = %v, want one disconnected", reporter.statuses)
	}
}

func TestDetector_WatchLoopStopsWithContext(t *testing.T) {
	scanner := &stubScanner{}
	reporter := &recordingReporter{}
	d := NewDetector(scanner, reporter, DetectorConfig{Interval: 10 * time.Millisecond}, &mockLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for scanner.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d scans ran", scanner.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	after := scanner.count()
	time.Sleep(30 * time.Millisecond)
	if scanner.count() != after {
		t.Error("scans continued after cancellation")
	}
}
