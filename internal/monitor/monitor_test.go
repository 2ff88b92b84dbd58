package monitor

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"opsmon/internal/alert"
	"opsmon/internal/collector"
	"opsmon/internal/config"
)

type stubSource struct {
	snap collector.Snapshot
}

func (s *stubSource) Collect(context.Context) collector.Snapshot { return s.snap }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		CPUThreshold:    80,
		MemoryThreshold: 85,
		DiskThreshold:   90,
		CheckInterval:   time.Second,
		LogFile:         filepath.Join(dir, "alerts.log"),
		ReportFile:      filepath.Join(dir, "report.html"),
	}
}

func newRunner(cfg config.Config, snap collector.Snapshot, out io.Writer) *Runner {
	d := alert.NewDispatcher(cfg.LogFile, nil, "test-host", discard())
	return NewRunner(cfg, &stubSource{snap: snap}, d, out, discard())
}

func healthySnapshot() collector.Snapshot {
	return collector.Snapshot{
		Hostname:    "test-host",
		CollectedAt: time.Now().UTC(),
		CPUPct:      10,
		MemoryPct:   20,
		Disks:       []collector.DiskSample{{Mount: "/", UsedPct: 30}},
		Services:    []collector.ServiceSample{{Name: "nginx", Running: true}},
	}
}

func TestRunCycleAllClear(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	r := newRunner(cfg, healthySnapshot(), &buf)

	raised := r.RunCycle(context.Background(), false)
	if raised != 0 {
		t.Fatalf("raised = %d, want 0", raised)
	}
	if _, err := os.Stat(cfg.LogFile); err == nil {
		t.Fatal("all-clear cycle must not write the alert log")
	}
	if !strings.Contains(buf.String(), "All systems operational") {
		t.Fatal("missing all-clear output")
	}
}

func TestRunCycleCPUAboveCeiling(t *testing.T) {
	cfg := testConfig(t)
	snap := healthySnapshot()
	snap.CPUPct = 82
	var buf bytes.Buffer
	r := newRunner(cfg, snap, &buf)

	raised := r.RunCycle(context.Background(), false)
	if raised != 1 {
		t.Fatalf("raised = %d, want exactly 1", raised)
	}
	b, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatalf("alert log: %v", err)
	}
	if !strings.Contains(string(b), "[CRITICAL] CPU usage is 82% (threshold 80%)") {
		t.Fatalf("log content: %q", b)
	}
}

func TestRunCycleWarningBand(t *testing.T) {
	cfg := testConfig(t)
	snap := healthySnapshot()
	snap.MemoryPct = 78 // ceiling 85, warning band starts at 75
	r := newRunner(cfg, snap, io.Discard)

	raised := r.RunCycle(context.Background(), false)
	if raised != 1 {
		t.Fatalf("raised = %d, want 1 warning alert", raised)
	}
	b, _ := os.ReadFile(cfg.LogFile)
	if !strings.Contains(string(b), "[WARNING] Memory usage is 78%") {
		t.Fatalf("log content: %q", b)
	}
}

func TestRunCycleStoppedService(t *testing.T) {
	cfg := testConfig(t)
	snap := healthySnapshot()
	snap.Services = append(snap.Services, collector.ServiceSample{Name: "mysql", Running: false})
	r := newRunner(cfg, snap, io.Discard)

	if raised := r.RunCycle(context.Background(), false); raised != 1 {
		t.Fatalf("raised = %d, want 1", raised)
	}
	b, _ := os.ReadFile(cfg.LogFile)
	if !strings.Contains(string(b), "Service mysql is not running") {
		t.Fatalf("log content: %q", b)
	}
}

func TestRunCycleMultipleAlerts(t *testing.T) {
	cfg := testConfig(t)
	snap := healthySnapshot()
	snap.CPUPct = 95
	snap.Disks = append(snap.Disks, collector.DiskSample{Mount: "/data", UsedPct: 92})
	r := newRunner(cfg, snap, io.Discard)

	if raised := r.RunCycle(context.Background(), false); raised != 2 {
		t.Fatalf("raised = %d, want 2", raised)
	}
}

func TestRunCycleWritesHTMLReport(t *testing.T) {
	cfg := testConfig(t)
	r := newRunner(cfg, healthySnapshot(), io.Discard)
	r.RunCycle(context.Background(), true)
	if _, err := os.Stat(cfg.ReportFile); err != nil {
		t.Fatalf("html report not written: %v", err)
	}
}

func TestRunCycleHTMLFailureDoesNotRaise(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReportFile = filepath.Join(cfg.ReportFile, "nope", "report.html") // unwritable
	r := newRunner(cfg, healthySnapshot(), io.Discard)
	if raised := r.RunCycle(context.Background(), true); raised != 0 {
		t.Fatalf("report failure changed cycle outcome: raised = %d", raised)
	}
}

func TestDaemonStopsOnContextAndDiscardsOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.CheckInterval = 10 * time.Millisecond
	var buf bytes.Buffer
	r := newRunner(cfg, healthySnapshot(), &buf)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		r.Daemon(ctx, false)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop on context cancellation")
	}
	if buf.Len() != 0 {
		t.Fatalf("daemon leaked cycle output: %q", buf.String())
	}
}
