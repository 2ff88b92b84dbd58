package alert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"opsmon/internal/status"
)

type fakeNotifier struct {
	enabled bool
	sent    []string
	err     error
}

func (f *fakeNotifier) Enabled() bool { return f.enabled }

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.sent = append(f.sent, text)
	return f.err
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestDispatchAppendsLogLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "alerts.log")
	d := NewDispatcher(logPath, nil, "web-1", discard())
	when := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	d.Dispatch(context.Background(), []Record{
		{Level: status.Critical, Message: "CPU usage is 95% (threshold 80%)", Time: when},
		{Level: status.Warning, Message: "Memory usage is 78% (threshold 85%)", Time: when},
	})
	d.Dispatch(context.Background(), []Record{
		{Level: status.Critical, Message: "Service nginx is not running", Time: when},
	})

	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (append across dispatches): %q", len(lines), lines)
	}
	if lines[0] != "2026-08-25 10:30:00 [CRITICAL] CPU usage is 95% (threshold 80%)" {
		t.Fatalf("line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "[WARNING]") {
		t.Fatalf("line = %q", lines[1])
	}
}

func TestDispatchNotifies(t *testing.T) {
	n := &fakeNotifier{enabled: true}
	d := NewDispatcher(filepath.Join(t.TempDir(), "alerts.log"), n, "web-1", discard())
	d.Dispatch(context.Background(), []Record{
		{Level: status.Critical, Message: "disk full", Time: time.Now()},
	})
	if len(n.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(n.sent))
	}
	msg := n.sent[0]
	for _, want := range []string{"🚨", "CRITICAL", "disk full", "web-1"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}
}

func TestDispatchSwallowsDeliveryFailure(t *testing.T) {
	n := &fakeNotifier{enabled: true, err: errors.New("api down")}
	logPath := filepath.Join(t.TempDir(), "alerts.log")
	d := NewDispatcher(logPath, n, "web-1", discard())

	d.Dispatch(context.Background(), []Record{{Level: status.Warning, Message: "m", Time: time.Now()}})

	// The log line must still land even when delivery fails.
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("alert log missing after failed delivery: %v", err)
	}
	if len(n.sent) != 1 {
		t.Fatalf("delivery attempted %d times, want exactly 1 (no retry)", len(n.sent))
	}
}

func TestDispatchSkipsDisabledNotifier(t *testing.T) {
	n := &fakeNotifier{enabled: false}
	d := NewDispatcher(filepath.Join(t.TempDir(), "alerts.log"), n, "web-1", discard())
	d.Dispatch(context.Background(), []Record{{Level: status.Warning, Message: "m", Time: time.Now()}})
	if len(n.sent) != 0 {
		t.Fatal("disabled notifier must not be invoked")
	}
}

func TestDispatchNoRecordsNoFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "alerts.log")
	d := NewDispatcher(logPath, nil, "web-1", discard())
	d.Dispatch(context.Background(), nil)
	if _, err := os.Stat(logPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("no alerts must not create the log file")
	}
}
