// Package alert turns threshold breaches into a durable log line and an
// optional operator notification.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"opsmon/internal/notifier"
	"opsmon/internal/status"
)

type Record struct {
	Level   status.Level
	Message string
	Time    time.Time
}

type Dispatcher struct {
	logPath  string
	notify   notifier.Notifier
	hostname string
	log      *slog.Logger
	now      func() time.Time
}

func NewDispatcher(logPath string, n notifier.Notifier, hostname string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logPath: logPath, notify: n, hostname: hostname, log: logger, now: time.Now}
}

// Dispatch appends every record to the alert log and forwards it when a
// notification channel is configured. Neither path may fail the cycle:
// delivery errors are discarded and logging errors only reach slog.
func (d *Dispatcher) Dispatch(ctx context.Context, records []Record) {
	if len(records) == 0 {
		return
	}
	if err := d.appendLog(records); err != nil {
		d.log.Warn("write alert log", "path", d.logPath, "err", err)
	}
	if d.notify == nil || !d.notify.Enabled() {
		return
	}
	for _, r := range records {
		// Best-effort by contract, no retry.
		_ = d.notify.Send(ctx, d.format(r))
	}
}

func (d *Dispatcher) appendLog(records []Record) error {
	f, err := os.OpenFile(d.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, r := range records {
		ts := r.Time
		if ts.IsZero() {
			ts = d.now()
		}
		if _, err := fmt.Fprintf(f, "%s [%s] %s\n", ts.Format("2006-01-02 15:04:05"), r.Level, r.Message); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) format(r Record) string {
	icon := levelIcon(r.Level)
	ts := r.Time
	if ts.IsZero() {
		ts = d.now()
	}
	return fmt.Sprintf("%s *%s*\n%s\nHost: `%s`\nTime: %s",
		icon, r.Level, r.Message, d.hostname, ts.Format("2006-01-02 15:04:05"))
}

func levelIcon(l status.Level) string {
	switch l {
	case status.Critical:
		return "🚨"
	case status.Warning:
		return "⚠️"
	default:
		return "✅"
	}
}
