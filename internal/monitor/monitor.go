// Package monitor wires one collect-evaluate-report-alert cycle and the
// daemon loop around it.
package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"opsmon/internal/alert"
	"opsmon/internal/collector"
	"opsmon/internal/config"
	"opsmon/internal/report"
	"opsmon/internal/status"
)

// Source produces one snapshot per call.
type Source interface {
	Collect(ctx context.Context) collector.Snapshot
}

type Runner struct {
	cfg        config.Config
	source     Source
	dispatcher *alert.Dispatcher
	log        *slog.Logger
	stdout     io.Writer
	now        func() time.Time
}

func NewRunner(cfg config.Config, source Source, dispatcher *alert.Dispatcher, stdout io.Writer, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		source:     source,
		dispatcher: dispatcher,
		log:        logger,
		stdout:     stdout,
		now:        time.Now,
	}
}

// RunCycle executes one full cycle and returns how many alerts were raised.
// The caller maps a non-zero count to a failing exit code; that count is the
// only success/failure signal a single check exposes.
func (r *Runner) RunCycle(ctx context.Context, html bool) int {
	snap := r.source.Collect(ctx)
	alerts := r.evaluate(snap)

	report.Console(r.stdout, snap, r.cfg, alerts)
	if html {
		// Report generation is best-effort; a broken report path must not
		// change the cycle's outcome.
		if err := report.HTML(r.cfg.ReportFile, snap, r.cfg, r.now()); err != nil {
			r.log.Warn("write html report", "path", r.cfg.ReportFile, "err", err)
		}
	}
	r.dispatcher.Dispatch(ctx, alerts)
	return len(alerts)
}

// Daemon repeats the cycle at a fixed interval forever, discarding each
// cycle's output and result. There is no jitter and no catch-up on overrun.
func (r *Runner) Daemon(ctx context.Context, html bool) {
	quiet := *r
	quiet.stdout = io.Discard
	for {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.log.Error("cycle panicked", "panic", p)
				}
			}()
			_ = quiet.RunCycle(ctx, html)
		}()
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.CheckInterval):
		}
	}
}

func (r *Runner) evaluate(snap collector.Snapshot) []alert.Record {
	var out []alert.Record
	now := r.now()

	add := func(lvl status.Level, msg string) {
		if lvl == status.OK {
			return
		}
		out = append(out, alert.Record{Level: lvl, Message: msg, Time: now})
	}

	add(status.Evaluate(snap.CPUPct, r.cfg.CPUThreshold),
		fmt.Sprintf("CPU usage is %d%% (threshold %d%%)", snap.CPUPct, r.cfg.CPUThreshold))
	add(status.Evaluate(snap.MemoryPct, r.cfg.MemoryThreshold),
		fmt.Sprintf("Memory usage is %d%% (threshold %d%%)", snap.MemoryPct, r.cfg.MemoryThreshold))
	for _, d := range snap.Disks {
		add(status.Evaluate(d.UsedPct, r.cfg.DiskThreshold),
			fmt.Sprintf("Disk usage on %s is %d%% (threshold %d%%)", d.Mount, d.UsedPct, r.cfg.DiskThreshold))
	}
	for _, s := range snap.Services {
		if !s.Running {
			add(status.Critical, fmt.Sprintf("Service %s is not running", s.Name))
		}
	}
	return out
}
