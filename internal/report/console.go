// Package report renders one collection cycle for humans. Both render
// targets derive status from status.Evaluate with the configured ceilings;
// neither makes its own threshold decisions.
package report

import (
	"fmt"
	"io"

	"opsmon/internal/alert"
	"opsmon/internal/collector"
	"opsmon/internal/config"
	"opsmon/internal/status"
)

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[0;32m"
	ansiYellow = "\033[1;33m"
	ansiRed    = "\033[0;31m"
)

// Console writes the sectioned text report. Colors are unconditional; the
// daemon discards the output anyway and single runs are interactive.
func Console(w io.Writer, snap collector.Snapshot, cfg config.Config, alerts []alert.Record) {
	fmt.Fprintf(w, "===== System Report: %s =====\n", snap.Hostname)
	fmt.Fprintf(w, "Generated: %s\n\n", snap.CollectedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "-- System --")
	fmt.Fprintf(w, "OS:      %s\n", snap.Platform)
	fmt.Fprintf(w, "Kernel:  %s\n", snap.Kernel)
	fmt.Fprintf(w, "Uptime:  %s\n\n", snap.Uptime)

	fmt.Fprintln(w, "-- CPU --")
	fmt.Fprintf(w, "Usage:   %s\n", coloredPct(snap.CPUPct, cfg.CPUThreshold))
	fmt.Fprintf(w, "Load:    %.2f %.2f %.2f\n\n", snap.Load1, snap.Load5, snap.Load15)

	fmt.Fprintln(w, "-- Memory --")
	fmt.Fprintf(w, "Usage:   %s\n\n", coloredPct(snap.MemoryPct, cfg.MemoryThreshold))

	fmt.Fprintln(w, "-- Disk --")
	for _, d := range snap.Disks {
		fmt.Fprintf(w, "%-20s %s\n", d.Mount, coloredPct(d.UsedPct, cfg.DiskThreshold))
	}
	fmt.Fprintln(w)

	if len(snap.Services) > 0 {
		fmt.Fprintln(w, "-- Services --")
		for _, s := range snap.Services {
			if s.Running {
				fmt.Fprintf(w, "%-20s %srunning%s\n", s.Name, ansiGreen, ansiReset)
			} else {
				fmt.Fprintf(w, "%-20s %sstopped%s\n", s.Name, ansiRed, ansiReset)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "-- Containers --")
	switch {
	case !snap.Containers.Installed:
		fmt.Fprintln(w, "docker: not installed")
	case !snap.Containers.Reachable:
		fmt.Fprintln(w, "docker: daemon not reachable")
	default:
		fmt.Fprintf(w, "running: %d / %d\n", snap.Containers.Running, snap.Containers.Total)
	}
	fmt.Fprintln(w)

	if len(snap.TopProcesses) > 0 {
		fmt.Fprintln(w, "-- Top Processes (by memory) --")
		fmt.Fprintf(w, "%-12s %6s %6s  %s\n", "USER", "CPU%", "MEM%", "COMMAND")
		for _, p := range snap.TopProcesses {
			fmt.Fprintf(w, "%-12s %6.1f %6.1f  %s\n", p.User, p.CPUPct, p.MemPct, truncate(p.Command, 60))
		}
		fmt.Fprintln(w)
	}

	if len(snap.Interfaces) > 0 {
		fmt.Fprintln(w, "-- Network --")
		for _, in := range snap.Interfaces {
			if !in.Found {
				fmt.Fprintf(w, "%-12s not found\n", in.Name)
				continue
			}
			fmt.Fprintf(w, "%-12s rx %s  tx %s\n", in.Name, collector.HumanBytes(in.RxBytes), collector.HumanBytes(in.TxBytes))
		}
		fmt.Fprintln(w)
	}

	if len(alerts) == 0 {
		fmt.Fprintf(w, "%sAll systems operational%s\n", ansiGreen, ansiReset)
		return
	}
	fmt.Fprintf(w, "%s===== ALERTS (%d) =====%s\n", ansiRed, len(alerts), ansiReset)
	for _, a := range alerts {
		fmt.Fprintf(w, "[%s] %s\n", a.Level, a.Message)
	}
}

func coloredPct(value, ceiling int) string {
	lvl := status.Evaluate(value, ceiling)
	var color string
	switch lvl {
	case status.Critical:
		color = ansiRed
	case status.Warning:
		color = ansiYellow
	default:
		color = ansiGreen
	}
	return fmt.Sprintf("%s%d%% [%s]%s", color, value, lvl, ansiReset)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
