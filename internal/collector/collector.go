// Package collector gathers point-in-time host samples. Every query degrades
// independently: a source that cannot be read yields its fallback value and
// the cycle carries on.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	maxDisks        = 5
	maxTopProcesses = 5
	cpuSampleWindow = time.Second
)

// ContainerRuntime is the subset of the docker client the collector needs.
type ContainerRuntime interface {
	Installed() bool
	Ping(ctx context.Context) error
	ContainerCounts(ctx context.Context) (running, total int, err error)
}

type Collector struct {
	services []string
	ifaces   []string
	runtime  ContainerRuntime
	log      *slog.Logger
}

func New(services, ifaces []string, runtime ContainerRuntime, logger *slog.Logger) *Collector {
	return &Collector{services: services, ifaces: ifaces, runtime: runtime, log: logger}
}

func (c *Collector) Collect(ctx context.Context) Snapshot {
	snap := Snapshot{CollectedAt: time.Now().UTC()}
	c.collectSystem(ctx, &snap)
	c.collectCPU(ctx, &snap)
	c.collectMemory(ctx, &snap)
	c.collectDisks(ctx, &snap)
	c.collectLoad(ctx, &snap)
	c.collectNetwork(ctx, &snap)
	c.collectProcessesAndServices(ctx, &snap)
	c.collectContainers(ctx, &snap)
	return snap
}

func (c *Collector) collectSystem(ctx context.Context, snap *Snapshot) {
	if hn, err := os.Hostname(); err == nil {
		snap.Hostname = hn
	}
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		c.log.Warn("read host info", "err", err)
		return
	}
	snap.Platform = strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	snap.Kernel = info.KernelVersion
	snap.Uptime = FormatUptime(time.Duration(info.Uptime) * time.Second)
}

// collectCPU samples over a short window. An unreadable source counts as
// idle: the fallback is zero, not an error.
func (c *Collector) collectCPU(ctx context.Context, snap *Snapshot) {
	pcts, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil || len(pcts) == 0 {
		c.log.Warn("read cpu usage", "err", err)
		snap.CPUPct = 0
		return
	}
	snap.CPUPct = int(math.Round(pcts[0]))
}

func (c *Collector) collectMemory(ctx context.Context, snap *Snapshot) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		c.log.Warn("read memory", "err", err)
		return
	}
	snap.MemoryPct = int(math.Round(vm.UsedPercent))
}

// collectDisks reports device-backed filesystems only, capped at the first
// five in discovery order.
func (c *Collector) collectDisks(ctx context.Context, snap *Snapshot) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		c.log.Warn("list partitions", "err", err)
		return
	}
	for _, p := range parts {
		if !physicalFS(p.Fstype) {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue
		}
		snap.Disks = append(snap.Disks, DiskSample{
			Mount:   p.Mountpoint,
			UsedPct: int(math.Round(usage.UsedPercent)),
		})
		if len(snap.Disks) == maxDisks {
			break
		}
	}
}

func (c *Collector) collectLoad(ctx context.Context, snap *Snapshot) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		c.log.Warn("read load average", "err", err)
		return
	}
	snap.Load1, snap.Load5, snap.Load15 = avg.Load1, avg.Load5, avg.Load15
}

func (c *Collector) collectNetwork(ctx context.Context, snap *Snapshot) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		c.log.Warn("read network counters", "err", err)
		return
	}
	byName := make(map[string]net.IOCountersStat, len(counters))
	for _, s := range counters {
		byName[s.Name] = s
	}

	names := c.ifaces
	if len(names) == 0 {
		for _, s := range counters {
			if s.Name == "lo" {
				continue
			}
			names = append(names, s.Name)
		}
	}
	for _, name := range names {
		s, ok := byName[name]
		if !ok {
			snap.Interfaces = append(snap.Interfaces, InterfaceSample{Name: name})
			continue
		}
		snap.Interfaces = append(snap.Interfaces, InterfaceSample{
			Name:    name,
			Found:   true,
			RxBytes: s.BytesRecv,
			TxBytes: s.BytesSent,
		})
	}
}

// collectProcessesAndServices walks the process table once and uses it for
// both the top-five ranking and the process half of the service check.
func (c *Collector) collectProcessesAndServices(ctx context.Context, snap *Snapshot) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		c.log.Warn("list processes", "err", err)
		procs = nil
	}

	names := make(map[string]bool, len(procs))
	samples := make([]ProcessSample, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		names[name] = true

		memPct, err := p.MemoryPercentWithContext(ctx)
		if err != nil {
			continue
		}
		cpuPct, _ := p.CPUPercentWithContext(ctx)
		user, _ := p.UsernameWithContext(ctx)
		cmd, _ := p.CmdlineWithContext(ctx)
		if cmd == "" {
			cmd = name
		}
		samples = append(samples, ProcessSample{
			User:    user,
			CPUPct:  cpuPct,
			MemPct:  float64(memPct),
			Command: cmd,
		})
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].MemPct > samples[j].MemPct })
	if len(samples) > maxTopProcesses {
		samples = samples[:maxTopProcesses]
	}
	snap.TopProcesses = samples

	for _, svc := range c.services {
		snap.Services = append(snap.Services, ServiceSample{
			Name:    svc,
			Running: systemdActive(ctx, svc) || names[svc],
		})
	}
}

func (c *Collector) collectContainers(ctx context.Context, snap *Snapshot) {
	if c.runtime == nil || !c.runtime.Installed() {
		return
	}
	snap.Containers.Installed = true
	if err := c.runtime.Ping(ctx); err != nil {
		c.log.Warn("ping container runtime", "err", err)
		return
	}
	snap.Containers.Reachable = true
	running, total, err := c.runtime.ContainerCounts(ctx)
	if err != nil {
		c.log.Warn("list containers", "err", err)
		return
	}
	snap.Containers.Running = running
	snap.Containers.Total = total
}

// systemdActive asks the service manager; a host without systemctl simply
// never takes this branch. The process-name check is the OR fallback for
// services not managed by systemd.
func systemdActive(ctx context.Context, name string) bool {
	path, err := exec.LookPath("systemctl")
	if err != nil {
		return false
	}
	return exec.CommandContext(ctx, path, "is-active", "--quiet", name).Run() == nil
}

// physicalFS filters out pseudo and network filesystems that Partitions can
// still surface on some platforms.
func physicalFS(fstype string) bool {
	switch strings.ToLower(fstype) {
	case "tmpfs", "devtmpfs", "proc", "sysfs", "cgroup", "cgroup2", "overlay",
		"squashfs", "ramfs", "debugfs", "tracefs", "fusectl", "autofs",
		"nfs", "nfs4", "cifs", "smbfs", "fuse.sshfs":
		return false
	}
	return fstype != ""
}

// FormatUptime renders elapsed time the way uptime(1) roughly does.
func FormatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("up %d days, %d hours, %d minutes", days, hours, mins)
	case hours > 0:
		return fmt.Sprintf("up %d hours, %d minutes", hours, mins)
	default:
		return fmt.Sprintf("up %d minutes", mins)
	}
}

// HumanBytes formats a byte count with a magnitude suffix.
func HumanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
