// Package dockerctl maps management command names onto container runtime
// actions.
package dockerctl

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"opsmon/internal/docker"
)

// Engine is the runtime surface the manager drives. Interactive work (shell,
// compose) goes through the docker CLI instead; everything else stays on the
// API socket.
type Engine interface {
	Installed() bool
	Ping(ctx context.Context) error
	Version(ctx context.Context) (docker.VersionInfo, error)
	ListContainers(ctx context.Context, all bool) ([]docker.ContainerSummary, error)
	InspectContainer(ctx context.Context, name string) (docker.ContainerInspect, error)
	Stats(ctx context.Context, name string) (docker.Stats, error)
	Logs(ctx context.Context, name string, tail int, follow bool) (io.ReadCloser, error)
	RestartContainer(ctx context.Context, name string, timeout time.Duration) error
	ExportContainer(ctx context.Context, name string) (io.ReadCloser, error)
	PruneContainers(ctx context.Context) (docker.PruneReport, error)
	PruneImages(ctx context.Context) (docker.PruneReport, error)
	PruneVolumes(ctx context.Context) (docker.PruneReport, error)
}

type Manager struct {
	engine Engine
	stdout io.Writer
	stdin  io.Reader
	log    *slog.Logger

	now         func() time.Time
	execCommand func(ctx context.Context, name string, args ...string) error
}

func NewManager(engine Engine, stdout io.Writer, stdin io.Reader, logger *slog.Logger) *Manager {
	return &Manager{
		engine:      engine,
		stdout:      stdout,
		stdin:       stdin,
		log:         logger,
		now:         time.Now,
		execCommand: runAttached,
	}
}

// Preflight verifies the runtime is present and its daemon reachable. Every
// command runs it exactly once before dispatch.
func (m *Manager) Preflight(ctx context.Context) error {
	if !m.engine.Installed() {
		return fmt.Errorf("docker is not installed")
	}
	if err := m.engine.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon is not reachable: %w", err)
	}
	return nil
}

func (m *Manager) Status(ctx context.Context) error {
	v, err := m.engine.Version(ctx)
	if err != nil {
		return err
	}
	containers, err := m.engine.ListContainers(ctx, true)
	if err != nil {
		return err
	}
	running := 0
	for _, c := range containers {
		if strings.EqualFold(c.State, "running") {
			running++
		}
	}
	fmt.Fprintf(m.stdout, "Docker %s (API %s)\n", v.Version, v.APIVersion)
	fmt.Fprintf(m.stdout, "Containers: %d running / %d total\n", running, len(containers))
	return nil
}

func (m *Manager) List(ctx context.Context, state string) error {
	containers, err := m.engine.ListContainers(ctx, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.stdout, "%-24s %-28s %-10s %s\n", "NAME", "IMAGE", "STATE", "STATUS")
	for _, c := range containers {
		if state != "" && !strings.EqualFold(c.State, state) {
			continue
		}
		fmt.Fprintf(m.stdout, "%-24s %-28s %-10s %s\n", c.Name(), c.Image, c.State, c.Status)
	}
	return nil
}

func (m *Manager) Logs(ctx context.Context, name string, tail int, follow bool) error {
	info, err := m.engine.InspectContainer(ctx, name)
	if err != nil {
		return err
	}
	rc, err := m.engine.Logs(ctx, name, tail, follow)
	if err != nil {
		return err
	}
	defer rc.Close()
	// A TTY container emits a raw stream with no frame headers.
	if info.Config.Tty {
		_, err := io.Copy(m.stdout, rc)
		return err
	}
	return docker.DemuxLogs(m.stdout, rc)
}

// Shell opens an interactive shell, preferring bash and falling back to sh
// for minimal images.
func (m *Manager) Shell(ctx context.Context, name string) error {
	if err := m.execCommand(ctx, "docker", "exec", "-it", name, "/bin/bash"); err == nil {
		return nil
	}
	return m.execCommand(ctx, "docker", "exec", "-it", name, "/bin/sh")
}

func (m *Manager) Restart(ctx context.Context, name string) error {
	if err := m.engine.RestartContainer(ctx, name, 10*time.Second); err != nil {
		return err
	}
	fmt.Fprintf(m.stdout, "restarted %s\n", name)
	return nil
}

func (m *Manager) Stats(ctx context.Context) error {
	containers, err := m.engine.ListContainers(ctx, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.stdout, "%-24s %8s %12s %8s %12s %12s\n", "NAME", "CPU%", "MEM", "MEM%", "NET RX", "NET TX")
	for _, c := range containers {
		s, err := m.engine.Stats(ctx, c.ID)
		if err != nil {
			m.log.Warn("container stats", "name", c.Name(), "err", err)
			continue
		}
		u := docker.NormalizeStats(c.Name(), s)
		fmt.Fprintf(m.stdout, "%-24s %7.1f%% %12s %7.1f%% %12s %12s\n",
			u.Name, u.CPUPct, humanSize(u.MemUsed), u.MemPct, humanSize(u.NetRxBytes), humanSize(u.NetTxBytes))
	}
	return nil
}

// Cleanup prunes stopped containers, dangling images, and unused volumes
// after an interactive confirmation. force skips the prompt.
func (m *Manager) Cleanup(ctx context.Context, force bool) error {
	if !force {
		fmt.Fprint(m.stdout, "This removes all stopped containers, dangling images and unused volumes. Continue? [y/N] ")
		answer, _ := bufio.NewReader(m.stdin).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(m.stdout, "aborted")
			return nil
		}
	}
	var reclaimed uint64
	cr, err := m.engine.PruneContainers(ctx)
	if err != nil {
		return err
	}
	reclaimed += cr.SpaceReclaimed
	ir, err := m.engine.PruneImages(ctx)
	if err != nil {
		return err
	}
	reclaimed += ir.SpaceReclaimed
	vr, err := m.engine.PruneVolumes(ctx)
	if err != nil {
		return err
	}
	reclaimed += vr.SpaceReclaimed
	fmt.Fprintf(m.stdout, "removed %d containers, %d volumes, reclaimed %s\n",
		len(cr.ContainersDeleted), len(vr.VolumesDeleted), humanSize(reclaimed))
	return nil
}

// Backup exports a container filesystem to a compressed archive in destDir.
func (m *Manager) Backup(ctx context.Context, name, destDir string) error {
	if _, err := m.engine.InspectContainer(ctx, name); err != nil {
		return err
	}
	rc, err := m.engine.ExportContainer(ctx, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	outPath := fmt.Sprintf("%s/%s_%s.tar.gz", strings.TrimRight(destDir, "/"), name, m.now().Format("20060102_150405"))
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	if _, err := io.Copy(gz, rc); err != nil {
		gz.Close()
		f.Close()
		_ = os.Remove(outPath)
		return err
	}
	if err := gz.Close(); err != nil {
		f.Close()
		_ = os.Remove(outPath)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	st, err := os.Stat(outPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.stdout, "exported %s to %s (%s)\n", name, outPath, humanSize(uint64(st.Size())))
	return nil
}

// Compose shells out to the compose plugin for lifecycle shortcuts.
func (m *Manager) Compose(ctx context.Context, file, action string) error {
	args := []string{"compose"}
	if file != "" {
		args = append(args, "-f", file)
	}
	switch action {
	case "up":
		args = append(args, "up", "-d")
	case "down":
		args = append(args, "down")
	case "restart":
		args = append(args, "restart")
	default:
		return fmt.Errorf("unknown compose action %q", action)
	}
	return m.execCommand(ctx, "docker", args...)
}

func runAttached(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func humanSize(n uint64) string {
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
