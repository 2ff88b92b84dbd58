// Package backup archives a directory, rotates old archives, and records
// every run in a local catalog.
package backup

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"opsmon/internal/config"
	"opsmon/internal/notifier"
)

// spaceFactor: the destination must have 1.5x the source's current size free
// before an archive is attempted.
const spaceFactor = 1.5

type Orchestrator struct {
	cfg     config.Config
	notify  notifier.Notifier
	catalog *Catalog
	log     *slog.Logger
	stdout  io.Writer

	now       func() time.Time
	lookPath  func(file string) (string, error)
	freeBytes func(path string) (uint64, error)
	archive   func(ctx context.Context, tarPath, outFile, srcParent, srcBase string) error
}

func NewOrchestrator(cfg config.Config, n notifier.Notifier, catalog *Catalog, stdout io.Writer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		notify:    n,
		catalog:   catalog,
		log:       logger,
		stdout:    stdout,
		now:       time.Now,
		lookPath:  exec.LookPath,
		freeBytes: freeSpace,
		archive:   runTar,
	}
}

// Run performs one backup. Steps through the space check and archive
// creation are fatal; rotation, the summary, notifications, and catalog
// writes are best-effort.
func (o *Orchestrator) Run(ctx context.Context) error {
	src := o.cfg.BackupSource
	dest := o.cfg.BackupDest

	fi, err := os.Stat(src)
	if err != nil || !fi.IsDir() {
		err = fmt.Errorf("backup source %q does not exist", src)
		o.fail(ctx, "", err)
		return err
	}

	tarPath, err := o.lookPath("tar")
	if err != nil {
		err = fmt.Errorf("required utility tar not found: %w", err)
		o.fail(ctx, "", err)
		return err
	}

	srcSize := dirSize(src)
	required := uint64(float64(srcSize) * spaceFactor)
	free, err := o.freeBytes(nearestExisting(dest))
	if err != nil {
		o.log.Warn("read destination free space", "err", err)
	} else if free < required {
		err = fmt.Errorf("insufficient space on %s: need %s, have %s", dest, humanSize(required), humanSize(free))
		o.fail(ctx, "", err)
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		err = fmt.Errorf("create destination: %w", err)
		o.fail(ctx, "", err)
		return err
	}

	name := fmt.Sprintf("%s_%s.tar.gz", o.cfg.BackupPrefix, o.now().Format("20060102_150405"))
	outFile := filepath.Join(dest, name)
	if err := o.archive(ctx, tarPath, outFile, filepath.Dir(src), filepath.Base(src)); err != nil {
		// Never leave a partial archive behind.
		_ = os.Remove(outFile)
		err = fmt.Errorf("archive creation failed: %w", err)
		o.fail(ctx, name, err)
		return err
	}

	var size int64
	if st, err := os.Stat(outFile); err == nil {
		size = st.Size()
	}
	o.log.Info("backup created", "archive", name, "size", humanSize(uint64(size)))
	o.send(ctx, fmt.Sprintf("✅ Backup completed: `%s` (%s)", name, humanSize(uint64(size))))
	o.record(ctx, Run{Archive: name, SizeBytes: size, Status: "ok"})

	deleted := o.rotate()
	o.log.Info("rotation finished", "deleted", deleted, "retention_days", o.cfg.RetentionDays)
	o.summarize()
	return nil
}

// rotate deletes archives older than the retention threshold, matched by
// prefix and modification time. Individual delete failures are not
// distinguished from nothing-to-delete.
func (o *Orchestrator) rotate() int {
	cutoff := o.now().AddDate(0, 0, -o.cfg.RetentionDays)
	entries, err := os.ReadDir(o.cfg.BackupDest)
	if err != nil {
		o.log.Warn("read destination for rotation", "err", err)
		return 0
	}
	deleted := 0
	for _, e := range entries {
		if !o.isArchive(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(filepath.Join(o.cfg.BackupDest, e.Name())) == nil {
				deleted++
			}
		}
	}
	return deleted
}

// summarize lists retained archives newest-first.
func (o *Orchestrator) summarize() {
	entries, err := os.ReadDir(o.cfg.BackupDest)
	if err != nil {
		o.log.Warn("read destination for summary", "err", err)
		return
	}
	type archived struct {
		name string
		size int64
		mod  time.Time
	}
	var kept []archived
	for _, e := range entries {
		if !o.isArchive(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		kept = append(kept, archived{name: e.Name(), size: info.Size(), mod: info.ModTime()})
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].mod.After(kept[j].mod) })

	fmt.Fprintf(o.stdout, "Retained archives (%d):\n", len(kept))
	for _, a := range kept {
		fmt.Fprintf(o.stdout, "  %-40s %10s  %s\n", a.name, humanSize(uint64(a.size)), a.mod.Format("2006-01-02 15:04:05"))
	}
}

func (o *Orchestrator) isArchive(name string) bool {
	return strings.HasPrefix(name, o.cfg.BackupPrefix+"_") && strings.HasSuffix(name, ".tar.gz")
}

func (o *Orchestrator) fail(ctx context.Context, archive string, err error) {
	o.log.Error("backup failed", "err", err)
	o.send(ctx, fmt.Sprintf("🚨 Backup failed: %v", err))
	o.record(ctx, Run{Archive: archive, Status: "failed", Message: err.Error()})
}

func (o *Orchestrator) send(ctx context.Context, text string) {
	if o.notify == nil || !o.notify.Enabled() {
		return
	}
	// Best-effort by contract.
	_ = o.notify.Send(ctx, text)
}

func (o *Orchestrator) record(ctx context.Context, run Run) {
	if o.catalog == nil {
		return
	}
	run.CreatedAt = o.now().UTC()
	if err := o.catalog.RecordRun(ctx, run); err != nil {
		o.log.Warn("record backup run", "err", err)
	}
}

func runTar(ctx context.Context, tarPath, outFile, srcParent, srcBase string) error {
	cmd := exec.CommandContext(ctx, tarPath, "-czf", outFile, "-C", srcParent, srcBase)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func freeSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// nearestExisting walks up from path until a directory exists, so the space
// check works before the destination has been created.
func nearestExisting(path string) string {
	for p := path; ; p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		if p == filepath.Dir(p) {
			return p
		}
	}
}

func dirSize(root string) uint64 {
	var total uint64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
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
