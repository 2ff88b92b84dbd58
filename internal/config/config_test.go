package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"CPU_THRESHOLD", "MEMORY_THRESHOLD", "DISK_THRESHOLD", "CHECK_INTERVAL", "SERVICES", "BACKUP_PREFIX", "RETENTION_DAYS"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.CPUThreshold != 80 || cfg.MemoryThreshold != 85 || cfg.DiskThreshold != 90 {
		t.Fatalf("default thresholds: %d/%d/%d", cfg.CPUThreshold, cfg.MemoryThreshold, cfg.DiskThreshold)
	}
	if cfg.CheckInterval != 60*time.Second {
		t.Fatalf("default interval: %v", cfg.CheckInterval)
	}
	if cfg.RetentionDays != 7 || cfg.BackupPrefix != "backup" {
		t.Fatalf("backup defaults: %d %q", cfg.RetentionDays, cfg.BackupPrefix)
	}
	if len(cfg.Services) != 0 {
		t.Fatalf("services default: %v", cfg.Services)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CPU_THRESHOLD", "70")
	t.Setenv("CHECK_INTERVAL", "30")
	t.Setenv("SERVICES", "nginx mysql sshd")
	cfg := Load()
	if cfg.CPUThreshold != 70 {
		t.Fatalf("cpu threshold: %d", cfg.CPUThreshold)
	}
	if cfg.CheckInterval != 30*time.Second {
		t.Fatalf("interval: %v", cfg.CheckInterval)
	}
	if len(cfg.Services) != 3 || cfg.Services[1] != "mysql" {
		t.Fatalf("services: %v", cfg.Services)
	}
}

func TestLoadFileOverridesEnv(t *testing.T) {
	t.Setenv("CPU_THRESHOLD", "70")
	path := filepath.Join(t.TempDir(), "opsmon.conf")
	content := strings.Join([]string{
		"# monitor settings",
		"",
		"CPU_THRESHOLD=75",
		`SERVICES="nginx redis"`,
		"RETENTION_DAYS = 14",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.CPUThreshold != 75 {
		t.Fatalf("file did not override env: %d", cfg.CPUThreshold)
	}
	if len(cfg.Services) != 2 || cfg.Services[0] != "nginx" {
		t.Fatalf("services: %v", cfg.Services)
	}
	if cfg.RetentionDays != 14 {
		t.Fatalf("retention: %d", cfg.RetentionDays)
	}
}

func TestLoadFileRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsmon.conf")
	if err := os.WriteFile(path, []byte("CPU_TRESHOLD=75\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Load()
	if err := cfg.LoadFile(path); err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadFileRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsmon.conf")
	if err := os.WriteFile(path, []byte("just some words\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Load()
	if err := cfg.LoadFile(path); err == nil {
		t.Fatal("expected error for malformed line")
	}
}

func TestLoadFileRejectsBadInteger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opsmon.conf")
	if err := os.WriteFile(path, []byte("DISK_THRESHOLD=ninety\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Load()
	if err := cfg.LoadFile(path); err == nil || !strings.Contains(err.Error(), "not an integer") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Load()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "nope.conf")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
