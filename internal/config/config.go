package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable for all three tools. It is built once at
// startup and passed by value; nothing mutates it afterwards.
type Config struct {
	CPUThreshold    int
	MemoryThreshold int
	DiskThreshold   int
	CheckInterval   time.Duration

	LogFile    string
	ReportFile string

	Services          []string
	NetworkInterfaces []string

	DockerSocket string

	TelegramBotToken string
	TelegramChatID   string

	BackupSource  string
	BackupDest    string
	BackupPrefix  string
	RetentionDays int
}

func Load() Config {
	return Config{
		CPUThreshold:      getenvInt("CPU_THRESHOLD", 80),
		MemoryThreshold:   getenvInt("MEMORY_THRESHOLD", 85),
		DiskThreshold:     getenvInt("DISK_THRESHOLD", 90),
		CheckInterval:     time.Duration(getenvInt("CHECK_INTERVAL", 60)) * time.Second,
		LogFile:           getenv("LOG_FILE", "/var/log/opsmon.log"),
		ReportFile:        getenv("REPORT_FILE", "/tmp/opsmon_report.html"),
		Services:          getenvList("SERVICES"),
		NetworkInterfaces: getenvList("NETWORK_INTERFACES"),
		DockerSocket:      getenv("DOCKER_SOCKET", "/var/run/docker.sock"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:    os.Getenv("TELEGRAM_CHAT_ID"),
		BackupSource:      os.Getenv("BACKUP_SOURCE"),
		BackupDest:        getenv("BACKUP_DEST", "/var/backups"),
		BackupPrefix:      getenv("BACKUP_PREFIX", "backup"),
		RetentionDays:     getenvInt("RETENTION_DAYS", 7),
	}
}

// LoadFile applies a KEY=value override file on top of cfg. Keys use the same
// names as the environment variables. Unknown keys and malformed values are
// errors so a typo cannot silently fall back to a default. Lines starting
// with '#' and blank lines are skipped. The file is never executed.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("%s:%d: expected KEY=value", path, lineNo)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if err := c.set(key, value); err != nil {
			return fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
	}
	return s.Err()
}

func (c *Config) set(key, value string) error {
	switch key {
	case "CPU_THRESHOLD":
		return setInt(&c.CPUThreshold, key, value)
	case "MEMORY_THRESHOLD":
		return setInt(&c.MemoryThreshold, key, value)
	case "DISK_THRESHOLD":
		return setInt(&c.DiskThreshold, key, value)
	case "CHECK_INTERVAL":
		var secs int
		if err := setInt(&secs, key, value); err != nil {
			return err
		}
		c.CheckInterval = time.Duration(secs) * time.Second
		return nil
	case "LOG_FILE":
		c.LogFile = value
	case "REPORT_FILE":
		c.ReportFile = value
	case "SERVICES":
		c.Services = strings.Fields(value)
	case "NETWORK_INTERFACES":
		c.NetworkInterfaces = strings.Fields(value)
	case "DOCKER_SOCKET":
		c.DockerSocket = value
	case "TELEGRAM_BOT_TOKEN":
		c.TelegramBotToken = value
	case "TELEGRAM_CHAT_ID":
		c.TelegramChatID = value
	case "BACKUP_SOURCE":
		c.BackupSource = value
	case "BACKUP_DEST":
		c.BackupDest = value
	case "BACKUP_PREFIX":
		c.BackupPrefix = value
	case "RETENTION_DAYS":
		return setInt(&c.RetentionDays, key, value)
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, value)
	}
	*dst = n
	return nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func getenvList(k string) []string {
	return strings.Fields(os.Getenv(k))
}
