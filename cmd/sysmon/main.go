package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"opsmon/internal/alert"
	"opsmon/internal/collector"
	"opsmon/internal/config"
	"opsmon/internal/docker"
	"opsmon/internal/monitor"
	"opsmon/internal/notifier"
)

func main() {
	var (
		daemon     bool
		htmlOut    bool
		configFile string
	)
	// A single check exits non-zero iff at least one alert was raised.
	exitCode := 0

	rootCmd := &cobra.Command{
		Use:   "sysmon",
		Short: "Host health monitor with threshold alerting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if configFile != "" {
				if err := cfg.LoadFile(configFile); err != nil {
					return err
				}
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			hostname, _ := os.Hostname()

			dc := docker.NewClient(cfg.DockerSocket)
			col := collector.New(cfg.Services, cfg.NetworkInterfaces, dc, logger.With("module", "collector"))
			n := notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
			disp := alert.NewDispatcher(cfg.LogFile, n, hostname, logger.With("module", "alert"))
			runner := monitor.NewRunner(cfg, col, disp, os.Stdout, logger.With("module", "monitor"))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if daemon {
				runner.Daemon(ctx, htmlOut)
				return nil
			}
			if raised := runner.RunCycle(ctx, htmlOut); raised > 0 {
				exitCode = 1
			}
			return nil
		},
	}
	rootCmd.Flags().BoolVar(&daemon, "daemon", false, "run forever, checking every CHECK_INTERVAL seconds")
	rootCmd.Flags().BoolVar(&htmlOut, "html", false, "also write the HTML report to REPORT_FILE")
	rootCmd.Flags().StringVar(&configFile, "config", "", "KEY=value config file overriding the environment")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
