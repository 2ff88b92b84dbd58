package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"opsmon/internal/backup"
	"opsmon/internal/config"
	"opsmon/internal/notifier"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	rootCmd := &cobra.Command{
		Use:   "sysbackup [config-file]",
		Short: "Archive a directory with rotation and free-space preflight",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if len(args) == 1 {
				if err := cfg.LoadFile(args[0]); err != nil {
					return err
				}
			}
			n := notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
			catalog := openCatalog(cfg, logger)
			if catalog != nil {
				defer catalog.Close()
			}
			o := backup.NewOrchestrator(cfg, n, catalog, os.Stdout, logger)
			return o.Run(cmd.Context())
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded backup runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			catalog, err := backup.OpenCatalog(catalogPath(cfg))
			if err != nil {
				return err
			}
			defer catalog.Close()
			runs, err := catalog.History(cmd.Context(), 20)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Printf("%s  %-8s %-40s %s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.Archive, r.Message)
			}
			return nil
		},
	}
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func catalogPath(cfg config.Config) string {
	return filepath.Join(cfg.BackupDest, "catalog.db")
}

// openCatalog is best-effort: a broken catalog never blocks a backup.
func openCatalog(cfg config.Config, logger *slog.Logger) *backup.Catalog {
	c, err := backup.OpenCatalog(catalogPath(cfg))
	if err != nil {
		logger.Warn("open backup catalog", "err", err)
		return nil
	}
	return c
}
