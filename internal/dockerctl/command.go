package dockerctl

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the management command tree. Argument validation
// happens before any runtime call, so a missing container name never
// reaches the daemon.
func NewRootCommand(m *Manager) *cobra.Command {
	root := &cobra.Command{
		Use:          "dockerctl",
		Short:        "Container management helper",
		SilenceUsage: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// The help menu must print even when the runtime is absent.
			if cmd.Name() == "help" {
				return nil
			}
			return m.Preflight(cmd.Context())
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show daemon version and container counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Status(cmd.Context())
		},
	})

	var listState string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.List(cmd.Context(), listState)
		},
	}
	listCmd.Flags().StringVar(&listState, "state", "", "filter by state (running, exited, ...)")
	root.AddCommand(listCmd)

	var logsTail int
	var logsFollow bool
	logsCmd := &cobra.Command{
		Use:   "logs CONTAINER",
		Short: "Show container logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Logs(cmd.Context(), args[0], logsTail, logsFollow)
		},
	}
	logsCmd.Flags().IntVar(&logsTail, "tail", 100, "number of lines to show")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	root.AddCommand(logsCmd)

	root.AddCommand(&cobra.Command{
		Use:   "shell CONTAINER",
		Short: "Open an interactive shell in a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Shell(cmd.Context(), args[0])
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "restart CONTAINER",
		Short: "Restart a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Restart(cmd.Context(), args[0])
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show live resource usage of running containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Stats(cmd.Context())
		},
	})

	var cleanupForce bool
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stopped containers, dangling images and unused volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Cleanup(cmd.Context(), cleanupForce)
		},
	}
	cleanupCmd.Flags().BoolVar(&cleanupForce, "force", false, "skip the confirmation prompt")
	root.AddCommand(cleanupCmd)

	var backupDest string
	backupCmd := &cobra.Command{
		Use:   "backup CONTAINER",
		Short: "Export a container filesystem to a compressed archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Backup(cmd.Context(), args[0], backupDest)
		},
	}
	backupCmd.Flags().StringVar(&backupDest, "dest", ".", "destination directory")
	root.AddCommand(backupCmd)

	var composeFile string
	composeCmd := &cobra.Command{
		Use:       "compose {up|down|restart}",
		Short:     "Compose lifecycle shortcuts",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "restart"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Compose(cmd.Context(), composeFile, args[0])
		},
	}
	composeCmd.Flags().StringVarP(&composeFile, "file", "f", "", "compose file")
	root.AddCommand(composeCmd)

	return root
}
