package main

import (
	"log/slog"
	"os"

	"opsmon/internal/config"
	"opsmon/internal/docker"
	"opsmon/internal/dockerctl"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	client := docker.NewClient(cfg.DockerSocket)
	m := dockerctl.NewManager(client, os.Stdout, os.Stdin, logger)

	if err := dockerctl.NewRootCommand(m).Execute(); err != nil {
		os.Exit(1)
	}
}
