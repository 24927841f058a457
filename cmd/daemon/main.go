package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/apporte/workflow/internal/config"
	"github.com/apporte/workflow/internal/daemon"
	"github.com/apporte/workflow/internal/logging"
)

func main() {
	// Graceful shutdown on the usual termination signals
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := logging.Init(cfg.LogPath()); err != nil {
		slog.Error("failed to initialize logging", "error", err)
		os.Exit(1)
	}

	server, err := daemon.NewServer(cfg.SocketPath, daemon.Options{
		BroadcastBuffer: cfg.Daemon.BroadcastBuffer,
		ClientBuffer:    cfg.Daemon.ClientBuffer,
	})
	if err != nil {
		slog.Error("failed to create daemon", "error", err)
		os.Exit(1)
	}

	slog.Info("workflow daemon starting", "socket_path", cfg.SocketPath, "pid", os.Getpid())

	// Start blocks until the context is cancelled
	if err := server.Start(ctx); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}

	slog.Info("workflow daemon shutting down gracefully")
}
