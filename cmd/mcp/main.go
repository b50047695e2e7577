// Command mcp serves the source search over the Model Context Protocol on stdio.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/assignment-analyzer/internal/bootstrap"
	"github.com/kirillkom/assignment-analyzer/internal/config"
	"github.com/kirillkom/assignment-analyzer/internal/observability/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewSearch(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := newServer(app.SourceSearch, cfg.SourcesTopK, cfg.SourcesMaxTopK)
	slog.Info("mcp_stdio_started")
	if err := server.ServeStdio(srv, server.WithErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))); err != nil {
		slog.Error("mcp_stdio_failed", "error", err)
		os.Exit(1)
	}
}
