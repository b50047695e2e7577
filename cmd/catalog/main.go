// Command catalog manages the academic source catalog: importing sources,
// refreshing missing embeddings and running ad-hoc similarity searches.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kirillkom/assignment-analyzer/internal/bootstrap"
	"github.com/kirillkom/assignment-analyzer/internal/config"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
	"github.com/kirillkom/assignment-analyzer/internal/observability/logging"
)

// services is what the subcommands need from the wiring layer.
type services struct {
	search  ports.SourceSearcher
	catalog ports.SourceCataloger
	topK    int
	maxTopK int
	close   func()
}

type openFunc func(ctx context.Context) (*services, error)

func openServices(ctx context.Context) (*services, error) {
	cfg := config.Load()
	app, err := bootstrap.NewSearch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &services{
		search:  app.SourceSearch,
		catalog: app.SourceCatalog,
		topK:    cfg.SourcesTopK,
		maxTopK: cfg.SourcesMaxTopK,
		close:   app.Close,
	}, nil
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("dotenv_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "catalog", os.Getenv("LOG_LEVEL")))

	if err := newRootCmd(openServices).Execute(); err != nil {
		os.Exit(1)
	}
}
