package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/assignment-analyzer/internal/config"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
	"github.com/kirillkom/assignment-analyzer/internal/core/usecase"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/auth"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/embedding/gemini"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/embedding/ollama"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/extractor/document"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/resilience"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/assignment-analyzer/internal/infrastructure/webhook"
)

// App is the full wiring used by the API server and the dispatch worker.
type App struct {
	Config config.Config

	Queue         ports.MessageQueue
	AccountUC     ports.AccountService
	SubmissionUC  ports.SubmissionService
	DispatchUC    ports.AssignmentDispatcher
	SourceSearch  ports.SourceSearcher
	SourceCatalog ports.SourceCataloger

	closeFn func()
}

// SearchApp is the reduced wiring for tools that only touch the source catalog.
type SearchApp struct {
	Config config.Config

	SourceSearch  ports.SourceSearcher
	SourceCatalog ports.SourceCataloger

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg))
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecretKey, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	sources := postgres.NewSourceRepository(db)
	students := postgres.NewStudentRepository(db)
	assignments := postgres.NewAssignmentRepository(db)
	extractor := document.NewExtractor(storage)
	analysisWebhook := webhook.New(cfg.AnalysisWebhookURL, executor)

	return &App{
		Config: cfg,
		Queue:  queue,

		AccountUC:     usecase.NewAccountUseCase(students, auth.NewBcryptHasher(0), tokens),
		SubmissionUC:  usecase.NewSubmissionUseCase(assignments, storage, extractor, queue),
		DispatchUC:    usecase.NewDispatchUseCase(assignments, students, storage, analysisWebhook),
		SourceSearch:  usecase.NewSourceRetriever(embedder, sources),
		SourceCatalog: usecase.NewCatalogUseCase(sources, embedder),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func NewSearch(ctx context.Context, cfg config.Config) (*SearchApp, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	sources := postgres.NewSourceRepository(db)

	return &SearchApp{
		Config:        cfg,
		SourceSearch:  usecase.NewSourceRetriever(embedder, sources),
		SourceCatalog: usecase.NewCatalogUseCase(sources, embedder),
		closeFn: func() {
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func (a *SearchApp) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db, cfg.EmbeddingDimensions); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// newEmbedder builds the provider chosen by EMBEDDING_PROVIDER. The executor
// makes a single attempt; only the circuit breaker applies.
func newEmbedder(ctx context.Context, cfg config.Config) (*usecase.EmbeddingGenerator, error) {
	executor := resilience.NewExecutor(resilienceConfig(cfg).SingleAttempt())

	var provider ports.EmbeddingProvider
	switch strings.ToLower(strings.TrimSpace(cfg.EmbeddingProvider)) {
	case "", "gemini":
		client, err := gemini.NewClient(ctx, cfg.GoogleAPIKey, cfg.GeminiEmbedModel, executor)
		if err != nil {
			return nil, fmt.Errorf("init gemini embedder: %w", err)
		}
		provider = client
	case "ollama":
		provider = ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.WithResilienceExecutor(executor))
	default:
		return nil, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", cfg.EmbeddingProvider)
	}
	return usecase.NewEmbeddingGenerator(provider, cfg.EmbeddingDimensions), nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	if cfg.ResilienceRetryMaxAttempts > 0 {
		out.Retry.MaxAttempts = cfg.ResilienceRetryMaxAttempts
	}
	if cfg.ResilienceRetryInitialBackoff > 0 {
		out.Retry.InitialBackoff = cfg.ResilienceRetryInitialBackoff
	}
	if cfg.ResilienceRetryMaxBackoff > 0 {
		out.Retry.MaxBackoff = cfg.ResilienceRetryMaxBackoff
	}
	out.Breaker.Enabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		out.Breaker.MinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	if cfg.ResilienceBreakerFailureRatio > 0 {
		out.Breaker.FailureRatio = cfg.ResilienceBreakerFailureRatio
	}
	if cfg.ResilienceBreakerOpenTimeout > 0 {
		out.Breaker.OpenTimeout = cfg.ResilienceBreakerOpenTimeout
	}
	return out
}
