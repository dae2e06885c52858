package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mlbb-ai/coach/db"
	"github.com/mlbb-ai/coach/internal/coach"
	"github.com/mlbb-ai/coach/internal/config"
	"github.com/mlbb-ai/coach/internal/conversation"
	"github.com/mlbb-ai/coach/internal/evidence"
	"github.com/mlbb-ai/coach/internal/intent"
	"github.com/mlbb-ai/coach/internal/knowledge"
	"github.com/mlbb-ai/coach/internal/llm"
	"github.com/mlbb-ai/coach/internal/observability"
)

// Setup initializes the application. Call Close on the returned App.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// Unwind everything already initialized when a later step fails.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelShutdown = observability.SetupTracing(ctx, cfg.OTLPEndpoint, "mlbb-coach", logger)

	g, ollamaPlugin, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.Embedder = provideEmbedder(g, ollamaPlugin, cfg)

	var retriever knowledge.Retriever
	if cfg.PostgresDSN != "" {
		pool, err := provideDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.Pool = pool

		if a.Embedder == nil {
			return nil, fmt.Errorf("embedder %q not available for provider %q",
				cfg.EmbedderModel, cfg.Provider)
		}
		a.Knowledge = knowledge.NewStore(pool, a.Embedder, logger)
		retriever = a.Knowledge
		a.Store = conversation.NewPostgresStore(pool, logger)
	} else {
		logger.Warn("no database configured: conversations are in-memory, retrieval is disabled")
		retriever = emptyRetriever{}
		a.Store = conversation.NewMemoryStore(cfg.RetainedTurns, logger)
	}

	a.Registry = provideRegistry(g, cfg, logger)

	// The classifier shares the default provider when one is usable; without
	// one it runs heuristic-only.
	var generator intent.Generator
	if p, err := a.Registry.Resolve(""); err == nil {
		generator = p
	} else {
		logger.Warn("no usable provider for classification, heuristic only", "error", err)
	}
	classifier := intent.NewClassifier(generator, logger)

	assembler := evidence.NewAssembler(retriever, evidence.Config{
		TopK:                cfg.TopK,
		MaxPassages:         cfg.MaxPassages,
		CharBudget:          cfg.EvidenceCharBudget,
		PerPartitionTimeout: cfg.RetrievalTimeout,
	}, logger)

	a.Engine = coach.NewEngine(classifier, assembler, a.Registry, a.Store, coach.Config{
		HistoryTurns:       cfg.HistoryTurns,
		HistoryTokenBudget: cfg.HistoryTokenBudget,
		MaxTokens:          cfg.MaxTokens,
		GenerationTimeout:  cfg.GenerationTimeout,
		Language:           cfg.Language,
	}, logger)

	return a, nil
}

// provideGenkit initializes Genkit with every backend plugin that has usable
// configuration. The Google plugin is skipped without a real API key, since
// its init fails hard on missing credentials.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, *ollama.Ollama, error) {
	var plugins []api.Plugin

	if llm.GoogleAIAvailable() {
		plugins = append(plugins, &googlegenai.GoogleAI{})
	}

	var ollamaPlugin *ollama.Ollama
	if cfg.OllamaHost != "" {
		ollamaPlugin = &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		plugins = append(plugins, ollamaPlugin)
	}

	g := genkit.Init(ctx, genkit.WithPlugins(plugins...))
	if g == nil {
		return nil, nil, errors.New("initializing genkit")
	}

	if ollamaPlugin != nil {
		// Ollama has no model auto-discovery.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.OllamaModel,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
	}

	logger.Debug("genkit initialized",
		"googleai", llm.GoogleAIAvailable(), "ollama_host", cfg.OllamaHost)
	return g, ollamaPlugin, nil
}

// provideEmbedder returns the embedder for the configured provider, or nil
// when the provider has no usable configuration.
func provideEmbedder(g *genkit.Genkit, ollamaPlugin *ollama.Ollama, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		if ollamaPlugin == nil {
			return nil
		}
		return ollama.Embedder(g, cfg.OllamaHost)
	default:
		if !llm.GoogleAIAvailable() {
			return nil
		}
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideDBPool migrates the schema and opens a connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresDSN); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// provideRegistry registers one provider per configured backend.
func provideRegistry(g *genkit.Genkit, cfg *config.Config, logger *slog.Logger) *llm.Registry {
	registry := llm.NewRegistry(cfg.Provider)

	googleai, err := llm.NewGenkitProvider(llm.GenkitConfig{
		Genkit:      g,
		Name:        config.ProviderGoogleAI,
		ModelName:   "googleai/" + cfg.ModelName,
		Temperature: cfg.Temperature,
		HardTimeout: cfg.GenerationTimeout,
		Logger:      logger,
		AvailableFn: llm.GoogleAIAvailable,
	})
	if err == nil {
		registry.Register(googleai)
	}

	ollamaProvider, err := llm.NewGenkitProvider(llm.GenkitConfig{
		Genkit:      g,
		Name:        config.ProviderOllama,
		ModelName:   "ollama/" + cfg.OllamaModel,
		Temperature: cfg.Temperature,
		HardTimeout: cfg.GenerationTimeout,
		Logger:      logger,
		AvailableFn: func() bool { return cfg.OllamaHost != "" },
	})
	if err == nil {
		registry.Register(ollamaProvider)
	}

	logger.Info("providers registered",
		"default", cfg.Provider, "available", registry.Available())
	return registry
}

// emptyRetriever serves memory-only mode: every search misses, so replies
// are generated ungrounded.
type emptyRetriever struct{}

func (emptyRetriever) Search(context.Context, knowledge.Partition, string, int) ([]knowledge.Passage, error) {
	return nil, nil
}
