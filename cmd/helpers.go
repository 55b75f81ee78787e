package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/auto-improve/internal/config"
	"github.com/ziadkadry99/auto-improve/internal/embeddings"
	"github.com/ziadkadry99/auto-improve/internal/introspect"
	"github.com/ziadkadry99/auto-improve/internal/llm"
	"github.com/ziadkadry99/auto-improve/internal/modify"
	"github.com/ziadkadry99/auto-improve/internal/outcomes"
	"github.com/ziadkadry99/auto-improve/internal/ranker"
	"github.com/ziadkadry99/auto-improve/internal/review"
	"github.com/ziadkadry99/auto-improve/internal/sandbox"
	"github.com/ziadkadry99/auto-improve/internal/session"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		envVar := config.APIKeyEnvVar(config.ProviderOpenAI)
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is not set", envVar)
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
	case config.ProviderOllama:
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, 768, host), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// buildEngine wires the full pipeline: outcome store, scanner, ranker,
// council, architect, modification engine, and the session manager on top.
// The recorder may be nil when no audit trail is wanted.
func buildEngine(ctx context.Context, cfg *config.Config, recorder session.AuditRecorder, logger *zap.Logger) (*session.Manager, *outcomes.Store, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute)

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	store, err := outcomes.NewStore(ctx, cfg.DataDir, embedder, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening outcome store: %w", err)
	}

	scanner := introspect.NewScanner(cfg.RepoRoot, cfg.Introspect, logger)
	rank := ranker.New(store, logger)

	council := review.NewCouncil(
		review.NewSecurityReviewer(provider, cfg.Model, logger),
		review.NewPerformanceReviewer(provider, cfg.Model, logger),
		review.NewQualityReviewer(provider, cfg.Model, logger),
		logger,
	)
	architect := review.NewArchitect(provider, cfg.Model, store, cfg.Review.CriticalFiles, logger)

	runner := sandbox.NewRunner(logger)
	limits := sandbox.Limits{
		Timeout:    time.Duration(cfg.Sandbox.TimeoutSeconds) * time.Second,
		MemoryMB:   cfg.Sandbox.MemoryMB,
		CPUSeconds: cfg.Sandbox.CPUSeconds,
	}
	engine := modify.NewEngine(provider, cfg.Model, runner, limits, logger)

	orch := session.NewOrchestrator(scanner, rank, engine, council, architect, store,
		cfg.RepoRoot, cfg.Review.MaxRevisions, logger)
	manager := session.NewManager(orch, store, recorder, logger)
	return manager, store, nil
}
