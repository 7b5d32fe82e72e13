// Package app wires configuration into a ready-to-serve RAG service. It is
// shared by the HTTP and NATS front ends.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/sector-rag/engine/llm"
	"github.com/WessleyAI/sector-rag/engine/rag"
	"github.com/WessleyAI/sector-rag/engine/sector"
	"github.com/WessleyAI/sector-rag/engine/semantic"
	"github.com/WessleyAI/sector-rag/pkg/config"
	"github.com/WessleyAI/sector-rag/pkg/metrics"
	"github.com/WessleyAI/sector-rag/pkg/ollama"
	"github.com/WessleyAI/sector-rag/pkg/openai"
	"github.com/WessleyAI/sector-rag/pkg/resilience"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// App holds the service and the resources it owns.
type App struct {
	Service *rag.Service
	Metrics *metrics.Registry

	closers []func()
}

// Close releases every connection opened by Build, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build connects to the configured backends and assembles the service.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Metrics: metrics.New()}

	embedder, generator := Providers(cfg)

	searcher, closeSearch, err := Searcher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeSearch)

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: neo4j driver: %w", err)
	}
	a.closers = append(a.closers, func() { driver.Close(context.Background()) })

	opts := rag.DefaultOptions()
	opts.Model = cfg.ChatModel
	opts.Evaluate = cfg.Evaluate

	a.Service = rag.New(rag.Deps{
		Embedder:  embedder,
		Searcher:  searcher,
		Generator: generator,
		Sectors:   sector.NewDirectory(driver),
		Metrics:   a.Metrics,
	}, opts, logger)

	logger.Info("rag service ready",
		"llm_provider", cfg.LLMProvider,
		"chat_model", cfg.ChatModel,
		"vector_backend", cfg.VectorBackend,
		"evaluate", cfg.Evaluate,
	)
	return a, nil
}

// Providers returns the guarded embedder and generator for cfg.LLMProvider.
// Each capability gets its own breaker so embedding outages do not block
// generation and vice versa.
func Providers(cfg config.Config) (llm.Embedder, llm.Generator) {
	var (
		embedder  llm.Embedder
		generator llm.Generator
	)
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		c := openai.New(openai.Options{APIKey: cfg.OpenAIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.ChatModel, EmbedModel: cfg.EmbedModel})
		embedder, generator = c, c
	default:
		c := ollama.New(cfg.OllamaURL, cfg.ChatModel, cfg.EmbedModel)
		embedder, generator = c, c
	}
	return llm.GuardEmbedder(embedder, GuardOpts(cfg)), llm.GuardGenerator(generator, GuardOpts(cfg))
}

// GuardOpts derives the resilience settings for one capability client.
func GuardOpts(cfg config.Config) llm.GuardOpts {
	opts := llm.DefaultGuardOpts()
	opts.Timeout = cfg.LLMTimeout
	if cfg.LLMRPS > 0 {
		opts.Limiter = resilience.NewLimiter(cfg.LLMRPS, int(cfg.LLMRPS))
	}
	return opts
}

// Searcher opens the configured vector backend.
func Searcher(ctx context.Context, cfg config.Config) (rag.VectorSearcher, func(), error) {
	switch cfg.VectorBackend {
	case config.BackendPGVector:
		s, err := semantic.OpenPG(ctx, cfg.PostgresDSN, cfg.PostgresTable)
		if err != nil {
			return nil, nil, fmt.Errorf("app: postgres: %w", err)
		}
		return s, s.Close, nil
	default:
		s, err := semantic.New(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("app: qdrant: %w", err)
		}
		return s, func() { s.Close() }, nil
	}
}
