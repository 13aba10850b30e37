// Package app wires configuration into the running service: database pool,
// vector store, providers, retriever, router and the advisor.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexuslab/nexus/db"
	"github.com/nexuslab/nexus/internal/advisor"
	"github.com/nexuslab/nexus/internal/config"
	"github.com/nexuslab/nexus/internal/embedding"
	"github.com/nexuslab/nexus/internal/knowledge"
	"github.com/nexuslab/nexus/internal/llm"
	"github.com/nexuslab/nexus/internal/log"
	"github.com/nexuslab/nexus/internal/rag"
	"github.com/nexuslab/nexus/internal/router"
	"github.com/nexuslab/nexus/internal/session"
)

// Provider endpoints for the web-search-capable chain.
const (
	perplexityURL = "https://api.perplexity.ai/chat/completions"
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
)

// App is the application container.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Pool     *pgxpool.Pool    // nil when the store is unavailable
	Store    *knowledge.Store // nil when the store is unavailable
	Sessions *session.Manager
	Advisor  *advisor.Advisor

	ChatChain   *llm.Chain
	SearchChain *llm.Chain
}

// Setup builds the application from configuration.
//
// An unreachable vector store is not fatal: the service starts without it
// and retrieval degrades to empty context, per the turn-level failure
// policy. Everything else is constructed unconditionally.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Sessions: session.NewManager(),
	}

	a.connectStore(ctx)

	embedder := embedding.New(cfg.OllamaHost, cfg.EmbedderModel, cfg.EmbedTimeout)
	retriever := rag.New(embedder, storeOrNil(a.Store), cfg.TopK, logger.With("component", "retriever"))

	helper := llm.NewOllama(cfg.OllamaHost, cfg.HelperModel, cfg.ProviderTimeout)
	rt := router.New(helper, logger.With("component", "router"))

	generator := llm.NewOllama(cfg.OllamaHost, cfg.GenerationModel, cfg.ProviderTimeout)
	a.ChatChain = llm.NewChain(logger.With("chain", "chat"), generator)

	perplexity := llm.NewOpenAICompat("perplexity", perplexityURL, cfg.PerplexityAPIKey, cfg.PerplexityModel, cfg.ProviderTimeout)
	openRouter := llm.NewOpenAICompat("openrouter", openRouterURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.ProviderTimeout)
	a.SearchChain = llm.NewChain(logger.With("chain", "search"), perplexity, openRouter)

	a.Advisor = advisor.New(rt, retriever, a.ChatChain, a.SearchChain, logger.With("component", "advisor"))

	return a, nil
}

// connectStore attempts to connect to Postgres and run migrations. On any
// failure the store stays nil and the service runs without retrieval.
func (a *App) connectStore(ctx context.Context) {
	cfg := a.Config
	if cfg.DatabaseURL == "" {
		a.Logger.Warn("no database URL configured, running without vector store")
		return
	}

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		a.Logger.Warn("vector store unavailable, running without retrieval", "error", err)
		return
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		a.Logger.Warn("vector store unavailable, running without retrieval", "error", err)
		return
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		a.Logger.Warn("vector store unavailable, running without retrieval", "error", err)
		return
	}

	a.Pool = pool
	a.Store = knowledge.New(knowledge.NewPoolQuerier(pool), cfg.Collection, a.Logger.With("component", "knowledge"))
	a.Logger.Info("connected to vector store", "collection", cfg.Collection)
}

// storeOrNil converts a possibly-nil *knowledge.Store into the retriever's
// Searcher interface without producing a typed nil.
func storeOrNil(s *knowledge.Store) rag.Searcher {
	if s == nil {
		return nil
	}
	return s
}

// Close releases application resources.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
	}
	return nil
}

// Describe returns a short human-readable summary for startup logging.
func (a *App) Describe() string {
	store := "disconnected"
	if a.Store != nil {
		store = "connected"
	}
	return fmt.Sprintf("store=%s chat_configured=%t search_configured=%t",
		store, a.ChatChain.Configured(), a.SearchChain.Configured())
}
