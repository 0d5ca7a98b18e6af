package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	openai "github.com/sashabaranov/go-openai"

	"github.com/meikuraledutech/chatflow"
	"github.com/meikuraledutech/chatflow/assistant"
	"github.com/meikuraledutech/chatflow/config"
	"github.com/meikuraledutech/chatflow/editor"
	"github.com/meikuraledutech/chatflow/httpapi"
	"github.com/meikuraledutech/chatflow/memory"
	"github.com/meikuraledutech/chatflow/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.Logger()

	if !cfg.HasAPIKey() {
		logger.Warn("assistant API key missing, serving placeholder", "env", config.APIKeyEnv)
		log.Fatal(httpapi.Placeholder().Listen(cfg.Addr()))
	}

	ctx := context.Background()

	var store chatflow.Store = memory.New()
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
		logger.Info("using postgres store")
	}
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	model, err := newModel(cfg.Assistant)
	if err != nil {
		log.Fatalf("assistant: %v", err)
	}
	chat := assistant.NewChat(model,
		assistant.WithMaxRounds(cfg.Assistant.MaxRounds),
		assistant.WithLogger(logger),
	)

	srv := httpapi.New(editor.NewRegistry(store, logger),
		httpapi.WithChat(chat),
		httpapi.WithHTTPClient(&http.Client{Timeout: cfg.Executor.HTTPTimeout}),
		httpapi.WithLogger(logger),
	)

	logger.Info("listening", "addr", cfg.Addr(), "provider", cfg.Assistant.Provider)
	log.Fatal(srv.App().Listen(cfg.Addr()))
}

func newModel(cfg config.AssistantConfig) (assistant.Model, error) {
	switch cfg.Provider {
	case config.ProviderLangchain:
		return assistant.NewLangchainOpenAI(cfg.APIKey, cfg.Model)
	default:
		return assistant.NewOpenAIModel(openai.NewClient(cfg.APIKey), cfg.Model), nil
	}
}
