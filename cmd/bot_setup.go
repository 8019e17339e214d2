package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/galkinart-netizen/tg-bot-911/internal/config"
	"github.com/galkinart-netizen/tg-bot-911/internal/providers"
	"github.com/galkinart-netizen/tg-bot-911/internal/store"
	"github.com/galkinart-netizen/tg-bot-911/internal/store/memory"
	"github.com/galkinart-netizen/tg-bot-911/internal/store/sqlstore"
)

func buildProviders(ctx context.Context, cfg *config.Config) *providers.Registry {
	registry := providers.NewRegistry()
	p := cfg.Providers

	if p.Groq.APIKey != "" {
		registry.Register(providers.NewGroqProvider(p.Groq.APIKey, p.Groq.APIBase, p.Groq.VisionModel, p.Groq.TextModel))
		slog.Info("registered provider", "name", providers.NameGroq)
	}

	if p.OpenAI.APIKey != "" {
		registry.Register(providers.NewOpenAIDefault(p.OpenAI.APIKey, p.OpenAI.APIBase, p.OpenAI.VisionModel, p.OpenAI.TextModel))
		slog.Info("registered provider", "name", providers.NameOpenAI)
	}

	if p.Gemini.APIKey != "" {
		gemini, err := providers.NewGeminiProvider(ctx, p.Gemini.APIKey, p.Gemini.APIBase, p.Gemini.VisionModel, p.Gemini.TextModel, nil)
		if err != nil {
			slog.Warn("gemini provider disabled", "error", err)
		} else {
			registry.Register(gemini)
			slog.Info("registered provider", "name", providers.NameGemini)
		}
	}

	return registry
}

// openStores opens the conclusion backend selected by cfg.Driver.
func openStores(ctx context.Context, cfg store.StoreConfig) (*store.Stores, error) {
	switch cfg.Driver {
	case "", "memory":
		return &store.Stores{
			Conclusions: memory.NewConclusionStore(),
			Close:       func() error { return nil },
		}, nil
	case sqlstore.DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = config.ExpandHome(cfg.SQLitePath)
		}
		return openSQLStores(ctx, cfg.Driver, dsn)
	case sqlstore.DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres driver requires TGBOT_CONCLUSIONS_DSN")
		}
		return openSQLStores(ctx, cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown conclusions driver %q", cfg.Driver)
	}
}

func openSQLStores(ctx context.Context, driver, dsn string) (*store.Stores, error) {
	db, err := sqlstore.OpenDB(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	return &store.Stores{
		Conclusions: sqlstore.NewConclusionStore(db),
		Close:       db.Close,
	}, nil
}
