package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/galkinart-netizen/tg-bot-911/internal/channels/telegram"
	"github.com/galkinart-netizen/tg-bot-911/internal/config"
	"github.com/galkinart-netizen/tg-bot-911/internal/dispatch"
	"github.com/galkinart-netizen/tg-bot-911/internal/store"
	"github.com/galkinart-netizen/tg-bot-911/internal/survey"
	"github.com/galkinart-netizen/tg-bot-911/internal/tracing"
)

func runBot() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Telegram.Token == "" {
		fmt.Println("Telegram bot token is not set.")
		fmt.Println()
		fmt.Println("  export BOT_TOKEN=<token from @BotFather>")
		fmt.Println()
		fmt.Println("Or add it to config.json under telegram.token.")
		os.Exit(1)
	}
	if !cfg.HasAnyProvider() {
		slog.Warn("no AI provider API key configured; documents will be accepted but not analysed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	registry := buildProviders(ctx, cfg)

	stores, err := openStores(ctx, store.StoreConfig{
		Driver:     cfg.Conclusions.Driver,
		DSN:        cfg.Conclusions.DSN,
		SQLitePath: cfg.Conclusions.SQLitePath,
	})
	if err != nil {
		slog.Error("failed to open conclusion store", "driver", cfg.Conclusions.Driver, "error", err)
		os.Exit(1)
	}
	slog.Info("conclusion store ready", "driver", cfg.Conclusions.Driver)

	if days := cfg.Conclusions.RetentionDays; days > 0 {
		ret, err := store.NewRetention(stores.Conclusions, time.Duration(days)*24*time.Hour, cfg.Conclusions.PurgeSchedule)
		if err != nil {
			slog.Warn("conclusion retention disabled", "error", err)
		} else {
			go ret.Run(ctx)
			slog.Info("conclusion retention enabled", "days", days, "schedule", ret.Schedule)
		}
	}

	ch, err := telegram.New(cfg.Telegram)
	if err != nil {
		slog.Error("failed to create telegram channel", "error", err)
		os.Exit(1)
	}

	engine := dispatch.New(ch, registry, stores.Conclusions, dispatch.Options{
		Delay:          cfg.Batch.Delay(),
		TimerProvider:  cfg.Batch.TimerProvider,
		MaxOutputChars: cfg.Batch.MaxOutputChars,
		DownloadLimit:  cfg.Batch.DownloadLimit,
		MaxImageSide:   cfg.Batch.MaxImageSide,
		Progress: dispatch.ProgressOptions{
			Step:     cfg.Progress.Step,
			Cap:      cfg.Progress.Cap,
			Interval: cfg.Progress.Interval(),
			Hold:     cfg.Progress.Hold(),
		},
	})

	ch.Attach(engine, survey.NewFlow(survey.Active(cfg.Survey.Questions), buildRecorder(ctx, cfg.Survey)))

	if err := ch.Start(ctx); err != nil {
		slog.Error("failed to start telegram channel", "error", err)
		os.Exit(1)
	}
	slog.Info("bot running",
		"providers", engine.Providers(),
		"batch_delay", engine.Delay(),
		"timer_provider", cfg.Batch.TimerProvider,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("graceful shutdown initiated", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := ch.Stop(shutdownCtx); err != nil {
		slog.Warn("telegram stop failed", "error", err)
	}
	engine.Close()
	cancel()

	if err := stores.Close(); err != nil {
		slog.Warn("conclusion store close failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Warn("tracing shutdown failed", "error", err)
	}
	slog.Info("bot stopped")
}

// buildRecorder returns the spreadsheet recorder, or nil when the sheet is
// not configured or unreachable. The questionnaire runs either way.
func buildRecorder(ctx context.Context, cfg config.SurveyConfig) survey.Recorder {
	if cfg.SheetID == "" {
		slog.Info("survey spreadsheet not configured; answers are not recorded")
		return nil
	}
	rec, err := survey.NewSheetsRecorder(ctx, cfg.SheetID, cfg.CredentialsFile)
	if err != nil {
		slog.Warn("survey spreadsheet unavailable; answers are not recorded", "error", err)
		return nil
	}
	slog.Info("survey spreadsheet connected", "sheet_id", cfg.SheetID)
	return rec
}
