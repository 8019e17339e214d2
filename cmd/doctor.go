package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/galkinart-netizen/tg-bot-911/internal/config"
	"github.com/galkinart-netizen/tg-bot-911/internal/store"
	"github.com/galkinart-netizen/tg-bot-911/internal/survey"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("tg-bot-911 doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	// Config
	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults and env)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  Telegram:")
	fmt.Printf("    %-12s %s\n", "Token:", maskKey(cfg.Telegram.Token))
	if cfg.Telegram.Proxy != "" {
		fmt.Printf("    %-12s %s\n", "Proxy:", cfg.Telegram.Proxy)
	}
	if len(cfg.Telegram.AllowFrom) > 0 {
		fmt.Printf("    %-12s %d entries\n", "Allowlist:", len(cfg.Telegram.AllowFrom))
	} else {
		fmt.Printf("    %-12s everyone\n", "Allowlist:")
	}

	fmt.Println()
	fmt.Println("  Providers:")
	checkProvider("Groq", cfg.Providers.Groq.APIKey)
	checkProvider("OpenAI", cfg.Providers.OpenAI.APIKey)
	checkProvider("Gemini", cfg.Providers.Gemini.APIKey)
	timer := cfg.Batch.TimerProvider
	if timer == "" {
		timer = "auto"
	}
	fmt.Printf("    %-12s %s after %s\n", "Timer:", timer, cfg.Batch.Delay())

	fmt.Println()
	fmt.Println("  Conclusions:")
	fmt.Printf("    %-12s %s\n", "Driver:", cfg.Conclusions.Driver)
	stores, err := openStores(context.Background(), store.StoreConfig{
		Driver:     cfg.Conclusions.Driver,
		DSN:        cfg.Conclusions.DSN,
		SQLitePath: cfg.Conclusions.SQLitePath,
	})
	if err != nil {
		fmt.Printf("    %-12s FAILED (%s)\n", "Status:", err)
	} else {
		fmt.Printf("    %-12s OK\n", "Status:")
		stores.Close()
	}
	if cfg.Conclusions.RetentionDays > 0 {
		fmt.Printf("    %-12s %d days (%s)\n", "Retention:", cfg.Conclusions.RetentionDays, cfg.Conclusions.PurgeSchedule)
	}

	fmt.Println()
	fmt.Println("  Survey:")
	fmt.Printf("    %-12s %d\n", "Questions:", len(survey.Active(cfg.Survey.Questions)))
	if cfg.Survey.SheetID == "" {
		fmt.Printf("    %-12s (not configured)\n", "Sheet:")
	} else {
		fmt.Printf("    %-12s %s\n", "Sheet:", cfg.Survey.SheetID)
		creds := cfg.Survey.CredentialsFile
		if strings.HasPrefix(strings.TrimSpace(creds), "{") {
			fmt.Printf("    %-12s inline JSON\n", "Credentials:")
		} else if _, err := os.Stat(creds); err != nil {
			fmt.Printf("    %-12s %s (NOT FOUND)\n", "Credentials:", creds)
		} else {
			fmt.Printf("    %-12s %s (OK)\n", "Credentials:", creds)
		}
	}

	if cfg.Telemetry.Enabled {
		fmt.Println()
		fmt.Println("  Telemetry:")
		fmt.Printf("    %-12s %s (%s)\n", "Endpoint:", cfg.Telemetry.Endpoint, cfg.Telemetry.Protocol)
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkProvider(name, apiKey string) {
	if apiKey != "" {
		fmt.Printf("    %-12s %s\n", name+":", maskKey(apiKey))
	} else {
		fmt.Printf("    %-12s (not configured)\n", name+":")
	}
}

// maskKey keeps the first and last four characters of a secret.
func maskKey(key string) string {
	if key == "" {
		return "(not configured)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
