package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

const (
	DefaultBatchDelaySec   = 10
	DefaultMaxOutputChars  = 4000
	DefaultSurveyQuestions = 5
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Batch: BatchConfig{
			DelaySec:       DefaultBatchDelaySec,
			MaxOutputChars: DefaultMaxOutputChars,
			DownloadLimit:  4,
			MaxImageSide:   2048,
		},
		Progress: ProgressConfig{
			Step:       6,
			Cap:        95,
			IntervalMS: 1000,
			HoldMS:     300,
		},
		Conclusions: ConclusionsConfig{
			Driver:        "memory",
			SQLitePath:    "~/.tgbot/conclusions.db",
			PurgeSchedule: "17 3 * * *",
		},
		Survey: SurveyConfig{
			Questions:       DefaultSurveyQuestions,
			CredentialsFile: "credentials.json",
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "tg-bot-911",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: defaults plus env are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}

	envStr("BOT_TOKEN", &c.Telegram.Token)
	envStr("TGBOT_PROXY", &c.Telegram.Proxy)
	if v := os.Getenv("TGBOT_ALLOW_FROM"); v != "" {
		c.Telegram.AllowFrom = strings.Split(v, ",")
	}

	envStr("GROQ_API_KEY", &c.Providers.Groq.APIKey)
	envStr("OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("GEMINI_API_KEY", &c.Providers.Gemini.APIKey)

	envInt("TGBOT_BATCH_DELAY_SEC", &c.Batch.DelaySec)
	envInt("TGBOT_MAX_OUTPUT_CHARS", &c.Batch.MaxOutputChars)
	envStr("TGBOT_TIMER_PROVIDER", &c.Batch.TimerProvider)
	envInt("TGBOT_PROGRESS_STEP", &c.Progress.Step)
	envInt("TGBOT_PROGRESS_CAP", &c.Progress.Cap)

	envStr("TGBOT_CONCLUSIONS_DRIVER", &c.Conclusions.Driver)
	envStr("TGBOT_CONCLUSIONS_DSN", &c.Conclusions.DSN)
	envInt("TGBOT_CONCLUSIONS_RETENTION_DAYS", &c.Conclusions.RetentionDays)

	envStr("GOOGLE_SHEET_ID", &c.Survey.SheetID)
	envStr("GOOGLE_CREDENTIALS_JSON", &c.Survey.CredentialsFile)

	envStr("TGBOT_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("TGBOT_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("TGBOT_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("TGBOT_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("TGBOT_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}
}

// applyDefaults repairs values a config file may have zeroed or pushed out of range.
func (c *Config) applyDefaults() {
	if c.Batch.DelaySec <= 0 {
		c.Batch.DelaySec = DefaultBatchDelaySec
	}
	if c.Batch.MaxOutputChars <= 0 {
		c.Batch.MaxOutputChars = DefaultMaxOutputChars
	}
	if c.Batch.DownloadLimit <= 0 {
		c.Batch.DownloadLimit = 4
	}
	if c.Progress.Step <= 0 {
		c.Progress.Step = 6
	}
	if c.Progress.Cap <= 0 || c.Progress.Cap >= 100 {
		c.Progress.Cap = 95
	}
	if c.Survey.Questions <= 0 {
		c.Survey.Questions = DefaultSurveyQuestions
	}
	if c.Conclusions.Driver == "" {
		c.Conclusions.Driver = "memory"
	}
	c.Batch.TimerProvider = strings.ToLower(strings.TrimSpace(c.Batch.TimerProvider))
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
