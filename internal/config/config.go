package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleStringSlice accepts both ["str"] and [123] in JSON.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root configuration for the bot process.
// It is read once at startup and treated as read-only afterwards.
type Config struct {
	Telegram    TelegramConfig    `json:"telegram"`
	Providers   ProvidersConfig   `json:"providers"`
	Batch       BatchConfig       `json:"batch"`
	Progress    ProgressConfig    `json:"progress"`
	Conclusions ConclusionsConfig `json:"conclusions"`
	Survey      SurveyConfig      `json:"survey"`
	Telemetry   TelemetryConfig   `json:"telemetry,omitempty"`
}

// BatchConfig controls document collection and dispatch.
type BatchConfig struct {
	DelaySec       int    `json:"delay_sec"`                  // quiet period before a batch is dispatched (default 10)
	MaxOutputChars int    `json:"max_output_chars"`           // provider output cap before formatting (default 4000)
	TimerProvider  string `json:"timer_provider,omitempty"`   // preference used when the debounce timer fires ("" = automatic)
	DownloadLimit  int    `json:"download_limit,omitempty"`   // max parallel downloads per dispatch (default 4)
	MaxImageSide   int    `json:"max_image_side,omitempty"`   // downscale images larger than this (default 2048, 0 keeps default)
}

// Delay returns the debounce delay as a duration.
func (b BatchConfig) Delay() time.Duration {
	if b.DelaySec <= 0 {
		return DefaultBatchDelaySec * time.Second
	}
	return time.Duration(b.DelaySec) * time.Second
}

// ProgressConfig controls the progress bar shown while a dispatch is running.
type ProgressConfig struct {
	Step       int `json:"step"`                  // percent added per tick (default 6)
	Cap        int `json:"cap"`                   // highest percent shown before completion (default 95)
	IntervalMS int `json:"interval_ms,omitempty"` // tick interval (default 1000)
	HoldMS     int `json:"hold_ms,omitempty"`     // how long 100% stays visible before deletion (default 300)
}

// Interval returns the tick interval.
func (p ProgressConfig) Interval() time.Duration {
	if p.IntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(p.IntervalMS) * time.Millisecond
}

// Hold returns how long the completed bar is displayed.
func (p ProgressConfig) Hold() time.Duration {
	if p.HoldMS <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(p.HoldMS) * time.Millisecond
}

// ConclusionsConfig selects where the last conclusion per user is kept.
// DSN is NEVER read from config.json (may contain a password); only from env TGBOT_CONCLUSIONS_DSN.
type ConclusionsConfig struct {
	Driver        string `json:"driver,omitempty"`         // "memory" (default), "sqlite", "postgres"
	DSN           string `json:"-"`                        // from env TGBOT_CONCLUSIONS_DSN only
	SQLitePath    string `json:"sqlite_path,omitempty"`    // used when driver is "sqlite" and DSN is empty
	RetentionDays int    `json:"retention_days,omitempty"` // purge conclusions older than this (0 = keep)
	PurgeSchedule string `json:"purge_schedule,omitempty"` // cron expression for the purge (default "17 3 * * *")
}

// SurveyConfig configures the onboarding questionnaire and its spreadsheet.
type SurveyConfig struct {
	Questions       int    `json:"questions,omitempty"` // number of active questions (default 5, clamped to the full list)
	SheetID         string `json:"sheet_id,omitempty"`
	CredentialsFile string `json:"credentials_file,omitempty"` // service account JSON (default "credentials.json")
}

// TelemetryConfig configures OpenTelemetry export for dispatch spans.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext transport for local collectors
	ServiceName string            `json:"service_name,omitempty"` // default "tg-bot-911"
	Headers     map[string]string `json:"headers,omitempty"`
}
