package config

// TelegramConfig configures the Telegram Bot API connection.
type TelegramConfig struct {
	Token         string              `json:"token"`
	Proxy         string              `json:"proxy,omitempty"`
	AllowFrom     FlexibleStringSlice `json:"allow_from,omitempty"`      // empty = everyone
	MediaMaxBytes int64               `json:"media_max_bytes,omitempty"` // max media download size in bytes (default 20MB)
	EditsPerSec   float64             `json:"edits_per_sec,omitempty"`   // message edit budget shared by all chats (default 20)
}

// ProvidersConfig maps provider name to its config.
type ProvidersConfig struct {
	Groq   ProviderConfig `json:"groq"`
	OpenAI ProviderConfig `json:"openai"`
	Gemini ProviderConfig `json:"gemini"`
}

type ProviderConfig struct {
	APIKey      string `json:"api_key"`
	APIBase     string `json:"api_base,omitempty"`
	VisionModel string `json:"vision_model,omitempty"`
	TextModel   string `json:"text_model,omitempty"`
}

// HasAnyProvider returns true if at least one provider has an API key configured.
func (c *Config) HasAnyProvider() bool {
	p := c.Providers
	return p.Groq.APIKey != "" ||
		p.OpenAI.APIKey != "" ||
		p.Gemini.APIKey != ""
}
