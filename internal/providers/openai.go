package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	GroqDefaultBase        = "https://api.groq.com/openai/v1"
	GroqDefaultVisionModel = "meta-llama/llama-4-scout-17b-16e-instruct"
	GroqDefaultTextModel   = "llama-3.3-70b-versatile"

	OpenAIDefaultBase        = "https://api.openai.com/v1"
	OpenAIDefaultVisionModel = "gpt-4o"
	OpenAIDefaultTextModel   = "gpt-4o-mini"
)

// OpenAIProvider implements Provider for OpenAI-compatible chat completion APIs
// (OpenAI, Groq).
type OpenAIProvider struct {
	name        string
	apiKey      string
	apiBase     string
	chatPath    string // defaults to "/chat/completions"
	visionModel string
	textModel   string
	client      *http.Client
}

func NewOpenAIProvider(name, apiKey, apiBase, visionModel, textModel string) *OpenAIProvider {
	if apiBase == "" {
		apiBase = OpenAIDefaultBase
	}
	apiBase = strings.TrimRight(apiBase, "/")

	return &OpenAIProvider{
		name:        name,
		apiKey:      apiKey,
		apiBase:     apiBase,
		chatPath:    "/chat/completions",
		visionModel: visionModel,
		textModel:   textModel,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// NewGroqProvider returns an OpenAIProvider pointed at Groq's compatible endpoint.
func NewGroqProvider(apiKey, apiBase, visionModel, textModel string) *OpenAIProvider {
	if apiBase == "" {
		apiBase = GroqDefaultBase
	}
	if visionModel == "" {
		visionModel = GroqDefaultVisionModel
	}
	if textModel == "" {
		textModel = GroqDefaultTextModel
	}
	return NewOpenAIProvider(NameGroq, apiKey, apiBase, visionModel, textModel)
}

// NewOpenAIDefault returns an OpenAIProvider for api.openai.com with default models applied.
func NewOpenAIDefault(apiKey, apiBase, visionModel, textModel string) *OpenAIProvider {
	if visionModel == "" {
		visionModel = OpenAIDefaultVisionModel
	}
	if textModel == "" {
		textModel = OpenAIDefaultTextModel
	}
	return NewOpenAIProvider(NameOpenAI, apiKey, apiBase, visionModel, textModel)
}

// WithHTTPClient replaces the HTTP client (proxies, tests).
func (p *OpenAIProvider) WithHTTPClient(c *http.Client) *OpenAIProvider {
	p.client = c
	return p
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) CompleteText(ctx context.Context, req TextRequest) (string, error) {
	msgs := []map[string]interface{}{
		{"role": "system", "content": req.System},
		{"role": "user", "content": req.Input},
	}
	return p.complete(ctx, p.textModel, msgs, req.MaxTokens)
}

func (p *OpenAIProvider) CompleteImageBatch(ctx context.Context, req ImageBatchRequest) (string, error) {
	return p.complete(ctx, p.visionModel, buildVisionMessages(req), req.MaxTokens)
}

// buildVisionMessages puts the instruction text first, then every image as a
// data: URL part in batch order.
func buildVisionMessages(req ImageBatchRequest) []map[string]interface{} {
	parts := make([]map[string]interface{}, 0, len(req.Images)+1)
	parts = append(parts, map[string]interface{}{
		"type": "text",
		"text": req.Instruction,
	})
	for _, img := range req.Images {
		parts = append(parts, map[string]interface{}{
			"type": "image_url",
			"image_url": map[string]interface{}{
				"url": fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data)),
			},
		})
	}
	return []map[string]interface{}{
		{"role": "system", "content": req.System},
		{"role": "user", "content": parts},
	}
}

func (p *OpenAIProvider) complete(ctx context.Context, model string, msgs []map[string]interface{}, maxTokens int) (string, error) {
	body := map[string]interface{}{
		"model":    model,
		"messages": msgs,
	}
	if maxTokens > 0 {
		body["max_tokens"] = maxTokens
	}

	respBody, err := p.doRequest(ctx, body)
	if err != nil {
		return "", err
	}
	defer respBody.Close()

	var oaiResp openAIResponse
	if err := json.NewDecoder(respBody).Decode(&oaiResp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(oaiResp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(oaiResp.Choices[0].Message.Content), nil
}

func (p *OpenAIProvider) doRequest(ctx context.Context, body interface{}) (io.ReadCloser, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", p.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.apiBase+p.chatPath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", p.name, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		retryAfter := ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &HTTPError{
			Status:     resp.StatusCode,
			Body:       fmt.Sprintf("%s: %s", p.name, string(respBody)),
			RetryAfter: retryAfter,
		}
	}

	return resp.Body, nil
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
