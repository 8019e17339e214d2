package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const GeminiDefaultModel = "gemini-2.0-flash"

// GeminiProvider implements Provider on the Gemini API via the genai SDK.
// It is the last fallback in automatic mode.
type GeminiProvider struct {
	client      *genai.Client
	visionModel string
	textModel   string
}

// NewGeminiProvider builds a Gemini client. httpClient may be nil.
func NewGeminiProvider(ctx context.Context, apiKey, apiBase, visionModel, textModel string, httpClient *http.Client) (*GeminiProvider, error) {
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if apiBase != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: apiBase}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if visionModel == "" {
		visionModel = GeminiDefaultModel
	}
	if textModel == "" {
		textModel = GeminiDefaultModel
	}
	return &GeminiProvider{client: client, visionModel: visionModel, textModel: textModel}, nil
}

func (p *GeminiProvider) Name() string { return NameGemini }

func (p *GeminiProvider) CompleteText(ctx context.Context, req TextRequest) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(req.Input)}, genai.RoleUser),
	}
	return p.generate(ctx, p.textModel, req.System, contents, req.MaxTokens)
}

func (p *GeminiProvider) CompleteImageBatch(ctx context.Context, req ImageBatchRequest) (string, error) {
	return p.generate(ctx, p.visionModel, req.System, buildGeminiContents(req), req.MaxTokens)
}

// buildGeminiContents mirrors the OpenAI layout: instruction first, then images in order.
func buildGeminiContents(req ImageBatchRequest) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Images)+1)
	parts = append(parts, genai.NewPartFromText(req.Instruction))
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MimeType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (p *GeminiProvider) generate(ctx context.Context, model, system string, contents []*genai.Content, maxTokens int) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
