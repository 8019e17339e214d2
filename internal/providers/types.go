package providers

import (
	"context"
	"errors"
)

// Provider names, in fallback priority order.
const (
	NameGroq   = "groq"
	NameOpenAI = "openai"
	NameGemini = "gemini"
)

var (
	// ErrNotConfigured is returned when no provider is available for the requested preference.
	ErrNotConfigured = errors.New("no provider configured")

	// ErrEmptyResponse marks a provider call that succeeded but produced no text.
	ErrEmptyResponse = errors.New("empty response")
)

// Provider is the interface every vision/text backend implements.
type Provider interface {
	// Name returns the provider identifier (e.g. "groq", "openai").
	Name() string

	// CompleteText answers a plain-text request.
	CompleteText(ctx context.Context, req TextRequest) (string, error)

	// CompleteImageBatch sends all images of one batch in a single request.
	CompleteImageBatch(ctx context.Context, req ImageBatchRequest) (string, error)
}

// TextRequest is the input for CompleteText.
type TextRequest struct {
	System    string
	Input     string
	MaxTokens int
}

// ImageBatchRequest is the input for CompleteImageBatch.
// Images are sent in slice order.
type ImageBatchRequest struct {
	System      string
	Instruction string
	Images      []ImageContent
	MaxTokens   int
}

// ImageContent is one raw image with its MIME type.
type ImageContent struct {
	MimeType string // e.g. "image/jpeg"
	Data     []byte
}
