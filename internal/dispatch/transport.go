package dispatch

import "context"

// MessageRef identifies a sent message so it can be edited or deleted.
type MessageRef struct {
	Destination string
	MessageID   int
}

// Markup selects the keyboard attached to an outgoing message.
type Markup int

const (
	MarkupNone Markup = iota
	MarkupMainMenu
	MarkupProviderChoice
)

// SendOptions controls rendering of an outgoing message.
type SendOptions struct {
	HTML      bool
	Markup    Markup
	Providers []string // buttons for MarkupProviderChoice, in order
}

// Transport is the messaging surface the engine needs.
// Destination and content references are opaque to the engine.
type Transport interface {
	SendMessage(ctx context.Context, destination, text string, opts SendOptions) (MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, text string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	DownloadContent(ctx context.Context, contentRef string) ([]byte, error)
}
