package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/galkinart-netizen/tg-bot-911/internal/providers"
)

type sentMessage struct {
	Ref  MessageRef
	Text string
	Opts SendOptions
}

type editedMessage struct {
	Ref  MessageRef
	Text string
}

// fakeTransport records everything the engine does to the chat.
type fakeTransport struct {
	mu       sync.Mutex
	nextID   int
	sent     []sentMessage
	edits    []editedMessage
	deleted  []MessageRef
	content  map[string][]byte
	failHTML bool

	failEdits    bool // record edits, then report an error
	failProgress bool // refuse to send the progress placeholder
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{content: make(map[string][]byte)}
}

func (f *fakeTransport) SendMessage(_ context.Context, dest, text string, opts SendOptions) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if opts.HTML && f.failHTML {
		return MessageRef{}, fmt.Errorf("bad html")
	}
	if f.failProgress && strings.HasPrefix(text, textProgressTitle) {
		return MessageRef{}, fmt.Errorf("flood wait")
	}
	f.nextID++
	ref := MessageRef{Destination: dest, MessageID: f.nextID}
	f.sent = append(f.sent, sentMessage{Ref: ref, Text: text, Opts: opts})
	return ref, nil
}

func (f *fakeTransport) EditMessage(_ context.Context, ref MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedMessage{Ref: ref, Text: text})
	if f.failEdits {
		return fmt.Errorf("message is not modified")
	}
	return nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeTransport) DownloadContent(_ context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.content[ref]
	if !ok {
		return nil, fmt.Errorf("no content %q", ref)
	}
	return data, nil
}

func (f *fakeTransport) put(ref string) {
	f.mu.Lock()
	f.content[ref] = []byte("data-" + ref)
	f.mu.Unlock()
}

func (f *fakeTransport) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Text
	}
	return out
}

func (f *fakeTransport) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeTransport) editTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.edits))
	for i, e := range f.edits {
		out[i] = e.Text
	}
	return out
}

func (f *fakeTransport) deletedRefs() []MessageRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MessageRef(nil), f.deleted...)
}

// fakeProvider answers with a fixed text or error and records image batches.
type fakeProvider struct {
	name string
	text string
	err  error

	mu      sync.Mutex
	batches []providers.ImageBatchRequest
	texts   []providers.TextRequest
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) CompleteText(_ context.Context, req providers.TextRequest) (string, error) {
	p.mu.Lock()
	p.texts = append(p.texts, req)
	p.mu.Unlock()
	return p.text, p.err
}

func (p *fakeProvider) CompleteImageBatch(_ context.Context, req providers.ImageBatchRequest) (string, error) {
	p.mu.Lock()
	p.batches = append(p.batches, req)
	p.mu.Unlock()
	return p.text, p.err
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches) + len(p.texts)
}

func (p *fakeProvider) batch(i int) providers.ImageBatchRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.batches[i]
}

func refName(i int) string { return "file-" + strconv.Itoa(i) }
