// Package batch collects documents per user and decides when a batch is ready.
package batch

import "sync"

// Document is one submitted file: an opaque transport handle plus its MIME type.
type Document struct {
	ContentRef string
	MimeType   string
}

// Batch is everything a user submitted since the last drain.
type Batch struct {
	Destination string
	Docs        []Document
}

// Accumulator buffers pending documents keyed by user ID.
// A batch is created on the first Append after a drain and removed whole by Drain.
type Accumulator struct {
	mu      sync.Mutex
	pending map[string]*Batch
}

func NewAccumulator() *Accumulator {
	return &Accumulator{pending: make(map[string]*Batch)}
}

// Append adds doc to the user's batch and returns the new size.
// The destination always tracks the latest value seen.
func (a *Accumulator) Append(userID, destination string, doc Document) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.pending[userID]
	if !ok {
		b = &Batch{}
		a.pending[userID] = b
	}
	b.Destination = destination
	b.Docs = append(b.Docs, doc)
	return len(b.Docs)
}

// Drain removes and returns the user's batch. ok is false when nothing is pending.
func (a *Accumulator) Drain(userID string) (Batch, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, ok := a.pending[userID]
	if !ok || len(b.Docs) == 0 {
		delete(a.pending, userID)
		return Batch{}, false
	}
	delete(a.pending, userID)
	return *b, true
}

// Clear discards the user's batch without processing it.
func (a *Accumulator) Clear(userID string) {
	a.mu.Lock()
	delete(a.pending, userID)
	a.mu.Unlock()
}

// Len returns how many documents are pending for the user.
func (a *Accumulator) Len(userID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.pending[userID]; ok {
		return len(b.Docs)
	}
	return 0
}

// Peek returns a copy of the user's batch without removing it.
func (a *Accumulator) Peek(userID string) (Batch, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.pending[userID]
	if !ok || len(b.Docs) == 0 {
		return Batch{}, false
	}
	docs := make([]Document, len(b.Docs))
	copy(docs, b.Docs)
	return Batch{Destination: b.Destination, Docs: docs}, true
}
