// Package dispatch turns a user's pending documents into one provider call
// and delivers the formatted result.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/galkinart-netizen/tg-bot-911/internal/batch"
	"github.com/galkinart-netizen/tg-bot-911/internal/media"
	"github.com/galkinart-netizen/tg-bot-911/internal/providers"
	"github.com/galkinart-netizen/tg-bot-911/internal/store"
)

// ErrNoProviders is reported when the dispatch preference resolves to no provider.
var ErrNoProviders = errors.New("no provider available")

// ErrNothingLoaded is reported when every document in a batch failed to download.
var ErrNothingLoaded = errors.New("no document could be downloaded")

const tracerName = "github.com/galkinart-netizen/tg-bot-911/internal/dispatch"

// Options configure an Engine. Zero values take defaults.
type Options struct {
	Delay          time.Duration // debounce delay (default 10s)
	TimerProvider  string        // preference used when the debounce timer fires ("" = automatic)
	MaxOutputChars int           // default 4000
	DownloadLimit  int           // parallel downloads per dispatch (default 4)
	MaxImageSide   int           // default media.DefaultMaxSide
	Progress       ProgressOptions
}

// Outcome summarises one dispatch attempt.
type Outcome struct {
	ID       string
	State    State // StateIdle when there was nothing to dispatch
	Provider string
	Docs     int
	Err      error
}

// DoneAction tells the caller what a "done" phrase led to.
type DoneAction int

const (
	DoneNoBatch DoneAction = iota
	DoneDispatched
)

// DoneResult is returned by OnDoneSignal.
type DoneResult struct {
	Action  DoneAction
	Outcome Outcome // for DoneDispatched
}

// Engine owns pending batches, their timers and the dispatch pipeline.
type Engine struct {
	transport   Transport
	registry    *providers.Registry
	conclusions store.ConclusionStore
	opts        Options

	acc   *batch.Accumulator
	sched *batch.Scheduler

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	now func() time.Time
}

func New(t Transport, reg *providers.Registry, conclusions store.ConclusionStore, opts Options) *Engine {
	if opts.Delay <= 0 {
		opts.Delay = batch.DefaultDelay
	}
	if opts.MaxOutputChars <= 0 {
		opts.MaxOutputChars = DefaultMaxOutputChars
	}
	if opts.DownloadLimit <= 0 {
		opts.DownloadLimit = 4
	}
	if opts.MaxImageSide <= 0 {
		opts.MaxImageSide = media.DefaultMaxSide
	}
	opts.Progress = opts.Progress.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		transport:   t,
		registry:    reg,
		conclusions: conclusions,
		opts:        opts,
		acc:         batch.NewAccumulator(),
		sched:       batch.NewScheduler(),
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,
	}
}

// Providers lists available provider names in fallback order.
func (e *Engine) Providers() []string {
	list := e.registry.List()
	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, p.Name())
	}
	return names
}

// Delay returns the debounce delay.
func (e *Engine) Delay() time.Duration { return e.opts.Delay }

// Pending returns how many documents the user has queued.
func (e *Engine) Pending(userID string) int { return e.acc.Len(userID) }

// OnDocumentArrived queues a document and restarts the user's quiet-period timer.
// It returns the batch size after the append.
func (e *Engine) OnDocumentArrived(userID, destination, contentRef, mime string) int {
	n := e.acc.Append(userID, destination, batch.Document{ContentRef: contentRef, MimeType: mime})
	e.sched.Reschedule(userID, e.opts.Delay, func() {
		e.dispatch(userID, e.opts.TimerProvider, "timer")
	})
	slog.Debug("document queued", "user_id", userID, "pending", n)
	return n
}

// OnExplicitProviderChosen cancels the timer and dispatches now with providerName only.
// State is StateIdle when the user had nothing pending.
func (e *Engine) OnExplicitProviderChosen(userID, providerName string) Outcome {
	e.sched.Cancel(userID)
	return e.dispatch(userID, providerName, "button")
}

// OnDoneSignal handles a "done" phrase: it cancels the timer and dispatches
// the batch in automatic mode. Without a batch nothing is dispatched.
func (e *Engine) OnDoneSignal(userID string) DoneResult {
	if e.acc.Len(userID) == 0 {
		return DoneResult{Action: DoneNoBatch}
	}
	e.sched.Cancel(userID)
	return DoneResult{Action: DoneDispatched, Outcome: e.dispatch(userID, providers.PreferenceAuto, "done")}
}

// OnStopSignal cancels the timer and discards the batch.
func (e *Engine) OnStopSignal(userID string) {
	e.sched.Cancel(userID)
	e.acc.Clear(userID)
	slog.Debug("batch cleared", "user_id", userID)
}

// GetLastConclusion returns the user's most recent stored conclusion.
func (e *Engine) GetLastConclusion(ctx context.Context, userID string) (*store.ConclusionRecord, error) {
	return e.conclusions.Get(ctx, userID)
}

// Close stops all timers, cancels in-flight work and waits for it.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.sched.Stop()
	e.cancel()
	e.wg.Wait()
}

// track registers an in-flight operation. It returns false once Close has begun.
func (e *Engine) track() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.wg.Add(1)
	return true
}

func (e *Engine) dispatch(userID, pref, trigger string) Outcome {
	out := Outcome{ID: uuid.NewString(), State: StateIdle}
	if !e.track() {
		return out
	}
	defer e.wg.Done()

	ctx, span := otel.Tracer(tracerName).Start(e.ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("dispatch.id", out.ID),
			attribute.String("user.id", userID),
			attribute.String("dispatch.trigger", trigger),
			attribute.String("dispatch.preference", prefLabel(pref)),
		))
	defer span.End()

	log := slog.With("dispatch_id", out.ID, "user_id", userID, "trigger", trigger)

	pending, ok := e.acc.Peek(userID)
	if !ok {
		log.Debug("dispatch skipped: nothing pending")
		return out
	}

	candidates, err := e.registry.Candidates(pref)
	if err != nil {
		// The batch stays queued.
		log.Warn("dispatch: no provider for preference", "preference", prefLabel(pref), "error", err)
		e.send(ctx, pending.Destination, noProviderText(pref), SendOptions{Markup: MarkupMainMenu})
		return e.fail(span, out, errors.Join(ErrNoProviders, err))
	}

	b, ok := e.acc.Drain(userID)
	if !ok {
		log.Debug("dispatch skipped: batch drained concurrently")
		return out
	}
	out.Docs = len(b.Docs)
	span.SetAttributes(attribute.Int("dispatch.docs", out.Docs))

	out.State = StateDownloading
	log.Debug("dispatch state", "state", out.State, "docs", out.Docs)
	images := e.download(ctx, log, b.Docs)
	if len(images) == 0 {
		if ctx.Err() == nil {
			e.send(ctx, b.Destination, textNothingLoaded, SendOptions{Markup: MarkupMainMenu})
		}
		return e.fail(span, out, ErrNothingLoaded)
	}

	out.State = StateAwaitingProvider
	log.Debug("dispatch state", "state", out.State, "images", len(images))

	stopProgress := func() {}
	if ref, err := e.transport.SendMessage(ctx, b.Destination, ProgressText(0), SendOptions{}); err != nil {
		log.Debug("progress placeholder failed", "error", err)
	} else {
		p := StartProgress(ctx, e.transport, ref, e.opts.Progress)
		stopProgress = p.Stop
	}
	defer stopProgress()

	req := imageRequest(images)
	res, err := providers.Complete(ctx, candidates, func(ctx context.Context, p providers.Provider) (string, error) {
		return p.CompleteImageBatch(ctx, req)
	})
	stopProgress()

	if err != nil {
		log.Warn("dispatch failed", "kind", providers.Classify(err), "error", err)
		if ctx.Err() == nil {
			e.send(ctx, b.Destination, textConclusionFail+providers.UserMessage(err), SendOptions{Markup: MarkupMainMenu})
		}
		return e.fail(span, out, err)
	}

	out.State = StateFormatting
	out.Provider = res.Provider
	span.SetAttributes(attribute.String("dispatch.provider", res.Provider))

	text := TruncateOutput(res.Text, e.opts.MaxOutputChars)
	if err := e.conclusions.Put(ctx, userID, store.NewConclusionRecord(text, res.Provider, e.now())); err != nil {
		log.Warn("store conclusion failed", "error", err)
	}
	e.deliver(ctx, b.Destination, text)

	out.State = StateDelivered
	log.Info("dispatch delivered", "provider", res.Provider, "docs", out.Docs, "chars", len(text))
	return out
}

func (e *Engine) fail(span trace.Span, out Outcome, err error) Outcome {
	out.State = StateFailed
	out.Err = err
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return out
}

// download fetches every document with bounded parallelism. Failed items are
// logged and dropped; survivors keep arrival order.
func (e *Engine) download(ctx context.Context, log *slog.Logger, docs []batch.Document) []providers.ImageContent {
	results := make([]*providers.ImageContent, len(docs))

	var g errgroup.Group
	g.SetLimit(e.opts.DownloadLimit)
	for i, doc := range docs {
		g.Go(func() error {
			data, err := e.transport.DownloadContent(ctx, doc.ContentRef)
			if err != nil {
				log.Warn("document download failed", "content_ref", doc.ContentRef, "error", err)
				return nil
			}
			mime := media.NormalizeMime(doc.MimeType)
			data, mime, err = media.Normalize(data, mime, e.opts.MaxImageSide)
			if err != nil {
				log.Warn("document normalize failed", "content_ref", doc.ContentRef, "error", err)
				return nil
			}
			results[i] = &providers.ImageContent{MimeType: mime, Data: data}
			return nil
		})
	}
	_ = g.Wait()

	images := make([]providers.ImageContent, 0, len(docs))
	for _, r := range results {
		if r != nil {
			images = append(images, *r)
		}
	}
	return images
}

func imageRequest(images []providers.ImageContent) providers.ImageBatchRequest {
	if len(images) > 1 {
		return providers.ImageBatchRequest{
			System:      multiDocPrompt,
			Instruction: multiDocInstruction,
			Images:      images,
			MaxTokens:   multiDocMaxTokens,
		}
	}
	return providers.ImageBatchRequest{
		System:      singleDocPrompt,
		Instruction: singleDocInstruction,
		Images:      images,
		MaxTokens:   singleDocMaxTokens,
	}
}

// deliver sends the formatted conclusion, falling back to plain text when
// the HTML is rejected.
func (e *Engine) deliver(ctx context.Context, destination, text string) {
	opts := SendOptions{HTML: true, Markup: MarkupMainMenu}
	if _, err := e.transport.SendMessage(ctx, destination, FormatConclusion(text), opts); err != nil {
		slog.Warn("html delivery failed, sending plain text", "destination", destination, "error", err)
		e.send(ctx, destination, text, SendOptions{Markup: MarkupMainMenu})
	}
}

func (e *Engine) send(ctx context.Context, destination, text string, opts SendOptions) {
	if _, err := e.transport.SendMessage(ctx, destination, text, opts); err != nil {
		slog.Warn("send failed", "destination", destination, "error", err)
	}
}

// AskText answers a free-form question with automatic fallback.
func (e *Engine) AskText(ctx context.Context, destination, question string) error {
	if !e.track() {
		return context.Canceled
	}
	defer e.wg.Done()

	candidates, err := e.registry.Candidates(providers.PreferenceAuto)
	if err != nil {
		e.send(ctx, destination, textNoProviderAtAll, SendOptions{})
		return errors.Join(ErrNoProviders, err)
	}
	e.send(ctx, destination, textThinking, SendOptions{})

	req := providers.TextRequest{System: textPrompt, Input: question, MaxTokens: textMaxTokens}
	res, err := providers.Complete(ctx, candidates, func(ctx context.Context, p providers.Provider) (string, error) {
		return p.CompleteText(ctx, req)
	})
	if err != nil {
		slog.Warn("text answer failed", "kind", providers.Classify(err), "error", err)
		e.send(ctx, destination, textAnswerFail+providers.UserMessage(err), SendOptions{Markup: MarkupMainMenu})
		return err
	}
	e.send(ctx, destination, TruncateOutput(res.Text, e.opts.MaxOutputChars), SendOptions{Markup: MarkupMainMenu})
	return nil
}

func isAuto(pref string) bool {
	pref = strings.ToLower(strings.TrimSpace(pref))
	return pref == "" || pref == providers.PreferenceAuto
}

func prefLabel(pref string) string {
	if isAuto(pref) {
		return providers.PreferenceAuto
	}
	return strings.ToLower(strings.TrimSpace(pref))
}
