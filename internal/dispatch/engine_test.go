package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/galkinart-netizen/tg-bot-911/internal/providers"
	"github.com/galkinart-netizen/tg-bot-911/internal/store"
	"github.com/galkinart-netizen/tg-bot-911/internal/store/memory"
)

const conclusionText = "АБЗАЦ 1 — анализы в норме.\n\nАБЗАЦ 2 — пить больше воды."

func testOptions(delay time.Duration) Options {
	return Options{
		Delay: delay,
		Progress: ProgressOptions{
			Step:     10,
			Interval: 2 * time.Millisecond,
			Hold:     time.Millisecond,
		},
	}
}

func newTestEngine(t *testing.T, delay time.Duration, provs ...providers.Provider) (*Engine, *fakeTransport, *memory.ConclusionStore) {
	t.Helper()
	reg := providers.NewRegistry()
	for _, p := range provs {
		reg.Register(p)
	}
	ft := newFakeTransport()
	cs := memory.NewConclusionStore()
	e := New(ft, reg, cs, testOptions(delay))
	return e, ft, cs
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEngine_BurstDispatchesOnceInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, text: conclusionText}
	e, ft, cs := newTestEngine(t, 40*time.Millisecond, groq)
	defer e.Close()

	for i := 1; i <= 3; i++ {
		ft.put(refName(i))
		if n := e.OnDocumentArrived("u1", "100", refName(i), "image/png"); n != i {
			t.Fatalf("arrival %d: pending = %d", i, n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	waitFor(t, "conclusion delivery", func() bool { return ft.last().Opts.HTML })
	time.Sleep(80 * time.Millisecond)

	if groq.calls() != 1 {
		t.Fatalf("provider calls = %d, want 1", groq.calls())
	}
	req := groq.batch(0)
	if len(req.Images) != 3 {
		t.Fatalf("images = %d, want 3", len(req.Images))
	}
	for i, img := range req.Images {
		if want := "data-" + refName(i+1); string(img.Data) != want {
			t.Errorf("image %d = %q, want %q", i, img.Data, want)
		}
	}
	if req.System != multiDocPrompt || req.Instruction != multiDocInstruction {
		t.Error("multi-document batch must use the multi-document prompt")
	}

	last := ft.last()
	if last.Ref.Destination != "100" || last.Opts.Markup != MarkupMainMenu {
		t.Errorf("delivery = %+v", last)
	}
	if !strings.Contains(last.Text, "<b>📋 Что произошло и что это значит</b>") {
		t.Errorf("delivered text not formatted: %q", last.Text)
	}
	if e.Pending("u1") != 0 {
		t.Error("batch not drained")
	}

	rec, err := cs.Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Diagnosis != "АБЗАЦ 1 — анализы в норме." || rec.Treatment != "АБЗАЦ 2 — пить больше воды." || rec.Provider != providers.NameGroq {
		t.Errorf("stored = %+v", rec)
	}
}

func TestEngine_ProgressRunsAndIsDeleted(t *testing.T) {
	defer goleak.VerifyNone(t)

	slow := &slowProvider{fakeProvider: fakeProvider{name: providers.NameGroq, text: "ok"}, delay: 60 * time.Millisecond}
	e, ft, _ := newTestEngine(t, time.Hour, slow)
	defer e.Close()

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	out := e.OnExplicitProviderChosen("u1", providers.NameGroq)
	if out.State != StateDelivered {
		t.Fatalf("state = %s, err = %v", out.State, out.Err)
	}

	sent := ft.sentTexts()
	if len(sent) != 2 || sent[0] != ProgressText(0) {
		t.Fatalf("sent = %q", sent)
	}
	placeholder := MessageRef{Destination: "100", MessageID: 1}

	edits := ft.editTexts()
	if len(edits) < 2 {
		t.Fatalf("edits = %q, want ramp and completion", edits)
	}
	prev := 0
	for i, text := range edits[:len(edits)-1] {
		pct := percentOf(t, text)
		if pct <= prev || pct > 95 {
			t.Errorf("edit %d: %d%% after %d%%", i, pct, prev)
		}
		prev = pct
	}
	if percentOf(t, edits[len(edits)-1]) != 100 {
		t.Errorf("last edit = %q, want 100%%", edits[len(edits)-1])
	}
	if got := ft.deletedRefs(); len(got) != 1 || got[0] != placeholder {
		t.Errorf("deleted = %v, want [%v]", got, placeholder)
	}
}

func TestEngine_DeliversWhenPlaceholderFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, text: conclusionText}
	e, ft, cs := newTestEngine(t, time.Hour, groq)
	defer e.Close()
	ft.failProgress = true

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	out := e.OnExplicitProviderChosen("u1", providers.NameGroq)
	if out.State != StateDelivered {
		t.Fatalf("state = %s, err = %v", out.State, out.Err)
	}

	sent := ft.sentTexts()
	if len(sent) != 1 || !ft.last().Opts.HTML {
		t.Fatalf("sent = %q, want only the conclusion", sent)
	}
	if len(ft.editTexts()) != 0 || len(ft.deletedRefs()) != 0 {
		t.Error("no progress message to edit or delete")
	}
	if _, err := cs.Get(context.Background(), "u1"); err != nil {
		t.Errorf("conclusion not stored: %v", err)
	}
}

func TestEngine_DeliversWhenProgressEditsFail(t *testing.T) {
	defer goleak.VerifyNone(t)

	slow := &slowProvider{fakeProvider: fakeProvider{name: providers.NameGroq, text: "ok"}, delay: 40 * time.Millisecond}
	e, ft, _ := newTestEngine(t, time.Hour, slow)
	defer e.Close()
	ft.failEdits = true

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	if out := e.OnExplicitProviderChosen("u1", providers.NameGroq); out.State != StateDelivered {
		t.Fatalf("state = %s, err = %v", out.State, out.Err)
	}

	edits := ft.editTexts()
	if len(edits) < 2 || percentOf(t, edits[len(edits)-1]) != 100 {
		t.Errorf("edits = %q, want ramp attempts and a final 100%%", edits)
	}
	if got := ft.deletedRefs(); len(got) != 1 {
		t.Errorf("deleted = %v, want the placeholder", got)
	}
	if last := ft.last(); last.Text != "ok" {
		t.Errorf("delivered = %q", last.Text)
	}
}

type slowProvider struct {
	fakeProvider
	delay time.Duration
}

func (p *slowProvider) CompleteImageBatch(ctx context.Context, req providers.ImageBatchRequest) (string, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return p.fakeProvider.CompleteImageBatch(ctx, req)
}

func TestEngine_ExplicitChoicePreemptsTimer(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, text: "groq text"}
	openai := &fakeProvider{name: providers.NameOpenAI, text: "openai text"}
	e, ft, _ := newTestEngine(t, 50*time.Millisecond, groq, openai)
	defer e.Close()

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	out := e.OnExplicitProviderChosen("u1", providers.NameOpenAI)
	if out.State != StateDelivered || out.Provider != providers.NameOpenAI || out.Docs != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	req := openai.batch(0)
	if req.System != singleDocPrompt || req.Instruction != singleDocInstruction {
		t.Error("single document must use the single-document prompt")
	}

	// The cancelled timer must not produce a second dispatch.
	time.Sleep(120 * time.Millisecond)
	if groq.calls() != 0 || openai.calls() != 1 {
		t.Errorf("calls groq=%d openai=%d", groq.calls(), openai.calls())
	}

	if again := e.OnExplicitProviderChosen("u1", providers.NameOpenAI); again.State != StateIdle {
		t.Errorf("second choice with empty batch: state = %s", again.State)
	}
}

func TestEngine_ExplicitChoiceDoesNotFallBack(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, err: &providers.HTTPError{Status: 429, Body: "groq: limit"}}
	openai := &fakeProvider{name: providers.NameOpenAI, text: "openai text"}
	e, ft, _ := newTestEngine(t, time.Hour, groq, openai)
	defer e.Close()

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	out := e.OnExplicitProviderChosen("u1", providers.NameGroq)
	if out.State != StateFailed {
		t.Fatalf("state = %s, want failed", out.State)
	}
	if openai.calls() != 0 {
		t.Error("explicit choice must not fall back")
	}
	last := ft.last()
	if !strings.HasPrefix(last.Text, textConclusionFail) || !strings.Contains(last.Text, "Закончился лимит") {
		t.Errorf("failure reply = %q", last.Text)
	}
	if e.Pending("u1") != 0 {
		t.Error("failed batch must be consumed")
	}
}

func TestEngine_AutomaticFallsBackOnlyOnFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, text: "  "}
	openai := &fakeProvider{name: providers.NameOpenAI, text: "openai text"}
	gemini := &fakeProvider{name: providers.NameGemini, text: "gemini text"}
	e, ft, cs := newTestEngine(t, 20*time.Millisecond, groq, openai, gemini)
	defer e.Close()

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")

	waitFor(t, "stored conclusion", func() bool {
		_, err := cs.Get(context.Background(), "u1")
		return err == nil
	})
	rec, _ := cs.Get(context.Background(), "u1")
	if rec.Provider != providers.NameOpenAI {
		t.Errorf("provider = %s, want openai", rec.Provider)
	}
	if groq.calls() != 1 || openai.calls() != 1 || gemini.calls() != 0 {
		t.Errorf("calls groq=%d openai=%d gemini=%d", groq.calls(), openai.calls(), gemini.calls())
	}
}

func TestEngine_NoCredentialsKeepsBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, ft, _ := newTestEngine(t, time.Hour)
	defer e.Close()

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	out := e.OnExplicitProviderChosen("u1", providers.NameGroq)
	if out.State != StateFailed || !errors.Is(out.Err, ErrNoProviders) || !errors.Is(out.Err, providers.ErrNotConfigured) {
		t.Fatalf("outcome = %+v", out)
	}
	if e.Pending("u1") != 1 {
		t.Errorf("pending = %d, want batch kept", e.Pending("u1"))
	}
	if len(ft.editTexts()) != 0 {
		t.Error("no progress expected without a provider")
	}
	if got := ft.last().Text; got != noProviderText(providers.NameGroq) {
		t.Errorf("reply = %q", got)
	}

	auto := e.OnDoneSignal("u1")
	if auto.Action != DoneDispatched || auto.Outcome.State != StateFailed {
		t.Fatalf("done = %+v", auto)
	}
	if got := ft.last().Text; got != textNoProviderAtAll {
		t.Errorf("automatic reply = %q", got)
	}
}

func TestEngine_DoneSignal(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, text: "groq text"}
	openai := &fakeProvider{name: providers.NameOpenAI, text: "openai text"}
	e, ft, _ := newTestEngine(t, 30*time.Millisecond, groq, openai)
	defer e.Close()

	if res := e.OnDoneSignal("u1"); res.Action != DoneNoBatch {
		t.Fatalf("empty done = %+v", res)
	}
	if len(ft.sentTexts()) != 0 {
		t.Errorf("done without a batch sent %v", ft.sentTexts())
	}

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	res := e.OnDoneSignal("u1")
	if res.Action != DoneDispatched || res.Outcome.State != StateDelivered {
		t.Fatalf("done = %+v", res)
	}
	// Automatic mode: the first provider in priority order answers.
	if res.Outcome.Provider != providers.NameGroq || groq.calls() != 1 || openai.calls() != 0 {
		t.Errorf("provider=%s groq=%d openai=%d", res.Outcome.Provider, groq.calls(), openai.calls())
	}
	if e.Pending("u1") != 0 {
		t.Errorf("pending = %d, want 0", e.Pending("u1"))
	}

	// The cancelled timer does not dispatch a second time.
	time.Sleep(80 * time.Millisecond)
	if groq.calls() != 1 {
		t.Errorf("groq calls = %d after timer window, want 1", groq.calls())
	}
}

func TestEngine_DoneSignalFallsBackAutomatically(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, err: &providers.HTTPError{Status: 429}}
	openai := &fakeProvider{name: providers.NameOpenAI, text: "openai text"}
	e, ft, _ := newTestEngine(t, time.Hour, groq, openai)
	defer e.Close()

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	res := e.OnDoneSignal("u1")
	if res.Action != DoneDispatched || res.Outcome.Provider != providers.NameOpenAI {
		t.Fatalf("done = %+v", res)
	}
}

func TestEngine_StopClearsBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, text: "groq text"}
	e, ft, _ := newTestEngine(t, 30*time.Millisecond, groq)
	defer e.Close()

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	e.OnStopSignal("u1")
	time.Sleep(80 * time.Millisecond)

	if groq.calls() != 0 || e.Pending("u1") != 0 || len(ft.sentTexts()) != 0 {
		t.Errorf("calls=%d pending=%d sent=%v", groq.calls(), e.Pending("u1"), ft.sentTexts())
	}
}

func TestEngine_DownloadFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, text: "groq text"}
	e, ft, _ := newTestEngine(t, time.Hour, groq)
	defer e.Close()

	// Only the second document is downloadable.
	ft.put(refName(2))
	for i := 1; i <= 3; i++ {
		e.OnDocumentArrived("u1", "100", refName(i), "image/jpeg")
	}
	out := e.OnExplicitProviderChosen("u1", providers.NameGroq)
	if out.State != StateDelivered || out.Docs != 3 {
		t.Fatalf("outcome = %+v", out)
	}
	if req := groq.batch(0); len(req.Images) != 1 || string(req.Images[0].Data) != "data-"+refName(2) {
		t.Errorf("images = %+v", req.Images)
	}

	e.OnDocumentArrived("u2", "200", "missing", "image/jpeg")
	out = e.OnExplicitProviderChosen("u2", providers.NameGroq)
	if out.State != StateFailed || !errors.Is(out.Err, ErrNothingLoaded) {
		t.Fatalf("outcome = %+v", out)
	}
	if got := ft.last(); got.Text != textNothingLoaded || got.Ref.Destination != "200" {
		t.Errorf("reply = %+v", got)
	}
	if groq.calls() != 1 {
		t.Errorf("provider called for an empty batch")
	}
}

func TestEngine_PlainTextFallbackWhenHTMLRejected(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, text: "a < b"}
	e, ft, _ := newTestEngine(t, time.Hour, groq)
	defer e.Close()
	ft.failHTML = true

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	if out := e.OnExplicitProviderChosen("u1", providers.NameGroq); out.State != StateDelivered {
		t.Fatalf("state = %s", out.State)
	}
	last := ft.last()
	if last.Text != "a < b" || last.Opts.HTML {
		t.Errorf("fallback = %+v", last)
	}
}

func TestEngine_GetLastConclusion(t *testing.T) {
	e, _, cs := newTestEngine(t, time.Hour)
	defer e.Close()

	ctx := context.Background()
	if _, err := e.GetLastConclusion(ctx, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	_ = cs.Put(ctx, "u1", store.NewConclusionRecord(conclusionText, providers.NameGroq, time.Now()))
	rec, err := e.GetLastConclusion(ctx, "u1")
	if err != nil || rec.Treatment != "АБЗАЦ 2 — пить больше воды." {
		t.Errorf("rec = %+v, err = %v", rec, err)
	}
}

func TestEngine_CloseStopsTimers(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, text: "groq text"}
	e, ft, _ := newTestEngine(t, 30*time.Millisecond, groq)

	ft.put(refName(1))
	e.OnDocumentArrived("u1", "100", refName(1), "image/jpeg")
	e.Close()
	e.Close()
	time.Sleep(80 * time.Millisecond)

	if groq.calls() != 0 {
		t.Error("dispatch ran after Close")
	}
	if out := e.OnExplicitProviderChosen("u1", providers.NameGroq); out.State != StateIdle {
		t.Errorf("dispatch after Close: state = %s", out.State)
	}
}

func TestEngine_AskText(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, err: errors.New("down")}
	openai := &fakeProvider{name: providers.NameOpenAI, text: "Сахар немного выше нормы."}
	e, ft, _ := newTestEngine(t, time.Hour, groq, openai)
	defer e.Close()

	if err := e.AskText(context.Background(), "100", "что значит повышенный сахар?"); err != nil {
		t.Fatal(err)
	}
	sent := ft.sentTexts()
	if len(sent) != 2 || sent[0] != textThinking || sent[1] != "Сахар немного выше нормы." {
		t.Errorf("sent = %q", sent)
	}
	if openai.texts[0].System != textPrompt || openai.texts[0].Input != "что значит повышенный сахар?" {
		t.Errorf("text request = %+v", openai.texts[0])
	}
}

func TestEngine_AskTextFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	groq := &fakeProvider{name: providers.NameGroq, err: &providers.HTTPError{Status: 401, Body: "groq: bad key"}}
	e, ft, _ := newTestEngine(t, time.Hour, groq)
	defer e.Close()

	if err := e.AskText(context.Background(), "100", "вопрос"); err == nil {
		t.Fatal("expected error")
	}
	last := ft.last().Text
	if !strings.HasPrefix(last, textAnswerFail) || !strings.Contains(last, "API-ключ") {
		t.Errorf("reply = %q", last)
	}
}
