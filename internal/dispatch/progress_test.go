package dispatch

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func percentOf(t *testing.T, text string) int {
	t.Helper()
	i := strings.LastIndex(text, "] ")
	if i < 0 || !strings.HasSuffix(text, "%") {
		t.Fatalf("not a progress text: %q", text)
	}
	n, err := strconv.Atoi(text[i+2 : len(text)-1])
	if err != nil {
		t.Fatalf("parse percent from %q: %v", text, err)
	}
	return n
}

func TestProgress_MonotonicCappedThenDeleted(t *testing.T) {
	defer goleak.VerifyNone(t)

	ft := newFakeTransport()
	ref := MessageRef{Destination: "42", MessageID: 7}
	p := StartProgress(context.Background(), ft, ref, ProgressOptions{
		Step:     30,
		Cap:      95,
		Interval: 5 * time.Millisecond,
		Hold:     time.Millisecond,
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		edits := ft.editTexts()
		if len(edits) > 0 && percentOf(t, edits[len(edits)-1]) == 95 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("progress never reached cap, edits: %v", edits)
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Let a few more ticks pass at the cap.
	time.Sleep(30 * time.Millisecond)
	p.Stop()
	p.Stop()

	edits := ft.editTexts()
	prev := 0
	for i, text := range edits {
		pct := percentOf(t, text)
		if i == len(edits)-1 {
			if pct != 100 {
				t.Errorf("final edit = %d%%, want 100%%", pct)
			}
			break
		}
		if pct <= prev || pct > 95 {
			t.Errorf("edit %d: %d%% after %d%%", i, pct, prev)
		}
		prev = pct
	}
	if got := ft.deletedRefs(); len(got) != 1 || got[0] != ref {
		t.Errorf("deleted = %v, want [%v]", got, ref)
	}
}

func TestProgress_StopBeforeFirstTick(t *testing.T) {
	defer goleak.VerifyNone(t)

	ft := newFakeTransport()
	ref := MessageRef{Destination: "1", MessageID: 1}
	p := StartProgress(context.Background(), ft, ref, ProgressOptions{Interval: time.Hour, Hold: time.Millisecond})
	p.Stop()

	edits := ft.editTexts()
	if len(edits) != 1 || percentOf(t, edits[0]) != 100 {
		t.Errorf("edits = %v, want a single 100%% edit", edits)
	}
	if len(ft.deletedRefs()) != 1 {
		t.Error("progress message not deleted")
	}
}

func TestProgress_EditFailuresKeepTicking(t *testing.T) {
	defer goleak.VerifyNone(t)

	ft := newFakeTransport()
	ft.failEdits = true
	ref := MessageRef{Destination: "42", MessageID: 9}
	p := StartProgress(context.Background(), ft, ref, ProgressOptions{
		Step:     25,
		Interval: 2 * time.Millisecond,
		Hold:     time.Millisecond,
	})

	deadline := time.Now().Add(2 * time.Second)
	for len(ft.editTexts()) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("ramp stalled after failed edits: %v", ft.editTexts())
		}
		time.Sleep(2 * time.Millisecond)
	}
	p.Stop()

	edits := ft.editTexts()
	prev := 0
	for _, text := range edits[:len(edits)-1] {
		if pct := percentOf(t, text); pct <= prev {
			t.Errorf("ramp went from %d%% to %d%%", prev, pct)
		} else {
			prev = pct
		}
	}
	if pct := percentOf(t, edits[len(edits)-1]); pct != 100 {
		t.Errorf("final edit = %d%%, want 100%%", pct)
	}
	if got := ft.deletedRefs(); len(got) != 1 || got[0] != ref {
		t.Errorf("deleted = %v, want [%v]", got, ref)
	}
}
