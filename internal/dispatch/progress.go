package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ProgressOptions shape the progress ramp.
type ProgressOptions struct {
	Step     int           // percent added per tick (default 6)
	Cap      int           // highest percent before completion (default 95)
	Interval time.Duration // tick interval (default 1s)
	Hold     time.Duration // how long 100% stays visible (default 300ms)
}

func (o ProgressOptions) withDefaults() ProgressOptions {
	if o.Step <= 0 {
		o.Step = 6
	}
	if o.Cap <= 0 || o.Cap >= 100 {
		o.Cap = 95
	}
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.Hold <= 0 {
		o.Hold = 300 * time.Millisecond
	}
	return o
}

// cleanupTimeout bounds the final edit and delete after the loop exits.
const cleanupTimeout = 5 * time.Second

// Progress edits one message along a ramp until stopped.
type Progress struct {
	transport Transport
	ref       MessageRef
	opts      ProgressOptions

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// StartProgress begins ticking against ref. The loop stops when ctx is
// cancelled or Stop is called.
func StartProgress(ctx context.Context, t Transport, ref MessageRef, opts ProgressOptions) *Progress {
	ctx, cancel := context.WithCancel(ctx)
	p := &Progress{
		transport: t,
		ref:       ref,
		opts:      opts.withDefaults(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go p.loop(ctx)
	return p
}

func (p *Progress) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	shown := 0
	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pct := min(p.opts.Cap, tick*p.opts.Step)
		if pct <= shown {
			continue
		}
		shown = pct
		if err := p.transport.EditMessage(ctx, p.ref, ProgressText(pct)); err != nil {
			slog.Debug("progress edit failed", "message_id", p.ref.MessageID, "error", err)
		}
	}
}

// Stop ends the loop, waits for it, shows 100%, holds briefly and deletes
// the message. Edit and delete failures are ignored. Safe to call more than once.
func (p *Progress) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		<-p.done

		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := p.transport.EditMessage(ctx, p.ref, ProgressText(100)); err != nil {
			slog.Debug("progress final edit failed", "message_id", p.ref.MessageID, "error", err)
		}
		time.Sleep(p.opts.Hold)
		if err := p.transport.DeleteMessage(ctx, p.ref); err != nil {
			slog.Debug("progress delete failed", "message_id", p.ref.MessageID, "error", err)
		}
	})
}
