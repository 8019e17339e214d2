package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Attempt records one failed provider call.
type Attempt struct {
	Provider string
	Err      error
}

// FallbackError is returned when every candidate failed or returned nothing.
type FallbackError struct {
	Attempts []Attempt
}

func (e *FallbackError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

func (e *FallbackError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// LastFailure returns the most recent error that was not an empty response, or nil.
func (e *FallbackError) LastFailure() error {
	for i := len(e.Attempts) - 1; i >= 0; i-- {
		if !errors.Is(e.Attempts[i].Err, ErrEmptyResponse) {
			return e.Attempts[i].Err
		}
	}
	return nil
}

// Result is the successful outcome of Complete.
type Result struct {
	Text     string
	Provider string
}

// Complete tries each candidate in order and returns the first non-empty text.
// Context cancellation stops the chain immediately.
func Complete(ctx context.Context, candidates []Provider, call func(context.Context, Provider) (string, error)) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, ErrNotConfigured
	}

	fe := &FallbackError{}
	for _, p := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		text, err := call(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			slog.Warn("provider failed, trying next", "provider", p.Name(), "error", err)
			fe.Attempts = append(fe.Attempts, Attempt{Provider: p.Name(), Err: err})
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			slog.Warn("provider returned empty text", "provider", p.Name())
			fe.Attempts = append(fe.Attempts, Attempt{Provider: p.Name(), Err: ErrEmptyResponse})
			continue
		}
		return Result{Text: text, Provider: p.Name()}, nil
	}
	return Result{}, fe
}
