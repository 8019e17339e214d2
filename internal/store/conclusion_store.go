package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

// SectionMarker opens the second section of a conclusion (the recommendations).
const SectionMarker = "АБЗАЦ 2"

// MaxSectionRunes caps each stored section.
const MaxSectionRunes = 4000

// ErrNotFound is returned when a user has no stored conclusion.
var ErrNotFound = errors.New("conclusion not found")

// ConclusionRecord is the last successful result for a user, split into two sections.
type ConclusionRecord struct {
	Diagnosis string    `json:"diagnosis"`
	Treatment string    `json:"treatment"`
	Provider  string    `json:"provider,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConclusionStore keeps one ConclusionRecord per user. Put overwrites wholesale.
type ConclusionStore interface {
	Get(ctx context.Context, userID string) (*ConclusionRecord, error)
	Put(ctx context.Context, userID string, rec ConclusionRecord) error
	// PurgeBefore deletes records last updated before cutoff and returns how many went.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SplitConclusion divides text at SectionMarker. Everything before the marker
// is the diagnosis, the marker onward is the treatment. Without a marker both
// sections hold the full text.
func SplitConclusion(text string) (diagnosis, treatment string) {
	text = strings.TrimSpace(text)
	idx := strings.Index(text, SectionMarker)
	if idx < 0 {
		return capRunes(text, MaxSectionRunes), capRunes(text, MaxSectionRunes)
	}
	diagnosis = strings.TrimSpace(text[:idx])
	treatment = strings.TrimSpace(text[idx:])
	return capRunes(diagnosis, MaxSectionRunes), capRunes(treatment, MaxSectionRunes)
}

// NewConclusionRecord builds a record from raw provider output.
func NewConclusionRecord(text, provider string, now time.Time) ConclusionRecord {
	d, t := SplitConclusion(text)
	return ConclusionRecord{Diagnosis: d, Treatment: t, Provider: provider, UpdatedAt: now}
}

func capRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
