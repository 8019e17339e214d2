package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/galkinart-netizen/tg-bot-911/internal/store"
)

func TestConclusionStore_PutGetOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewConclusionStore()

	if _, err := s.Get(ctx, "u"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get on empty store err = %v", err)
	}
	s.Put(ctx, "u", store.ConclusionRecord{Diagnosis: "old", Treatment: "old-t"})
	s.Put(ctx, "u", store.ConclusionRecord{Diagnosis: "new", Treatment: "new-t"})

	rec, err := s.Get(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Diagnosis != "new" || rec.Treatment != "new-t" {
		t.Errorf("rec = %+v, want wholesale overwrite", rec)
	}
}

func TestConclusionStore_PurgeBefore(t *testing.T) {
	ctx := context.Background()
	s := NewConclusionStore()
	now := time.Now()
	s.Put(ctx, "old", store.ConclusionRecord{UpdatedAt: now.Add(-48 * time.Hour)})
	s.Put(ctx, "fresh", store.ConclusionRecord{UpdatedAt: now})

	n, err := s.PurgeBefore(ctx, now.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if _, err := s.Get(ctx, "old"); !errors.Is(err, store.ErrNotFound) {
		t.Error("old record should be purged")
	}
	if _, err := s.Get(ctx, "fresh"); err != nil {
		t.Error("fresh record should survive")
	}
}
