package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/galkinart-netizen/tg-bot-911/internal/store"
)

func openTestStore(t *testing.T) *ConclusionStore {
	t.Helper()
	db, err := OpenDB(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "sub", "c.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewConclusionStore(db)
}

func TestSQLiteConclusionStore_Upsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, err := s.Get(ctx, "42"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get missing err = %v", err)
	}

	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.Put(ctx, "42", store.ConclusionRecord{Diagnosis: "d1", Treatment: "t1", Provider: "groq", UpdatedAt: ts}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "42", store.ConclusionRecord{Diagnosis: "d2", Treatment: "t2", Provider: "openai", UpdatedAt: ts.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Get(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Diagnosis != "d2" || rec.Treatment != "t2" || rec.Provider != "openai" {
		t.Errorf("rec = %+v", rec)
	}
	if !rec.UpdatedAt.Equal(ts.Add(time.Hour)) {
		t.Errorf("updated_at = %v", rec.UpdatedAt)
	}
}

func TestSQLiteConclusionStore_PurgeBefore(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	s.Put(ctx, "old", store.ConclusionRecord{Diagnosis: "x", Treatment: "x", UpdatedAt: now.AddDate(0, 0, -40)})
	s.Put(ctx, "new", store.ConclusionRecord{Diagnosis: "y", Treatment: "y", UpdatedAt: now})

	n, err := s.PurgeBefore(ctx, now.AddDate(0, 0, -30))
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if _, err := s.Get(ctx, "new"); err != nil {
		t.Errorf("new record missing: %v", err)
	}
}

func TestOpenDB_UnknownDriver(t *testing.T) {
	if _, err := OpenDB(context.Background(), "mysql", "x"); err == nil {
		t.Error("expected error for unknown driver")
	}
}
