// Package memory provides the in-process conclusion store. Contents are lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/galkinart-netizen/tg-bot-911/internal/store"
)

// ConclusionStore implements store.ConclusionStore with a guarded map.
type ConclusionStore struct {
	mu      sync.RWMutex
	records map[string]store.ConclusionRecord
}

func NewConclusionStore() *ConclusionStore {
	return &ConclusionStore{records: make(map[string]store.ConclusionRecord)}
}

func (s *ConclusionStore) Get(_ context.Context, userID string) (*store.ConclusionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (s *ConclusionStore) Put(_ context.Context, userID string, rec store.ConclusionRecord) error {
	s.mu.Lock()
	s.records[userID] = rec
	s.mu.Unlock()
	return nil
}

func (s *ConclusionStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}
