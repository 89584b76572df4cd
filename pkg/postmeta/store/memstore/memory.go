package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/cognicore/postmeta/pkg/postmeta/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu          sync.RWMutex
	extractions map[string]store.Extraction
	runs        map[string]store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		extractions: make(map[string]store.Extraction),
		runs:        make(map[string]store.Run),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// GetExtraction implements store.Store.
func (s *Store) GetExtraction(ctx context.Context, key string) (store.Extraction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.extractions[key]
	if !ok {
		return store.Extraction{}, false, nil
	}
	return copyExtraction(e), true, nil
}

// PutExtraction implements store.Store. Later writes for a key replace earlier ones.
func (s *Store) PutExtraction(ctx context.Context, e store.Extraction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extractions[e.Key] = copyExtraction(e)
	return nil
}

// StartRun implements store.Store.
func (s *Store) StartRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	return nil
}

// FinishRun implements store.Store.
func (s *Store) FinishRun(ctx context.Context, id, status string, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil
	}
	r.Status = status
	r.FinishedAt = finishedAt
	s.runs[id] = r
	return nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok, nil
}

// Len returns the number of checkpointed extractions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.extractions)
}

func copyExtraction(e store.Extraction) store.Extraction {
	e.Tags = append([]string(nil), e.Tags...)
	return e
}
