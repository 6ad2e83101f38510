package idempotency

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node tooling.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func memoryKey(scope, key string) string {
	return scope + "\x00" + key
}

func (s *MemoryStore) Get(_ context.Context, scope, key string, now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[memoryKey(scope, key)]
	if !ok || !now.Before(rec.ExpiresAt) {
		return nil, nil
	}
	clone := rec
	clone.ResponseBody = slices.Clone(rec.ResponseBody)
	return &clone, nil
}

func (s *MemoryStore) Reserve(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memoryKey(rec.Scope, rec.Key)
	if existing, ok := s.records[k]; ok && time.Now().UTC().Before(existing.ExpiresAt) {
		return ErrAlreadyReserved
	}
	s.records[k] = *rec
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, scope, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memoryKey(scope, key)
	rec, ok := s.records[k]
	if !ok {
		return nil
	}
	rec.Status = StatusCompleted
	rec.ResponseBody = slices.Clone(body)
	s.records[k] = rec
	return nil
}

func (s *MemoryStore) Release(_ context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memoryKey(scope, key)
	if rec, ok := s.records[k]; ok && rec.Status == StatusInProgress {
		delete(s.records, k)
	}
	return nil
}
