package audiocache

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryStorer is an in-process Storer.
type MemoryStorer struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStorer creates an empty MemoryStorer.
func NewMemoryStorer() *MemoryStorer {
	return &MemoryStorer{entries: make(map[string]*Entry)}
}

func (s *MemoryStorer) Put(_ context.Context, entry *Entry) (bool, error) {
	if entry == nil {
		return false, errors.New("cannot store nil entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entry.Key]; ok {
		return false, nil
	}
	s.entries[entry.Key] = entry
	return true, nil
}

func (s *MemoryStorer) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound{Key: key}
	}
	return e, nil
}

func (s *MemoryStorer) Has(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok, nil
}

func (s *MemoryStorer) List(_ context.Context) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStorer) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{Entries: len(s.entries)}
	for _, e := range s.entries {
		stats.Bytes += int64(len(e.Audio))
	}
	return stats, nil
}

func (s *MemoryStorer) Close() error {
	return nil
}
