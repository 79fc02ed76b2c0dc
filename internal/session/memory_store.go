package session

import (
	"context"
	"sync"
)

// MemoryStore хранит сессии в памяти процесса. Используется без DATABASE_URL.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Session)}
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sess.ID] = sess.Clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}
