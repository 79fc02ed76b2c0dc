package lifecycle

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Flag локальная отметка пользователя по заявке, которую бэкенд не отдает явно.
type Flag string

const (
	// FlagFinalized пользователь уже подтвердил завершение со своей стороны.
	FlagFinalized Flag = "finalized"
	// FlagReviewed пользователь уже оставил отзыв.
	FlagReviewed Flag = "reviewed"
)

// DefaultFlagTTL сколько хранятся отметки после последней записи.
const DefaultFlagTTL = 90 * 24 * time.Hour

// FlagStore хранилище отметок, ключ владелец (роль:id) + флаг.
type FlagStore interface {
	Set(ctx context.Context, owner string, flag Flag, requestID int64) error
	Has(ctx context.Context, owner string, flag Flag, requestID int64) (bool, error)
	Members(ctx context.Context, owner string, flag Flag) (map[int64]bool, error)
}

func flagKey(flag Flag, owner string) string {
	return "lifecycle:" + string(flag) + ":" + owner
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// MemoryFlagStore хранит отметки в памяти процесса с TTL.
type MemoryFlagStore struct {
	mu   sync.RWMutex
	sets map[string]*flagSet
	ttl  time.Duration
	now  func() time.Time
}

type flagSet struct {
	ids       map[int64]struct{}
	expiresAt time.Time
}

// NewMemoryFlagStore создает хранилище. Очистку запускает RunCleanup.
func NewMemoryFlagStore(ttl time.Duration) *MemoryFlagStore {
	if ttl <= 0 {
		ttl = DefaultFlagTTL
	}
	return &MemoryFlagStore{
		sets: make(map[string]*flagSet),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryFlagStore) Set(ctx context.Context, owner string, flag Flag, requestID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := flagKey(flag, owner)
	set, ok := s.sets[key]
	if !ok || s.now().After(set.expiresAt) {
		set = &flagSet{ids: make(map[int64]struct{})}
		s.sets[key] = set
	}
	set.ids[requestID] = struct{}{}
	// как EXPIRE в Redis: каждая запись продлевает весь набор
	set.expiresAt = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryFlagStore) Has(ctx context.Context, owner string, flag Flag, requestID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[flagKey(flag, owner)]
	if !ok || s.now().After(set.expiresAt) {
		return false, nil
	}
	_, found := set.ids[requestID]
	return found, nil
}

func (s *MemoryFlagStore) Members(ctx context.Context, owner string, flag Flag) (map[int64]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]bool)
	set, ok := s.sets[flagKey(flag, owner)]
	if !ok || s.now().After(set.expiresAt) {
		return out, nil
	}
	for id := range set.ids {
		out[id] = true
	}
	return out, nil
}

// RunCleanup периодически удаляет просроченные наборы до отмены ctx.
func (s *MemoryFlagStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryFlagStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, set := range s.sets {
		if now.After(set.expiresAt) {
			delete(s.sets, key)
		}
	}
}
