package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// CacheService кэш в памяти с TTL и сбросом по префиксу.
// Используется для карточек исполнителей, которые часто запрашиваются поиском.
type CacheService struct {
	mu    sync.RWMutex
	cache map[string]*cacheEntry
	now   func() time.Time
}

type cacheEntry struct {
	data      any
	expiresAt time.Time
}

// NewCacheService создает кэш. Фоновую очистку запускает Run.
func NewCacheService() *CacheService {
	return &CacheService{
		cache: make(map[string]*cacheEntry),
		now:   time.Now,
	}
}

// Get возвращает значение, если оно есть и не истекло.
func (cs *CacheService) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || cs.now().After(entry.expiresAt) {
		// просроченные записи удаляет cleanup
		return nil, false
	}
	return entry.data, true
}

// Set сохраняет значение с TTL.
func (cs *CacheService) Set(key string, value any, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: cs.now().Add(ttl),
	}
}

// Delete удаляет ключ.
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
}

// InvalidateByPrefix удаляет все ключи с префиксом.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
}

// InvalidateProvider сбрасывает все записи исполнителя.
func (cs *CacheService) InvalidateProvider(providerID int64) {
	cs.InvalidateByPrefix(providerCachePrefix(providerID))
}

// Run периодически удаляет просроченные записи до отмены ctx.
func (cs *CacheService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.cleanup()
		}
	}
}

func (cs *CacheService) cleanup() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	now := cs.now()
	for key, entry := range cs.cache {
		if now.After(entry.expiresAt) {
			delete(cs.cache, key)
		}
	}
}

// Генераторы ключей.
const providerCacheRoot = "provider:"

func providerCachePrefix(providerID int64) string {
	return fmt.Sprintf("%s%d:", providerCacheRoot, providerID)
}

func ProviderDetailsCacheKey(providerID int64) string {
	return providerCachePrefix(providerID) + "details"
}

// GetOrSet возвращает значение из кэша или вычисляет и сохраняет его.
// Ошибки не кэшируются.
func (cs *CacheService) GetOrSet(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fn func(ctx context.Context) (any, error),
) (any, error) {
	if value, found := cs.Get(key); found {
		return value, nil
	}

	value, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	cs.Set(key, value, ttl)
	return value, nil
}
