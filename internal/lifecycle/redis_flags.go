package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFlagStore хранит отметки в Redis: один SET на пару флаг + пользователь.
// Отметки переживают перезапуск портала и видны всем его экземплярам.
type RedisFlagStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisFlagStore(rdb redis.Cmdable, ttl time.Duration) *RedisFlagStore {
	if ttl <= 0 {
		ttl = DefaultFlagTTL
	}
	return &RedisFlagStore{rdb: rdb, ttl: ttl}
}

func (s *RedisFlagStore) Set(ctx context.Context, owner string, flag Flag, requestID int64) error {
	key := flagKey(flag, owner)
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, key, formatID(requestID))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: не удалось сохранить отметку %s: %w", key, err)
	}
	return nil
}

func (s *RedisFlagStore) Has(ctx context.Context, owner string, flag Flag, requestID int64) (bool, error) {
	key := flagKey(flag, owner)
	ok, err := s.rdb.SIsMember(ctx, key, formatID(requestID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: не удалось прочитать отметку %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisFlagStore) Members(ctx context.Context, owner string, flag Flag) (map[int64]bool, error) {
	key := flagKey(flag, owner)
	raw, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: не удалось прочитать отметки %s: %w", key, err)
	}
	out := make(map[int64]bool, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[id] = true
	}
	return out, nil
}
