package lifecycle

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fazpramim/portal/internal/models"
)

func TestMemoryFlagStore_SetHasMembers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryFlagStore(time.Hour)

	require.NoError(t, s.Set(ctx, "10", FlagFinalized, 42))
	require.NoError(t, s.Set(ctx, "10", FlagFinalized, 43))

	ok, err := s.Has(ctx, "10", FlagFinalized, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.Has(ctx, "10", FlagReviewed, 42)
	assert.False(t, ok)
	ok, _ = s.Has(ctx, "11", FlagFinalized, 42)
	assert.False(t, ok)

	members, err := s.Members(ctx, "10", FlagFinalized)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{42: true, 43: true}, members)
}

func TestMemoryFlagStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryFlagStore(time.Minute)
	base := time.Now()
	s.now = func() time.Time { return base }

	require.NoError(t, s.Set(ctx, "10", FlagReviewed, 1))

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	ok, _ := s.Has(ctx, "10", FlagReviewed, 1)
	assert.False(t, ok)

	s.removeExpired()
	assert.Empty(t, s.sets)
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "lifecycle:finalized:10", flagKey(FlagFinalized, "10"))
	assert.Equal(t, "lifecycle:reviewed:abc", flagKey(FlagReviewed, "abc"))

	cli := flagOwner(Caller{UserID: "10", Role: models.RoleClient})
	prov := flagOwner(Caller{UserID: "10", Role: models.RoleProvider})
	assert.Equal(t, "lifecycle:finalized:cliente:10", flagKey(FlagFinalized, cli))
	assert.NotEqual(t, flagKey(FlagFinalized, cli), flagKey(FlagFinalized, prov))
}

func TestNewRequestView_Actions(t *testing.T) {
	pending := NewRequestView(request(1, models.StatusPending), models.RoleProvider, false, false)
	assert.Equal(t, Actions{CanAccept: true, CanReject: true}, pending.Actions)

	asClient := NewRequestView(request(1, models.StatusPending), models.RoleClient, false, false)
	assert.Equal(t, Actions{}, asClient.Actions)
	assert.Equal(t, "carlos", asClient.CounterpartName)

	accepted := NewRequestView(request(2, models.StatusAccepted), models.RoleClient, true, false)
	assert.Equal(t, Actions{CanChat: true}, accepted.Actions)

	completed := NewRequestView(request(3, models.StatusCompleted), models.RoleClient, false, false)
	assert.Equal(t, Actions{CanChat: true, CanReview: true}, completed.Actions)

	rejected := NewRequestView(request(4, models.StatusRejected), models.RoleProvider, false, false)
	assert.Equal(t, Actions{}, rejected.Actions)
}

// Требует живой Redis: REDIS_TEST_ADDR=localhost:6379.
func TestRedisFlagStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR не задан")
	}

	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	user := "test-" + time.Now().Format("150405.000000")
	defer rdb.Del(ctx, flagKey(FlagReviewed, user))

	s := NewRedisFlagStore(rdb, time.Minute)
	require.NoError(t, s.Set(ctx, user, FlagReviewed, 42))

	ok, err := s.Has(ctx, user, FlagReviewed, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	members, err := s.Members(ctx, user, FlagReviewed)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{42: true}, members)

	ttl, err := rdb.TTL(ctx, flagKey(FlagReviewed, user)).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0)
}
