package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fazpramim/portal/internal/models"
)

var testUser = models.User{ID: "7", Email: "ana@example.com", Name: "ana", Role: models.RoleClient}

type failingStore struct {
	*MemoryStore
	loadCalls int
}

func (f *failingStore) LoadAll(ctx context.Context) ([]*Session, error) {
	f.loadCalls++
	return nil, errors.New("db down")
}

func TestManager_CreateGetDestroy(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, time.Hour)
	require.NoError(t, m.Init(context.Background()))

	s, err := m.Create(context.Background(), testUser, "backend-token")
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, testUser, got.User)
	assert.Equal(t, "backend-token", got.BackendToken)

	persisted, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, persisted, 1)

	require.NoError(t, m.Destroy(context.Background(), s.ID))
	_, ok = m.Get(s.ID)
	assert.False(t, ok)

	persisted, _ = store.LoadAll(context.Background())
	assert.Empty(t, persisted)
}

func TestManager_InitLoadsOnceAndSkipsExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	require.NoError(t, store.Save(context.Background(), &Session{ID: "live", User: testUser, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.Save(context.Background(), &Session{ID: "old", User: testUser, ExpiresAt: now.Add(-time.Minute)}))

	m := NewManager(store, time.Hour)
	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, 1, m.Count())

	require.NoError(t, store.Save(context.Background(), &Session{ID: "late", User: testUser, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, m.Init(context.Background()))
	assert.Equal(t, 1, m.Count())
}

func TestManager_InitErrorIsSticky(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore()}
	m := NewManager(store, time.Hour)

	assert.Error(t, m.Init(context.Background()))
	assert.Error(t, m.Init(context.Background()))
	assert.Equal(t, 1, store.loadCalls)
}

func TestManager_GetReturnsCopy(t *testing.T) {
	m := NewManager(nil, time.Hour)
	s, err := m.Create(context.Background(), testUser, "tok")
	require.NoError(t, err)

	got, _ := m.Get(s.ID)
	got.User.Name = "alterado"

	again, _ := m.Get(s.ID)
	assert.Equal(t, "ana", again.User.Name)
}

func TestManager_Expiry(t *testing.T) {
	m := NewManager(nil, time.Minute)
	base := time.Now()
	m.now = func() time.Time { return base }

	s, err := m.Create(context.Background(), testUser, "tok")
	require.NoError(t, err)

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok := m.Get(s.ID)
	assert.False(t, ok)

	m.removeExpired(context.Background())
	assert.Equal(t, 0, m.Count())
}

func TestManager_ExpireByToken(t *testing.T) {
	m := NewManager(nil, time.Hour)
	a, _ := m.Create(context.Background(), testUser, "shared")
	b, _ := m.Create(context.Background(), testUser, "shared")
	c, _ := m.Create(context.Background(), testUser, "other")

	ids := m.ExpireByToken(context.Background(), "shared")
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	_, ok := m.Get(c.ID)
	assert.True(t, ok)
	assert.Empty(t, m.ExpireByToken(context.Background(), ""))
}

func TestManager_UpdateProviderProfile(t *testing.T) {
	m := NewManager(nil, time.Hour)
	s, _ := m.Create(context.Background(), models.User{ID: "9", Role: models.RoleProvider}, "tok")

	require.NoError(t, m.UpdateProviderProfile(context.Background(), s.ID, &models.Provider{ID: 9, FullName: "Carlos"}))
	got, _ := m.Get(s.ID)
	require.NotNil(t, got.ProviderProfile)
	assert.Equal(t, "Carlos", got.ProviderProfile.FullName)

	assert.Error(t, m.UpdateProviderProfile(context.Background(), "missing", nil))
}

func TestSealer_RoundTrip(t *testing.T) {
	s, err := NewSealer("portal-test-key")
	require.NoError(t, err)

	sealed, err := s.Seal("backend-token-123")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "backend-token-123")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "backend-token-123", plain)

	other, _ := NewSealer("another-key")
	_, err = other.Open(sealed)
	assert.Error(t, err)

	_, err = s.Open([]byte("short"))
	assert.Error(t, err)

	_, err = NewSealer("")
	assert.Error(t, err)
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	tm := NewTokenManager("secret-for-tests", time.Hour)
	s := &Session{ID: "sid-1", User: models.User{ID: "7", Role: models.RoleProvider}}

	token, exp, err := tm.Issue(s)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SessionID)
	assert.Equal(t, "7", claims.UserID)
	assert.Equal(t, "prestador", claims.Role)

	_, err = NewTokenManager("wrong-secret", time.Hour).Parse(token)
	assert.Error(t, err)

	expired := NewTokenManager("secret-for-tests", -time.Minute)
	old, _, err := expired.Issue(s)
	require.NoError(t, err)
	_, err = tm.Parse(old)
	assert.Error(t, err)
}
