package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
)

// Manager контекст сессий портала. Загружается из хранилища один раз при старте,
// изменяется только через Save и удаляется через Destroy.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    Store
	ttl      time.Duration
	now      func() time.Time

	initOnce sync.Once
	initErr  error
}

// NewManager создает менеджер сессий.
func NewManager(store Store, ttl time.Duration) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Init загружает сохраненные сессии. Повторные вызовы возвращают результат первого.
func (m *Manager) Init(ctx context.Context) error {
	m.initOnce.Do(func() {
		loaded, err := m.store.LoadAll(ctx)
		if err != nil {
			m.initErr = apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось загрузить сессии")
			return
		}

		now := m.now()
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, s := range loaded {
			if s.Expired(now) {
				continue
			}
			m.sessions[s.ID] = s
		}
		logger.WithComponent("session").WithField("count", len(m.sessions)).Info("сессии загружены")
	})
	return m.initErr
}

// Create открывает новую сессию после успешного входа.
func (m *Manager) Create(ctx context.Context, user models.User, backendToken string) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:           uuid.NewString(),
		User:         user,
		BackendToken: backendToken,
		CreatedAt:    now,
	}
	if err := m.Save(ctx, s); err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// Save единственный способ изменить сессию. Последняя запись побеждает.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return apperror.New(apperror.ErrCodeInternal, "сессия без идентификатора")
	}

	now := m.now()
	stored := s.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	if m.ttl > 0 {
		stored.ExpiresAt = now.Add(m.ttl)
	}

	if err := m.store.Save(ctx, stored); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить сессию")
	}

	m.mu.Lock()
	m.sessions[stored.ID] = stored
	m.mu.Unlock()

	s.CreatedAt, s.UpdatedAt, s.ExpiresAt = stored.CreatedAt, stored.UpdatedAt, stored.ExpiresAt
	return nil
}

// Get возвращает копию активной сессии.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Expired(m.now()) {
		return nil, false
	}
	return s.Clone(), true
}

// Destroy завершает сессию (logout).
func (m *Manager) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось удалить сессию")
	}
	return nil
}

// ExpireByToken удаляет все сессии с данным токеном бэкенда (бэкенд ответил 401).
// Возвращает идентификаторы удаленных сессий.
func (m *Manager) ExpireByToken(ctx context.Context, backendToken string) []string {
	if backendToken == "" {
		return nil
	}

	m.mu.Lock()
	var ids []string
	for id, s := range m.sessions {
		if s.BackendToken == backendToken {
			ids = append(ids, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.store.Delete(ctx, id); err != nil {
			logger.WithComponent("session").WithError(err).WithField("session_id", id).Warn("не удалось удалить истекшую сессию")
		}
	}
	return ids
}

// UpdateProviderProfile обновляет кэш профиля исполнителя в сессии.
func (m *Manager) UpdateProviderProfile(ctx context.Context, id string, profile *models.Provider) error {
	s, ok := m.Get(id)
	if !ok {
		return apperror.ErrUnauthorized
	}
	s.ProviderProfile = profile
	return m.Save(ctx, s)
}

// Count количество активных сессий в памяти.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RunCleanup периодически удаляет истекшие сессии до отмены контекста.
func (m *Manager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.removeExpired(ctx)
		}
	}
}

func (m *Manager) removeExpired(ctx context.Context) {
	now := m.now()
	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.Expired(now) {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		if err := m.store.Delete(ctx, id); err != nil {
			logger.WithComponent("session").WithError(err).WithFields(logrus.Fields{"session_id": id}).Warn("не удалось удалить истекшую сессию")
		}
	}
}
