package session

import (
	"context"
	"time"

	"github.com/fazpramim/portal/internal/models"
)

// Session серверная сессия портала: проекция пользователя и токен бэкенда.
type Session struct {
	ID           string
	User         models.User
	BackendToken string
	// ProviderProfile кэш профиля исполнителя, обновляется при редактировании профиля.
	ProviderProfile *models.Provider
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       time.Time
}

// Expired сообщает, истекла ли сессия к моменту now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Clone возвращает копию, которую можно менять без блокировок.
func (s *Session) Clone() *Session {
	cp := *s
	if s.ProviderProfile != nil {
		p := *s.ProviderProfile
		cp.ProviderProfile = &p
	}
	return &cp
}

// Store постоянное хранилище сессий.
type Store interface {
	LoadAll(ctx context.Context) ([]*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
