package service

import (
	"context"

	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
	"github.com/fazpramim/portal/internal/session"
	"github.com/fazpramim/portal/internal/storage"
	"github.com/fazpramim/portal/internal/validation"
)

// ProfileBackend профили клиента и исполнителя на бэкенде.
type ProfileBackend interface {
	GetClientProfile(ctx context.Context, token string, clientID string) (*models.ClientProfile, error)
	UpdateClientProfile(ctx context.Context, token string, clientID string, fields map[string]string, photo *models.Attachment) (*models.ClientProfile, error)
	GetProviderProfile(ctx context.Context, token string) (*models.Provider, error)
	UpdateProviderProfile(ctx context.Context, token string, fields map[string]string, files ...*models.Attachment) (*models.Provider, error)
	ListProviderReviews(ctx context.Context, token string) ([]models.Review, error)
}

// ProfileService профиль текущего пользователя и отзывы исполнителя.
type ProfileService struct {
	backend  ProfileBackend
	sessions *session.Manager
	cache    *CacheService
	media    *storage.MediaResolver
}

func NewProfileService(b ProfileBackend, sessions *session.Manager, cache *CacheService, media *storage.MediaResolver) *ProfileService {
	if cache == nil {
		cache = NewCacheService()
	}
	return &ProfileService{backend: b, sessions: sessions, cache: cache, media: media}
}

func requireRole(sess *session.Session, role models.Role) error {
	if sess.User.ID == "" {
		// сессия без id пользователя, нужен повторный вход
		return apperror.ErrUnauthorized
	}
	if sess.User.Role != role {
		return apperror.ErrForbidden
	}
	return nil
}

// ClientProfile профиль клиента.
func (s *ProfileService) ClientProfile(ctx context.Context, sess *session.Session) (*models.ClientProfile, error) {
	if err := requireRole(sess, models.RoleClient); err != nil {
		return nil, err
	}
	p, err := s.backend.GetClientProfile(ctx, sess.BackendToken, sess.User.ID)
	if err != nil {
		return nil, err
	}
	p.ProfilePhoto = s.media.URL(p.ProfilePhoto)
	return p, nil
}

// UpdateClientProfile проверяет форму и отправляет PATCH с необязательным фото.
func (s *ProfileService) UpdateClientProfile(ctx context.Context, sess *session.Session, form validation.ClientProfileForm, photo *models.Attachment) (*models.ClientProfile, error) {
	if err := requireRole(sess, models.RoleClient); err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	p, err := s.backend.UpdateClientProfile(ctx, sess.BackendToken, sess.User.ID, form.Fields(), photo)
	if err != nil {
		return nil, err
	}
	s.refreshUser(ctx, sess, p.FullName, p.Email)
	p.ProfilePhoto = s.media.URL(p.ProfilePhoto)
	return p, nil
}

// ProviderProfile профиль исполнителя, заодно обновляет копию в сессии.
func (s *ProfileService) ProviderProfile(ctx context.Context, sess *session.Session) (*models.Provider, error) {
	if err := requireRole(sess, models.RoleProvider); err != nil {
		return nil, err
	}
	p, err := s.backend.GetProviderProfile(ctx, sess.BackendToken)
	if err != nil {
		return nil, err
	}
	s.cacheProvider(ctx, sess, p)
	resolved := s.media.Provider(*p)
	return &resolved, nil
}

// UpdateProviderProfile PATCH providers-edit/ с необязательной новой фотографией.
func (s *ProfileService) UpdateProviderProfile(ctx context.Context, sess *session.Session, form validation.ProviderProfileForm, photo *models.Attachment) (*models.Provider, error) {
	if err := requireRole(sess, models.RoleProvider); err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	p, err := s.backend.UpdateProviderProfile(ctx, sess.BackendToken, form.Fields(), photo)
	if err != nil {
		return nil, err
	}
	s.cacheProvider(ctx, sess, p)
	s.cache.InvalidateProvider(p.ID)
	s.refreshUser(ctx, sess, p.FullName, "")

	resolved := s.media.Provider(*p)
	return &resolved, nil
}

// ProviderReviews отзывы об исполнителе со средней оценкой.
func (s *ProfileService) ProviderReviews(ctx context.Context, sess *session.Session) (models.ReviewSummary, error) {
	if err := requireRole(sess, models.RoleProvider); err != nil {
		return models.ReviewSummary{}, err
	}
	reviews, err := s.backend.ListProviderReviews(ctx, sess.BackendToken)
	if err != nil {
		return models.ReviewSummary{}, err
	}
	return models.SummarizeReviews(s.media.Reviews(reviews)), nil
}

func (s *ProfileService) cacheProvider(ctx context.Context, sess *session.Session, p *models.Provider) {
	if err := s.sessions.UpdateProviderProfile(ctx, sess.ID, p); err != nil {
		logger.WithComponent("profile").WithError(err).WithField("session_id", sess.ID).Warn("не удалось обновить профиль в сессии")
	}
}

// refreshUser обновляет имя и email в сессии после редактирования профиля.
func (s *ProfileService) refreshUser(ctx context.Context, sess *session.Session, name, email string) {
	current, ok := s.sessions.Get(sess.ID)
	if !ok {
		return
	}
	changed := false
	if name != "" && name != current.User.Name {
		current.User.Name = name
		changed = true
	}
	if email != "" && email != current.User.Email {
		current.User.Email = email
		changed = true
	}
	if !changed {
		return
	}
	if err := s.sessions.Save(ctx, current); err != nil {
		logger.WithComponent("profile").WithError(err).WithField("session_id", sess.ID).Warn("не удалось обновить пользователя в сессии")
	}
}
