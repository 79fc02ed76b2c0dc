package service

import (
	"context"
	"strings"

	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
	"github.com/fazpramim/portal/internal/session"
	"github.com/fazpramim/portal/internal/storage"
	"github.com/fazpramim/portal/internal/validation"
)

// PortfolioBackend вызовы бэкенда для портфолио исполнителя.
type PortfolioBackend interface {
	GetProviderProfile(ctx context.Context, token string) (*models.Provider, error)
	AddPortfolioPhoto(ctx context.Context, token string, photo *models.Attachment, title, description string) (*models.PortfolioPhoto, error)
	DeletePortfolioPhoto(ctx context.Context, token string, photoID int64) error
}

// PortfolioService галерея работ исполнителя.
type PortfolioService struct {
	backend PortfolioBackend
	cache   *CacheService
	media   *storage.MediaResolver
}

// NewPortfolioService создаёт новый сервис портфолио.
func NewPortfolioService(b PortfolioBackend, cache *CacheService, media *storage.MediaResolver) *PortfolioService {
	if cache == nil {
		cache = NewCacheService()
	}
	return &PortfolioService{backend: b, cache: cache, media: media}
}

// List фотографии портфолио текущего исполнителя.
func (s *PortfolioService) List(ctx context.Context, sess *session.Session) ([]models.PortfolioPhoto, error) {
	if err := requireRole(sess, models.RoleProvider); err != nil {
		return nil, err
	}
	p, err := s.backend.GetProviderProfile(ctx, sess.BackendToken)
	if err != nil {
		return nil, err
	}
	return s.media.Portfolio(p.PortfolioPhotos), nil
}

// Add добавляет фото. Файл уже проверен пакетом upload.
func (s *PortfolioService) Add(ctx context.Context, sess *session.Session, form validation.PortfolioPhotoForm, photo *models.Attachment) (*models.PortfolioPhoto, error) {
	if err := requireRole(sess, models.RoleProvider); err != nil {
		return nil, err
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, apperror.Validation("Verifique os campos destacados.", map[string]string{
			"photo": "Selecione uma foto para o portfólio.",
		})
	}

	added, err := s.backend.AddPortfolioPhoto(ctx, sess.BackendToken, photo, strings.TrimSpace(form.Title), strings.TrimSpace(form.Description))
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, sess)

	logger.WithComponent("portfolio").WithField("photo_id", added.ID).Info("фото добавлено в портфолио")
	added.Photo = s.media.URL(added.Photo)
	return added, nil
}

// Delete удаляет фото из портфолио.
func (s *PortfolioService) Delete(ctx context.Context, sess *session.Session, photoID int64) error {
	if err := requireRole(sess, models.RoleProvider); err != nil {
		return err
	}
	if err := s.backend.DeletePortfolioPhoto(ctx, sess.BackendToken, photoID); err != nil {
		return err
	}
	s.invalidate(ctx, sess)
	return nil
}

// invalidate сбрасывает карточку исполнителя в кэше каталога.
// Если профиль не попал в сессию при входе, id берется у бэкенда,
// а при ошибке сбрасываются карточки всех исполнителей.
func (s *PortfolioService) invalidate(ctx context.Context, sess *session.Session) {
	if sess.ProviderProfile != nil {
		s.cache.InvalidateProvider(sess.ProviderProfile.ID)
		return
	}
	p, err := s.backend.GetProviderProfile(ctx, sess.BackendToken)
	if err != nil || p == nil {
		logger.WithComponent("portfolio").WithError(err).Warn("профиль исполнителя недоступен, кэш каталога сброшен целиком")
		s.cache.InvalidateByPrefix(providerCacheRoot)
		return
	}
	s.cache.InvalidateProvider(p.ID)
}
