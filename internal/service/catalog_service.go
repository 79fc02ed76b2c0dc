package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
	"github.com/fazpramim/portal/internal/storage"
)

// CatalogBackend поиск и карточки исполнителей на бэкенде.
type CatalogBackend interface {
	SearchProviders(ctx context.Context, token, term string) ([]models.Provider, error)
	GetProvider(ctx context.Context, token string, providerID int64) (*models.Provider, error)
}

// SearchFilter параметры поиска исполнителей.
type SearchFilter struct {
	Term      string
	Location  string
	MinRating float64
}

const (
	defaultDetailsTTL        = time.Minute
	defaultEnrichConcurrency = 4
)

// CatalogService поиск исполнителей с догрузкой карточек.
type CatalogService struct {
	backend     CatalogBackend
	cache       *CacheService
	media       *storage.MediaResolver
	detailsTTL  time.Duration
	concurrency int
}

func NewCatalogService(backend CatalogBackend, cache *CacheService, media *storage.MediaResolver) *CatalogService {
	if cache == nil {
		cache = NewCacheService()
	}
	return &CatalogService{
		backend:     backend,
		cache:       cache,
		media:       media,
		detailsTTL:  defaultDetailsTTL,
		concurrency: defaultEnrichConcurrency,
	}
}

// Search ищет исполнителей и догружает карточки параллельно.
// Если карточку получить не удалось, в выдаче остается элемент из поиска.
func (s *CatalogService) Search(ctx context.Context, token string, f SearchFilter) ([]models.Provider, error) {
	found, err := s.backend.SearchProviders(ctx, token, f.Term)
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("catalog")
	enriched := make([]models.Provider, len(found))
	copy(enriched, found)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range enriched {
		i := i
		g.Go(func() error {
			details, err := s.details(gctx, token, enriched[i].ID)
			if err != nil {
				log.WithError(err).WithField("provider_id", enriched[i].ID).Debug("карточка исполнителя недоступна")
				return nil
			}
			enriched[i] = merge(enriched[i], *details)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeNetwork, "A requisição foi cancelada.")
	}

	location := strings.ToLower(strings.TrimSpace(f.Location))
	out := make([]models.Provider, 0, len(enriched))
	for _, p := range enriched {
		if location != "" && !strings.Contains(strings.ToLower(p.ServiceAddress), location) {
			continue
		}
		if f.MinRating > 0 && p.Rating() < f.MinRating {
			continue
		}
		out = append(out, s.media.Provider(p))
	}
	return out, nil
}

// Details карточка исполнителя с портфолио, отзывами и сертификатами.
func (s *CatalogService) Details(ctx context.Context, token string, providerID int64) (*models.Provider, error) {
	p, err := s.details(ctx, token, providerID)
	if err != nil {
		return nil, err
	}
	resolved := s.media.Provider(*p)
	return &resolved, nil
}

// details читает карточку через кэш. Значение в кэше не меняется.
func (s *CatalogService) details(ctx context.Context, token string, providerID int64) (*models.Provider, error) {
	value, err := s.cache.GetOrSet(ctx, ProviderDetailsCacheKey(providerID), s.detailsTTL, func(ctx context.Context) (any, error) {
		p, err := s.backend.GetProvider(ctx, token, providerID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.ErrProviderNotFound
			}
			return nil, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	p := value.(models.Provider)
	return &p, nil
}

// merge дополняет элемент поиска данными карточки, не затирая заполненные поля пустыми.
func merge(base, details models.Provider) models.Provider {
	out := details
	out.ID = base.ID
	if out.FullName == "" {
		out.FullName = base.FullName
	}
	if out.ServiceAddress == "" {
		out.ServiceAddress = base.ServiceAddress
	}
	if out.TechnicalQualification == "" {
		out.TechnicalQualification = base.TechnicalQualification
	}
	if out.ProfilePhoto == "" {
		out.ProfilePhoto = base.ProfilePhoto
	}
	if out.AverageRating == nil {
		out.AverageRating = base.AverageRating
	}
	if out.TotalReviews == 0 {
		out.TotalReviews = base.TotalReviews
	}
	return out
}
