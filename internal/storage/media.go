package storage

import (
	"net/url"
	"strings"

	"github.com/fazpramim/portal/internal/models"
)

// MediaResolver превращает относительные пути медиа бэкенда в абсолютные URL.
// Файлы хранит бэкенд, портал только строит ссылки.
type MediaResolver struct {
	base *url.URL
}

// NewMediaResolver создает резолвер для origin, с которого бэкенд раздает медиа.
func NewMediaResolver(baseURL string) (*MediaResolver, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, err
	}
	return &MediaResolver{base: u}, nil
}

// URL абсолютная ссылка на файл. Абсолютные ссылки возвращаются как есть.
func (r *MediaResolver) URL(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || r == nil || r.base == nil {
		return path
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "data:") {
		return path
	}
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return path
	}
	return r.base.ResolveReference(ref).String()
}

// Provider возвращает копию профиля с абсолютными ссылками.
func (r *MediaResolver) Provider(p models.Provider) models.Provider {
	p.ProfilePhoto = r.URL(p.ProfilePhoto)

	if p.PortfolioPhotos != nil {
		photos := make([]models.PortfolioPhoto, len(p.PortfolioPhotos))
		for i, ph := range p.PortfolioPhotos {
			ph.Photo = r.URL(ph.Photo)
			photos[i] = ph
		}
		p.PortfolioPhotos = photos
	}
	if p.Reviews != nil {
		p.Reviews = r.Reviews(p.Reviews)
	}
	if p.CertificationsURLs != nil {
		certs := make([]string, len(p.CertificationsURLs))
		for i, c := range p.CertificationsURLs {
			certs[i] = r.URL(c)
		}
		p.CertificationsURLs = certs
	}
	return p
}

// Reviews копия отзывов с абсолютными ссылками на фото.
func (r *MediaResolver) Reviews(reviews []models.Review) []models.Review {
	out := make([]models.Review, len(reviews))
	for i, rv := range reviews {
		rv.ClientPhoto = r.URL(rv.ClientPhoto)
		out[i] = rv
	}
	return out
}

// Portfolio копия фото портфолио с абсолютными ссылками.
func (r *MediaResolver) Portfolio(photos []models.PortfolioPhoto) []models.PortfolioPhoto {
	out := make([]models.PortfolioPhoto, len(photos))
	for i, ph := range photos {
		ph.Photo = r.URL(ph.Photo)
		out[i] = ph
	}
	return out
}
