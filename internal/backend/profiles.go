package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fazpramim/portal/internal/models"
)

// SearchProviders поиск исполнителей по строке.
func (c *Client) SearchProviders(ctx context.Context, token, term string) ([]models.Provider, error) {
	cl := call{method: http.MethodGet, path: "providers/", token: token}
	if term = strings.TrimSpace(term); term != "" {
		cl.query = url.Values{"search": {term}}
	}
	var items page[models.Provider]
	if err := c.do(ctx, cl, &items); err != nil {
		return nil, err
	}
	return items.items(), nil
}

// GetProvider детальная карточка исполнителя (портфолио, отзывы, сертификаты).
func (c *Client) GetProvider(ctx context.Context, token string, providerID int64) (*models.Provider, error) {
	var p models.Provider
	cl := call{method: http.MethodGet, path: fmt.Sprintf("providers/%d/", providerID), token: token}
	if err := c.do(ctx, cl, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProviderReviews отзывы о текущем исполнителе.
func (c *Client) ListProviderReviews(ctx context.Context, token string) ([]models.Review, error) {
	var items page[models.Review]
	if err := c.do(ctx, call{method: http.MethodGet, path: "provider/reviews/", token: token}, &items); err != nil {
		return nil, err
	}
	return items.items(), nil
}

// GetProviderProfile профиль текущего исполнителя (providers-edit/).
func (c *Client) GetProviderProfile(ctx context.Context, token string) (*models.Provider, error) {
	var p models.Provider
	if err := c.do(ctx, call{method: http.MethodGet, path: "providers-edit/", token: token}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProviderProfile частичное обновление профиля исполнителя (multipart PATCH).
func (c *Client) UpdateProviderProfile(ctx context.Context, token string, fields map[string]string, files ...*models.Attachment) (*models.Provider, error) {
	cl, err := multipartCall(http.MethodPatch, "providers-edit/", token, fields, files...)
	if err != nil {
		return nil, err
	}
	var p models.Provider
	if err := c.do(ctx, cl, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// AddPortfolioPhoto добавляет фото в портфолио.
func (c *Client) AddPortfolioPhoto(ctx context.Context, token string, photo *models.Attachment, title, description string) (*models.PortfolioPhoto, error) {
	fields := map[string]string{}
	if title != "" {
		fields["title"] = title
	}
	if description != "" {
		fields["description"] = description
	}
	cl, err := multipartCall(http.MethodPost, "portfolio/add/", token, fields, photo)
	if err != nil {
		return nil, err
	}
	var added models.PortfolioPhoto
	if err := c.do(ctx, cl, &added); err != nil {
		return nil, err
	}
	return &added, nil
}

// DeletePortfolioPhoto удаляет фото из портфолио.
func (c *Client) DeletePortfolioPhoto(ctx context.Context, token string, photoID int64) error {
	cl := call{method: http.MethodDelete, path: fmt.Sprintf("portfolio/%d/delete/", photoID), token: token}
	return c.do(ctx, cl, nil)
}

// GetClientProfile профиль клиента.
func (c *Client) GetClientProfile(ctx context.Context, token string, clientID string) (*models.ClientProfile, error) {
	var p models.ClientProfile
	cl := call{method: http.MethodGet, path: fmt.Sprintf("clients/%s/", url.PathEscape(clientID)), token: token}
	if err := c.do(ctx, cl, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateClientProfile частичное обновление профиля клиента (multipart PATCH).
func (c *Client) UpdateClientProfile(ctx context.Context, token string, clientID string, fields map[string]string, photo *models.Attachment) (*models.ClientProfile, error) {
	cl, err := multipartCall(http.MethodPatch, fmt.Sprintf("clients/%s/", url.PathEscape(clientID)), token, fields, photo)
	if err != nil {
		return nil, err
	}
	var p models.ClientProfile
	if err := c.do(ctx, cl, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
