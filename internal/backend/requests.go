package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fazpramim/portal/internal/models"
)

// CreateServiceRequest создает заявку клиента к исполнителю.
func (c *Client) CreateServiceRequest(ctx context.Context, token string, providerID int64, req models.NewServiceRequest) (*models.ServiceRequest, error) {
	cl, err := jsonCall(http.MethodPost, fmt.Sprintf("providers/%d/requests/", providerID), token, req)
	if err != nil {
		return nil, err
	}
	var created models.ServiceRequest
	if err := c.do(ctx, cl, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListClientRequests заявки текущего клиента.
func (c *Client) ListClientRequests(ctx context.Context, token string) ([]models.ServiceRequest, error) {
	var items page[models.ServiceRequest]
	if err := c.do(ctx, call{method: http.MethodGet, path: "client/requests/", token: token}, &items); err != nil {
		return nil, err
	}
	return items.items(), nil
}

// ListProviderRequests заявки текущего исполнителя, опционально по статусу.
func (c *Client) ListProviderRequests(ctx context.Context, token string, status models.RequestStatus) ([]models.ServiceRequest, error) {
	cl := call{method: http.MethodGet, path: "provider/requests/", token: token}
	if status != "" {
		cl.query = url.Values{"status": {string(status)}}
	}
	var items page[models.ServiceRequest]
	if err := c.do(ctx, cl, &items); err != nil {
		return nil, err
	}
	return items.items(), nil
}

func (c *Client) transition(ctx context.Context, token string, requestID int64, action string) (*models.TransitionResult, error) {
	cl := call{
		method: http.MethodPost,
		path:   fmt.Sprintf("requests/%d/%s/", requestID, action),
		token:  token,
		kind:   kindTransition,
	}
	var res models.TransitionResult
	if err := c.do(ctx, cl, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AcceptRequest исполнитель принимает заявку.
func (c *Client) AcceptRequest(ctx context.Context, token string, requestID int64) (*models.TransitionResult, error) {
	return c.transition(ctx, token, requestID, "accept")
}

// RejectRequest исполнитель отклоняет заявку.
func (c *Client) RejectRequest(ctx context.Context, token string, requestID int64) (*models.TransitionResult, error) {
	return c.transition(ctx, token, requestID, "reject")
}

// CompleteRequest подтверждение завершения одной из сторон.
// Статус в ответе completed только когда подтвердили обе стороны.
func (c *Client) CompleteRequest(ctx context.Context, token string, requestID int64) (*models.TransitionResult, error) {
	return c.transition(ctx, token, requestID, "complete")
}

// ReviewSubmission отзыв стороны по завершенной заявке.
type ReviewSubmission struct {
	Rating  int
	Comment string
	Photo   *models.Attachment
}

// SubmitReview отправляет оценку (multipart: rating, comment, photo).
func (c *Client) SubmitReview(ctx context.Context, token string, requestID int64, review ReviewSubmission) error {
	fields := map[string]string{"rating": fmt.Sprintf("%d", review.Rating)}
	if review.Comment != "" {
		fields["comment"] = review.Comment
	}
	cl, err := multipartCall(http.MethodPost, fmt.Sprintf("requests/%d/review/", requestID), token, fields, review.Photo)
	if err != nil {
		return err
	}
	cl.kind = kindTransition
	return c.do(ctx, cl, nil)
}

// ListMessages сообщения чата по заявке.
func (c *Client) ListMessages(ctx context.Context, token string, requestID int64) ([]models.ChatMessage, error) {
	var items page[models.ChatMessage]
	cl := call{method: http.MethodGet, path: fmt.Sprintf("requests/%d/messages/", requestID), token: token}
	if err := c.do(ctx, cl, &items); err != nil {
		return nil, err
	}
	return items.items(), nil
}

// SendMessage отправляет сообщение в чат заявки.
func (c *Client) SendMessage(ctx context.Context, token string, requestID int64, content string) (*models.ChatMessage, error) {
	cl, err := jsonCall(http.MethodPost, fmt.Sprintf("requests/%d/messages/", requestID), token, map[string]string{"content": content})
	if err != nil {
		return nil, err
	}
	var msg models.ChatMessage
	if err := c.do(ctx, cl, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
