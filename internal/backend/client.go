package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/pkg/apperror"
)

const (
	apiPrefix        = "/api/accounts/"
	maxResponseBytes = 8 << 20
)

// Options параметры клиента бэкенда.
type Options struct {
	Timeout          time.Duration
	RegisterAttempts int
	RegisterDelay    time.Duration
	// HTTPClient позволяет подменить транспорт (например, в тестах).
	HTTPClient *http.Client
}

// Client обращается к REST бэкенду маркетплейса от имени пользователя.
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient создаёт экземпляр клиента. baseURL единственный адрес бэкенда.
func NewClient(baseURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	attempts := opts.RegisterAttempts
	if attempts < 1 {
		attempts = 3
	}
	delay := opts.RegisterDelay
	if delay <= 0 {
		delay = time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		attempts:   attempts,
		delay:      delay,
		sleep:      sleepContext,
	}
}

// callKind определяет, как трактовать ответы с ошибкой.
type callKind int

const (
	kindRead callKind = iota
	// kindTransition смена статуса заявки: любой не-2xx кроме 401 означает отказ в правах.
	kindTransition
)

type call struct {
	method      string
	path        string
	token       string
	query       url.Values
	body        []byte
	contentType string
	kind        callKind
}

func jsonCall(method, path, token string, payload any) (call, error) {
	c := call{method: method, path: path, token: token}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return c, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать запрос")
		}
		c.body = body
		c.contentType = "application/json; charset=utf-8"
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + apiPrefix + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do выполняет запрос и декодирует JSON ответ в out (если out != nil).
func (c *Client) do(ctx context.Context, cl call, out any) error {
	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.path, cl.query), body)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось создать запрос к бэкенду")
	}
	req.Header.Set("Accept", "application/json")
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Token "+cl.token)
	}

	log := logger.WithComponent("backend").WithFields(logrus.Fields{
		"method": cl.method,
		"path":   cl.path,
	})

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return apperror.Wrap(ctx.Err(), apperror.ErrCodeNetwork, "A requisição foi cancelada.")
		}
		log.WithError(err).Warn("бэкенд недоступен")
		return apperror.Wrap(err, apperror.ErrCodeNetwork, "Não foi possível conectar ao servidor.")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeNetwork, "Falha ao ler a resposta do servidor.")
	}

	log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	}).Debug("ответ бэкенда")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapError(resp.StatusCode, data, cl.kind)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeNetwork, "Resposta inválida do servidor.")
	}
	return nil
}

// sleepContext ждёт d или отмены контекста.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// page принимает список как голый массив или как страницу DRF {"results": [...]}.
type page[T any] []T

func (p *page[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*p = items
		return nil
	}
	var wrapped struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*p = wrapped.Results
	return nil
}

func (p page[T]) items() []T {
	if p == nil {
		return []T{}
	}
	return []T(p)
}
