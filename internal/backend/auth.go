package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
)

// LoginResult результат входа: токен бэкенда и нормализованный пользователь.
type LoginResult struct {
	Token string
	User  models.User
}

// Login выполняет вход по email и паролю.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	cl, err := jsonCall(http.MethodPost, "login/", "", map[string]string{
		"username": email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Token string          `json:"token"`
		User  json.RawMessage `json:"user"`
	}
	if err := c.do(ctx, cl, &resp); err != nil {
		if apperror.IsUnauthorized(err) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, err
	}
	if resp.Token == "" {
		return nil, apperror.New(apperror.ErrCodeNetwork, "Resposta inválida do servidor.")
	}

	user, err := models.UserFromBackend(resp.User)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeNetwork, "Resposta inválida do servidor.")
	}
	if user.ID == "" {
		// без id нельзя ни открыть профиль клиента, ни привязать отметки заявок
		return nil, apperror.New(apperror.ErrCodeNetwork, "Resposta inválida do servidor.")
	}
	if user.Email == "" {
		user.Email = email
	}
	return &LoginResult{Token: resp.Token, User: user}, nil
}

// ClientRegistration данные регистрации клиента.
type ClientRegistration struct {
	FullName         string
	Email            string
	Password         string
	PasswordConfirm  string
	CPF              string
	Phone            string
	Address          string
	IdentityDocument *models.Attachment
	ProfilePicture   *models.Attachment
}

// ProviderRegistration данные регистрации исполнителя.
type ProviderRegistration struct {
	FullName               string
	Email                  string
	Password               string
	PasswordConfirm        string
	Phone                  string
	ServiceAddress         string
	TechnicalQualification string
	IdentityDocument       *models.Attachment
	Certifications         *models.Attachment
}

// RegistrationResult ответ бэкенда на регистрацию.
type RegistrationResult struct {
	Message string `json:"message"`
}

// RegisterClient регистрирует клиента (multipart) с ретраями.
func (c *Client) RegisterClient(ctx context.Context, r ClientRegistration) (*RegistrationResult, error) {
	cl, err := multipartCall(http.MethodPost, "register/client/", "", map[string]string{
		"username":  r.Email,
		"email":     r.Email,
		"password":  r.Password,
		"password2": r.PasswordConfirm,
		"full_name": r.FullName,
		"cpf":       r.CPF,
		"phone":     r.Phone,
		"address":   r.Address,
	}, r.IdentityDocument, r.ProfilePicture)
	if err != nil {
		return nil, err
	}
	return c.register(ctx, cl)
}

// RegisterProvider регистрирует исполнителя (multipart) с ретраями.
func (c *Client) RegisterProvider(ctx context.Context, r ProviderRegistration) (*RegistrationResult, error) {
	cl, err := multipartCall(http.MethodPost, "register/provider/", "", map[string]string{
		"username":                r.Email,
		"email":                   r.Email,
		"password":                r.Password,
		"password2":               r.PasswordConfirm,
		"full_name":               r.FullName,
		"professional_email":      r.Email,
		"service_address":         r.ServiceAddress,
		"technical_qualification": r.TechnicalQualification,
		"phone":                   r.Phone,
	}, r.IdentityDocument, r.Certifications)
	if err != nil {
		return nil, err
	}
	return c.register(ctx, cl)
}

// register повторяет запрос только при сетевых ошибках (обрыв, 5xx, не-JSON).
// Ошибки валидации 4xx возвращаются сразу. Задержка удваивается после каждой попытки.
func (c *Client) register(ctx context.Context, cl call) (*RegistrationResult, error) {
	log := logger.WithComponent("backend").WithField("path", cl.path)
	delay := c.delay

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		var res RegistrationResult
		err := c.do(ctx, cl, &res)
		if err == nil {
			return &res, nil
		}
		lastErr = err
		if !apperror.IsNetwork(err) || attempt == c.attempts {
			break
		}

		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
		}).WithError(err).Warn("регистрация не удалась, повторяем")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeNetwork, "A requisição foi cancelada.")
		}
		delay *= 2
	}
	return nil, lastErr
}
