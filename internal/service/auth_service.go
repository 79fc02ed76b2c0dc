package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fazpramim/portal/internal/backend"
	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
	"github.com/fazpramim/portal/internal/session"
	"github.com/fazpramim/portal/internal/validation"
)

// AuthBackend вызовы бэкенда для входа и регистрации.
type AuthBackend interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
	RegisterClient(ctx context.Context, r backend.ClientRegistration) (*backend.RegistrationResult, error)
	RegisterProvider(ctx context.Context, r backend.ProviderRegistration) (*backend.RegistrationResult, error)
	GetProviderProfile(ctx context.Context, token string) (*models.Provider, error)
}

// SessionNotifier закрывает realtime подключения сессии.
type SessionNotifier interface {
	SendToSession(sessionID, event string, data any) error
	CloseSession(sessionID string)
}

// LoginRoute куда отправлять пользователя без сессии.
const LoginRoute = "/login"

// EventSessionExpired событие WebSocket: сессия завершена, нужен повторный вход.
const EventSessionExpired = "session_expired"

// AuthService вход, регистрация и завершение сессий портала.
type AuthService struct {
	backend  AuthBackend
	sessions *session.Manager
	tokens   *session.TokenManager
	notifier SessionNotifier
}

// LoginResult ответ портала на успешный вход.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
	Redirect  string      `json:"redirect"`
}

// RegistrationResult ответ портала на регистрацию.
type RegistrationResult struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

// NewAuthService создаёт сервис аутентификации. notifier может быть nil.
func NewAuthService(b AuthBackend, sessions *session.Manager, tokens *session.TokenManager, notifier SessionNotifier) *AuthService {
	return &AuthService{
		backend:  b,
		sessions: sessions,
		tokens:   tokens,
		notifier: notifier,
	}
}

// Login проверяет форму, входит на бэкенде и открывает сессию портала.
func (s *AuthService) Login(ctx context.Context, form validation.LoginForm) (*LoginResult, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	res, err := s.backend.Login(ctx, strings.TrimSpace(form.Email), form.Senha)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, res.User, res.Token)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "Não foi possível iniciar a sessão.")
	}

	log := logger.WithComponent("auth").WithFields(logrus.Fields{
		"session_id": sess.ID,
		"user_id":    res.User.ID,
		"role":       res.User.Role,
	})

	if res.User.Role == models.RoleProvider {
		// профиль нужен кабинету исполнителя, без него вход все равно успешен
		if profile, err := s.backend.GetProviderProfile(ctx, res.Token); err != nil {
			log.WithError(err).Warn("не удалось загрузить профиль исполнителя")
		} else if err := s.sessions.UpdateProviderProfile(ctx, sess.ID, profile); err != nil {
			log.WithError(err).Warn("не удалось сохранить профиль исполнителя в сессии")
		}
	}

	token, exp, err := s.tokens.Issue(sess)
	if err != nil {
		_ = s.sessions.Destroy(ctx, sess.ID)
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "Não foi possível iniciar a sessão.")
	}

	log.Info("пользователь вошел")
	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		User:      res.User,
		Redirect:  res.User.Role.HomeRoute(),
	}, nil
}

// RegisterClient регистрирует клиента. Документ удостоверения обязателен.
func (s *AuthService) RegisterClient(ctx context.Context, form validation.ClientRegistrationForm, identity, picture *models.Attachment) (*RegistrationResult, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, apperror.Validation("Verifique os campos destacados.", map[string]string{
			"identity_document": "Por favor, envie um documento de identidade. Obrigatório.",
		})
	}

	res, err := s.backend.RegisterClient(ctx, backend.ClientRegistration{
		FullName:         strings.TrimSpace(form.NomeCompleto),
		Email:            strings.TrimSpace(form.Email),
		Password:         form.Senha,
		PasswordConfirm:  form.ConfirmarSenha,
		CPF:              strings.TrimSpace(form.CPF),
		Phone:            strings.TrimSpace(form.Telefone),
		Address:          strings.TrimSpace(form.Endereco),
		IdentityDocument: identity,
		ProfilePicture:   picture,
	})
	if err != nil {
		return nil, err
	}
	return registered(res, "Cadastro realizado com sucesso! Faça login para continuar."), nil
}

// RegisterProvider регистрирует исполнителя.
func (s *AuthService) RegisterProvider(ctx context.Context, form validation.ProviderRegistrationForm, identity, certifications *models.Attachment) (*RegistrationResult, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, apperror.Validation("Verifique os campos destacados.", map[string]string{
			"identity_document": "Por favor, envie um documento de identidade. Obrigatório.",
		})
	}

	res, err := s.backend.RegisterProvider(ctx, backend.ProviderRegistration{
		FullName:               strings.TrimSpace(form.NomeCompleto),
		Email:                  strings.TrimSpace(form.Email),
		Password:               form.Senha,
		PasswordConfirm:        form.ConfirmarSenha,
		Phone:                  strings.TrimSpace(form.Telefone),
		ServiceAddress:         strings.TrimSpace(form.Endereco),
		TechnicalQualification: strings.TrimSpace(form.QualificacaoTecnica),
		IdentityDocument:       identity,
		Certifications:         certifications,
	})
	if err != nil {
		return nil, err
	}
	return registered(res, "Cadastro de prestador realizado com sucesso! Aguarde a aprovação e faça login."), nil
}

func registered(res *backend.RegistrationResult, fallback string) *RegistrationResult {
	out := &RegistrationResult{Message: fallback, Redirect: LoginRoute}
	if res != nil && res.Message != "" {
		out.Message = res.Message
	}
	return out
}

// Logout закрывает подключения и удаляет сессию.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if s.notifier != nil {
		s.notifier.CloseSession(sessionID)
	}
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "Não foi possível encerrar a sessão.")
	}
	logger.WithComponent("auth").WithField("session_id", sessionID).Info("пользователь вышел")
	return nil
}

// ExpireBackendToken вызывается, когда бэкенд ответил 401 на токен:
// все сессии с этим токеном завершаются, браузеры получают session_expired.
func (s *AuthService) ExpireBackendToken(ctx context.Context, backendToken string) []string {
	ids := s.sessions.ExpireByToken(ctx, backendToken)
	if s.notifier == nil {
		return ids
	}
	for _, id := range ids {
		_ = s.notifier.SendToSession(id, EventSessionExpired, map[string]string{"redirect": LoginRoute})
		s.notifier.CloseSession(id)
	}
	return ids
}
