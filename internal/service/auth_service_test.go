package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fazpramim/portal/internal/backend"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
	"github.com/fazpramim/portal/internal/session"
	"github.com/fazpramim/portal/internal/validation"
)

// mockAuthBackend реализует AuthBackend для тестов.
type mockAuthBackend struct {
	users        map[string]models.User
	tokens       map[string]string
	profile      *models.Provider
	profileErr   error
	clientRegs   []backend.ClientRegistration
	providerRegs []backend.ProviderRegistration
	registerErr  error
}

func newMockAuthBackend() *mockAuthBackend {
	return &mockAuthBackend{
		users: map[string]models.User{
			"ana@example.com":    {ID: "10", Email: "ana@example.com", Name: "ana", Role: models.RoleClient},
			"carlos@example.com": {ID: "20", Email: "carlos@example.com", Name: "carlos", Role: models.RoleProvider},
		},
		tokens: map[string]string{
			"ana@example.com":    "tok-ana",
			"carlos@example.com": "tok-carlos",
		},
	}
}

func (m *mockAuthBackend) Login(ctx context.Context, email, password string) (*backend.LoginResult, error) {
	u, ok := m.users[email]
	if !ok || password != "Senha123" {
		return nil, apperror.ErrInvalidCredentials
	}
	return &backend.LoginResult{Token: m.tokens[email], User: u}, nil
}

func (m *mockAuthBackend) RegisterClient(ctx context.Context, r backend.ClientRegistration) (*backend.RegistrationResult, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	m.clientRegs = append(m.clientRegs, r)
	return &backend.RegistrationResult{}, nil
}

func (m *mockAuthBackend) RegisterProvider(ctx context.Context, r backend.ProviderRegistration) (*backend.RegistrationResult, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	m.providerRegs = append(m.providerRegs, r)
	return &backend.RegistrationResult{Message: "Cadastro enviado para análise."}, nil
}

func (m *mockAuthBackend) GetProviderProfile(ctx context.Context, token string) (*models.Provider, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profile, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   map[string][]string
	closed []string
}

func (n *recordingNotifier) SendToSession(sessionID, event string, data any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string][]string{}
	}
	n.sent[sessionID] = append(n.sent[sessionID], event)
	return nil
}

func (n *recordingNotifier) CloseSession(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, sessionID)
}

func newAuthFixture(b *mockAuthBackend) (*AuthService, *session.Manager, *session.TokenManager, *recordingNotifier) {
	sessions := session.NewManager(nil, time.Hour)
	tokens := session.NewTokenManager("test-secret", time.Hour)
	notifier := &recordingNotifier{}
	return NewAuthService(b, sessions, tokens, notifier), sessions, tokens, notifier
}

func TestAuthService_LoginRoutesByRole(t *testing.T) {
	b := newMockAuthBackend()
	b.profile = &models.Provider{ID: 5, FullName: "Carlos Souza"}
	svc, sessions, tokens, _ := newAuthFixture(b)

	cases := []struct {
		email    string
		redirect string
		role     models.Role
	}{
		{"ana@example.com", "/", models.RoleClient},
		{"carlos@example.com", "/home-prestador", models.RoleProvider},
	}
	for _, tc := range cases {
		t.Run(tc.email, func(t *testing.T) {
			res, err := svc.Login(context.Background(), validation.LoginForm{Email: " " + tc.email + " ", Senha: "Senha123"})
			require.NoError(t, err)
			assert.Equal(t, tc.redirect, res.Redirect)
			assert.Equal(t, tc.role, res.User.Role)

			claims, err := tokens.Parse(res.Token)
			require.NoError(t, err)
			sess, ok := sessions.Get(claims.SessionID)
			require.True(t, ok)
			assert.Equal(t, b.tokens[tc.email], sess.BackendToken)
			assert.Equal(t, tc.role == models.RoleProvider, sess.ProviderProfile != nil)
		})
	}
}

func TestAuthService_LoginProviderProfileFailureIsNotFatal(t *testing.T) {
	b := newMockAuthBackend()
	b.profileErr = apperror.New(apperror.ErrCodeNetwork, "Erro de conexão.")
	svc, _, _, _ := newAuthFixture(b)

	res, err := svc.Login(context.Background(), validation.LoginForm{Email: "carlos@example.com", Senha: "Senha123"})
	require.NoError(t, err)
	assert.Equal(t, "/home-prestador", res.Redirect)
}

func TestAuthService_LoginErrors(t *testing.T) {
	svc, sessions, _, _ := newAuthFixture(newMockAuthBackend())

	_, err := svc.Login(context.Background(), validation.LoginForm{Email: "not-an-email", Senha: ""})
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "senha")

	_, err = svc.Login(context.Background(), validation.LoginForm{Email: "ana@example.com", Senha: "errada"})
	assert.True(t, apperror.IsUnauthorized(err))
	assert.Equal(t, 0, sessions.Count())
}

func TestAuthService_LogoutAndExpire(t *testing.T) {
	svc, sessions, tokens, notifier := newAuthFixture(newMockAuthBackend())

	first, err := svc.Login(context.Background(), validation.LoginForm{Email: "ana@example.com", Senha: "Senha123"})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), validation.LoginForm{Email: "ana@example.com", Senha: "Senha123"})
	require.NoError(t, err)

	c1, _ := tokens.Parse(first.Token)
	c2, _ := tokens.Parse(second.Token)

	require.NoError(t, svc.Logout(context.Background(), c1.SessionID))
	_, ok := sessions.Get(c1.SessionID)
	assert.False(t, ok)
	assert.Contains(t, notifier.closed, c1.SessionID)

	ids := svc.ExpireBackendToken(context.Background(), "tok-ana")
	assert.Equal(t, []string{c2.SessionID}, ids)
	assert.Equal(t, []string{"session_expired"}, notifier.sent[c2.SessionID])
	assert.Equal(t, 0, sessions.Count())
}

func TestAuthService_RegisterClient(t *testing.T) {
	b := newMockAuthBackend()
	svc, _, _, _ := newAuthFixture(b)

	form := validation.ClientRegistrationForm{
		NomeCompleto:   "Ana Maria Silva",
		Email:          "ana.maria@example.com",
		CPF:            "123.456.789-09",
		Senha:          "Senha123",
		ConfirmarSenha: "Senha123",
		Telefone:       "(11) 98765-4321",
		Endereco:       "Rua das Flores, 123",
	}
	doc := &models.Attachment{Field: "identity_document", Filename: "rg.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}

	_, err := svc.RegisterClient(context.Background(), form, nil, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	res, err := svc.RegisterClient(context.Background(), form, doc, nil)
	require.NoError(t, err)
	assert.Equal(t, LoginRoute, res.Redirect)
	assert.Equal(t, "Cadastro realizado com sucesso! Faça login para continuar.", res.Message)
	require.Len(t, b.clientRegs, 1)
	assert.Equal(t, "Ana Maria Silva", b.clientRegs[0].FullName)
	assert.Same(t, doc, b.clientRegs[0].IdentityDocument)
}

func TestAuthService_RegisterProviderPassesBackendMessage(t *testing.T) {
	b := newMockAuthBackend()
	svc, _, _, _ := newAuthFixture(b)

	form := validation.ProviderRegistrationForm{
		NomeCompleto:        "Carlos Souza",
		Email:               "carlos.souza@example.com",
		Senha:               "Senha123",
		ConfirmarSenha:      "Senha123",
		Telefone:            "(21) 91234-5678",
		Endereco:            "Av. Brasil, 1000",
		QualificacaoTecnica: "Eletricista com 10 anos de experiência em instalações residenciais",
	}
	doc := &models.Attachment{Field: "identity_document", Filename: "rg.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}

	res, err := svc.RegisterProvider(context.Background(), form, doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "Cadastro enviado para análise.", res.Message)
	require.Len(t, b.providerRegs, 1)
	assert.Equal(t, "Av. Brasil, 1000", b.providerRegs[0].ServiceAddress)

	b.registerErr = apperror.New(apperror.ErrCodeServerValidation, "EMAIL: Este e-mail já está em uso.")
	_, err = svc.RegisterProvider(context.Background(), form, doc, nil)
	assert.True(t, apperror.IsServerValidation(err))
}
