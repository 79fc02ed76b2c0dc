package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fazpramim/portal/internal/backend"
	"github.com/fazpramim/portal/internal/chat"
	"github.com/fazpramim/portal/internal/config"
	"github.com/fazpramim/portal/internal/http/handlers"
	"github.com/fazpramim/portal/internal/http/middleware"
	"github.com/fazpramim/portal/internal/lifecycle"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
	"github.com/fazpramim/portal/internal/service"
	"github.com/fazpramim/portal/internal/session"
	"github.com/fazpramim/portal/internal/storage"
	"github.com/fazpramim/portal/internal/ws"
)

const testOrigin = "http://localhost:5173"

var (
	clientUser   = models.User{ID: "10", Email: "ana@example.com", Name: "Ana", Role: models.RoleClient}
	providerUser = models.User{ID: "20", Email: "carlos@example.com", Name: "Carlos", Role: models.RoleProvider}
)

// fakeUpstream бэкенд маркетплейса в памяти.
type fakeUpstream struct {
	mu       sync.Mutex
	users    map[string]models.User
	requests []models.ServiceRequest
	messages []models.ChatMessage
	// unauthorized заставляет списки заявок отвечать 401
	unauthorized bool
	accepted     []int64
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{users: map[string]models.User{
		clientUser.Email:   clientUser,
		providerUser.Email: providerUser,
	}}
}

func (f *fakeUpstream) setRequests(reqs ...models.ServiceRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = reqs
}

func (f *fakeUpstream) setStatus(id int64, status models.RequestStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.requests {
		if f.requests[i].ID == id {
			f.requests[i].Status = status
		}
	}
}

func (f *fakeUpstream) setUnauthorized(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthorized = v
}

func (f *fakeUpstream) list() ([]models.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unauthorized {
		return nil, apperror.ErrUnauthorized
	}
	out := make([]models.ServiceRequest, len(f.requests))
	copy(out, f.requests)
	return out, nil
}

func (f *fakeUpstream) Login(_ context.Context, email, password string) (*backend.LoginResult, error) {
	u, ok := f.users[email]
	if !ok || password != "Senha123" {
		return nil, apperror.ErrInvalidCredentials
	}
	return &backend.LoginResult{Token: "tok-" + u.ID, User: u}, nil
}

func (f *fakeUpstream) RegisterClient(context.Context, backend.ClientRegistration) (*backend.RegistrationResult, error) {
	return &backend.RegistrationResult{Message: "ok"}, nil
}

func (f *fakeUpstream) RegisterProvider(context.Context, backend.ProviderRegistration) (*backend.RegistrationResult, error) {
	return &backend.RegistrationResult{Message: "ok"}, nil
}

func (f *fakeUpstream) GetProviderProfile(context.Context, string) (*models.Provider, error) {
	return &models.Provider{ID: 5}, nil
}

func (f *fakeUpstream) SearchProviders(context.Context, string, string) ([]models.Provider, error) {
	return nil, nil
}

func (f *fakeUpstream) GetProvider(context.Context, string, int64) (*models.Provider, error) {
	return nil, apperror.ErrProviderNotFound
}

func (f *fakeUpstream) GetClientProfile(context.Context, string, string) (*models.ClientProfile, error) {
	return &models.ClientProfile{}, nil
}

func (f *fakeUpstream) UpdateClientProfile(context.Context, string, string, map[string]string, *models.Attachment) (*models.ClientProfile, error) {
	return &models.ClientProfile{}, nil
}

func (f *fakeUpstream) UpdateProviderProfile(context.Context, string, map[string]string, ...*models.Attachment) (*models.Provider, error) {
	return &models.Provider{ID: 5}, nil
}

func (f *fakeUpstream) ListProviderReviews(context.Context, string) ([]models.Review, error) {
	return nil, nil
}

func (f *fakeUpstream) AddPortfolioPhoto(context.Context, string, *models.Attachment, string, string) (*models.PortfolioPhoto, error) {
	return &models.PortfolioPhoto{}, nil
}

func (f *fakeUpstream) DeletePortfolioPhoto(context.Context, string, int64) error {
	return nil
}

func (f *fakeUpstream) CreateServiceRequest(_ context.Context, _ string, providerID int64, req models.NewServiceRequest) (*models.ServiceRequest, error) {
	r := request(99, models.StatusPending)
	return &r, nil
}

func (f *fakeUpstream) ListClientRequests(context.Context, string) ([]models.ServiceRequest, error) {
	return f.list()
}

func (f *fakeUpstream) ListProviderRequests(context.Context, string, models.RequestStatus) ([]models.ServiceRequest, error) {
	return f.list()
}

func (f *fakeUpstream) AcceptRequest(_ context.Context, _ string, id int64) (*models.TransitionResult, error) {
	f.mu.Lock()
	f.accepted = append(f.accepted, id)
	f.mu.Unlock()
	return &models.TransitionResult{Status: models.StatusAccepted}, nil
}

func (f *fakeUpstream) RejectRequest(context.Context, string, int64) (*models.TransitionResult, error) {
	return &models.TransitionResult{Status: models.StatusRejected}, nil
}

func (f *fakeUpstream) CompleteRequest(context.Context, string, int64) (*models.TransitionResult, error) {
	return &models.TransitionResult{Status: models.StatusCompleted}, nil
}

func (f *fakeUpstream) SubmitReview(context.Context, string, int64, backend.ReviewSubmission) error {
	return nil
}

func (f *fakeUpstream) ListMessages(context.Context, string, int64) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ChatMessage, len(f.messages))
	copy(out, f.messages)
	return out, nil
}

func (f *fakeUpstream) SendMessage(_ context.Context, _ string, _ int64, content string) (*models.ChatMessage, error) {
	return &models.ChatMessage{ID: 1, Content: content, IsFromClient: true}, nil
}

func request(id int64, status models.RequestStatus) models.ServiceRequest {
	return models.ServiceRequest{
		ID:            id,
		Client:        &models.Party{ID: 10, Username: "ana"},
		Provider:      &models.Party{ID: 20, Username: "carlos"},
		Description:   "Conserto de torneira",
		ProposedValue: models.NewAmount(150),
		Status:        status,
	}
}

type portal struct {
	engine   *gin.Engine
	upstream *fakeUpstream
	sessions *session.Manager
	hub      *ws.Hub
}

func testConfig() *config.Config {
	return &config.Config{
		Env:             "test",
		AllowedOrigins:  []string{testOrigin},
		RateLimitLimit:  100,
		APIRateLimit:    1000,
		RateLimitPeriod: time.Minute,
	}
}

func newPortal(t *testing.T, cfg *config.Config) *portal {
	t.Helper()
	gin.SetMode(gin.TestMode)

	up := newFakeUpstream()
	sessions := session.NewManager(nil, time.Hour)
	tokens := session.NewTokenManager("test-secret", time.Hour)
	media, err := storage.NewMediaResolver("https://api.example.com")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := ws.NewHub()
	go hub.Run(ctx)

	cache := service.NewCacheService()
	authService := service.NewAuthService(up, sessions, tokens, hub)
	profiles := service.NewProfileService(up, sessions, cache, media)
	lc := lifecycle.NewService(up, lifecycle.NewMemoryFlagStore(time.Hour))

	h := Handlers{
		Health:    handlers.NewHealthHandler(nil, nil),
		Auth:      handlers.NewAuthHandler(authService),
		Catalog:   handlers.NewCatalogHandler(service.NewCatalogService(up, cache, media), lc),
		Requests:  handlers.NewRequestHandler(lc),
		Reviews:   handlers.NewReviewHandler(lc),
		Dashboard: handlers.NewDashboardHandler(lc, profiles),
		Profiles:  handlers.NewProfileHandler(profiles),
		Portfolio: handlers.NewPortfolioHandler(service.NewPortfolioService(up, cache, media)),
		WS: handlers.NewWSHandler(hub, lc, authService, chat.Options{
			Interval:   10 * time.Millisecond,
			MaxBackoff: 50 * time.Millisecond,
		}, middleware.OriginChecker(cfg.AllowedOrigins)),
	}

	return &portal{
		engine:   SetupRouter(cfg, h, tokens, sessions, authService),
		upstream: up,
		sessions: sessions,
		hub:      hub,
	}
}

func (p *portal) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	p.engine.ServeHTTP(w, req)
	return w
}

func (p *portal) login(t *testing.T, email string) service.LoginResult {
	t.Helper()
	w := p.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "senha": "Senha123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.LoginResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponse {
	t.Helper()
	var res middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func TestLogin_RedirectsByRole(t *testing.T) {
	p := newPortal(t, testConfig())

	client := p.login(t, clientUser.Email)
	assert.Equal(t, "/", client.Redirect)
	assert.NotEmpty(t, client.Token)

	provider := p.login(t, providerUser.Email)
	assert.Equal(t, "/home-prestador", provider.Redirect)

	w := p.do(http.MethodGet, "/api/auth/me", provider.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me handlers.MeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, providerUser.ID, me.User.ID)
	assert.Equal(t, "/home-prestador", me.Home)
	require.NotNil(t, me.ProviderProfile)
	assert.Equal(t, int64(5), me.ProviderProfile.ID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	p := newPortal(t, testConfig())

	w := p.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": clientUser.Email, "senha": "errada"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	res := decodeError(t, w)
	assert.Equal(t, "E-mail ou senha inválidos.", res.Error)
	assert.Equal(t, 0, p.sessions.Count())
}

func TestLogin_ValidationFields(t *testing.T) {
	p := newPortal(t, testConfig())

	w := p.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "nao-e-email", "senha": ""})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	res := decodeError(t, w)
	assert.Equal(t, string(apperror.ErrCodeValidation), res.Code)
	assert.Contains(t, res.Fields, "email")
	assert.Contains(t, res.Fields, "senha")
}

func TestProtectedRoute_RequiresSession(t *testing.T) {
	p := newPortal(t, testConfig())

	w := p.do(http.MethodGet, "/api/requests", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", decodeError(t, w).Redirect)

	w = p.do(http.MethodGet, "/api/requests", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueryToken_OnlyForWebSocket(t *testing.T) {
	p := newPortal(t, testConfig())
	p.upstream.setRequests(request(42, models.StatusPending))
	login := p.login(t, clientUser.Email)

	w := p.do(http.MethodGet, "/api/requests?token="+login.Token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = p.do(http.MethodGet, "/api/auth/me?token="+login.Token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// на маршруте чата токен из параметра принимается: дальше срабатывает проверка статуса
	w = p.do(http.MethodGet, "/api/requests/42/chat/ws?token="+login.Token, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogout_DestroysSession(t *testing.T) {
	p := newPortal(t, testConfig())
	login := p.login(t, clientUser.Email)

	w := p.do(http.MethodPost, "/api/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = p.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvalidIDParam(t *testing.T) {
	p := newPortal(t, testConfig())
	login := p.login(t, providerUser.Email)

	for _, path := range []string{"/api/requests/abc/accept", "/api/requests/0/accept", "/api/requests/-3/accept"} {
		w := p.do(http.MethodPost, path, login.Token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, string(apperror.ErrCodeBadRequest), decodeError(t, w).Code, path)
	}
	assert.Empty(t, p.upstream.accepted)
}

func TestAccept_MovesToInProgress(t *testing.T) {
	p := newPortal(t, testConfig())
	p.upstream.setRequests(request(7, models.StatusPending))
	login := p.login(t, providerUser.Email)

	w := p.do(http.MethodPost, "/api/requests/7/accept", login.Token, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res lifecycle.TransitionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, models.StatusAccepted, res.Status)
	assert.Equal(t, lifecycle.TabPending, res.Move.From)
	assert.Equal(t, lifecycle.TabInProgress, res.Move.To)
	assert.Equal(t, []int64{7}, p.upstream.accepted)
}

func TestAccept_ClientForbidden(t *testing.T) {
	p := newPortal(t, testConfig())
	p.upstream.setRequests(request(7, models.StatusPending))
	login := p.login(t, clientUser.Email)

	w := p.do(http.MethodPost, "/api/requests/7/accept", login.Token, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, p.upstream.accepted)
}

func TestUpstreamUnauthorized_ExpiresSession(t *testing.T) {
	p := newPortal(t, testConfig())
	login := p.login(t, clientUser.Email)
	p.upstream.setUnauthorized(true)

	w := p.do(http.MethodGet, "/api/requests", login.Token, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", decodeError(t, w).Redirect)
	assert.Equal(t, 0, p.sessions.Count())

	p.upstream.setUnauthorized(false)
	w = p.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatWS_PendingRequestRedirectsBeforeUpgrade(t *testing.T) {
	p := newPortal(t, testConfig())
	p.upstream.setRequests(request(42, models.StatusPending))
	login := p.login(t, clientUser.Email)

	w := p.do(http.MethodGet, "/api/requests/42/chat/ws?token="+login.Token, "", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "/solicitacoes-cliente", decodeError(t, w).Redirect)
}

func TestChatWS_StreamsMessagesAndCloses(t *testing.T) {
	p := newPortal(t, testConfig())
	p.upstream.setRequests(request(42, models.StatusAccepted))
	p.upstream.messages = []models.ChatMessage{
		{ID: 1, Content: "Olá", IsFromClient: true},
		{ID: 2, Content: "Bom dia", IsFromClient: false},
	}
	login := p.login(t, clientUser.Email)

	srv := httptest.NewServer(p.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/requests/42/chat/ws?token=" + login.Token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first struct {
		Type string               `json:"type"`
		Data []models.ChatMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, handlers.EventChatMessages, first.Type)
	require.Len(t, first.Data, 2)
	assert.Equal(t, "Olá", first.Data[0].Content)

	// заявка отклонена: чат закрывается с переходом к списку
	p.upstream.setStatus(42, models.StatusRejected)

	var closed struct {
		Type string              `json:"type"`
		Data handlers.ChatClosed `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&closed))
	assert.Equal(t, handlers.EventChatClosed, closed.Type)
	assert.Equal(t, "/solicitacoes-cliente", closed.Data.Redirect)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
}

func TestChatWS_RejectsForeignOrigin(t *testing.T) {
	p := newPortal(t, testConfig())
	p.upstream.setRequests(request(42, models.StatusAccepted))
	login := p.login(t, clientUser.Email)

	srv := httptest.NewServer(p.engine)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/requests/42/chat/ws?token=" + login.Token
	header := http.Header{"Origin": []string{"http://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCORS_Preflight(t *testing.T) {
	p := newPortal(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	p.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, testOrigin, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitLimit = 2
	p := newPortal(t, cfg)

	body := gin.H{"email": clientUser.Email, "senha": "errada"}
	for i := 0; i < 2; i++ {
		w := p.do(http.MethodPost, "/api/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := p.do(http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Code)
}

func TestHealth(t *testing.T) {
	p := newPortal(t, testConfig())

	w := p.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}
