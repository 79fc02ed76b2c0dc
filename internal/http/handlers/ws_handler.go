package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/fazpramim/portal/internal/chat"
	"github.com/fazpramim/portal/internal/goroutine"
	"github.com/fazpramim/portal/internal/http/handlers/common"
	"github.com/fazpramim/portal/internal/lifecycle"
	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/pkg/apperror"
	"github.com/fazpramim/portal/internal/service"
	"github.com/fazpramim/portal/internal/ws"
)

// События, которые браузер получает по WebSocket чата.
const (
	EventChatMessages = "chat_messages"
	EventChatClosed   = "chat_closed"
)

// WSHandler отвечает за WebSocket чата заявки.
type WSHandler struct {
	hub       *ws.Hub
	lifecycle *lifecycle.Service
	auth      *service.AuthService
	poll      chat.Options
	upgrader  websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. checkOrigin nil разрешает любой Origin.
func NewWSHandler(hub *ws.Hub, lc *lifecycle.Service, auth *service.AuthService, poll chat.Options, checkOrigin func(r *http.Request) bool) *WSHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &WSHandler{
		hub:       hub,
		lifecycle: lc,
		auth:      auth,
		poll:      poll,
		upgrader:  websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// ChatClosed данные события chat_closed.
type ChatClosed struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// Chat обслуживает GET /api/requests/:id/chat/ws?token=...
// Доступ к чату проверяется до upgrade, чтобы браузер получил обычный ответ с redirect.
func (h *WSHandler) Chat(c *gin.Context) {
	sess, caller, ok := currentCaller(c)
	if !ok {
		return
	}
	requestID, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := h.lifecycle.ChatRequest(c.Request.Context(), caller, requestID); err != nil {
		common.Fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader уже ответил клиенту
		logger.WithComponent("ws").WithError(err).Warn("не удалось открыть WebSocket")
		return
	}

	client := ws.NewClient(conn, h.hub, sess.ID)
	h.hub.Register(client)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	opts := h.poll
	opts.Fields = logrus.Fields{"session_id": sess.ID, "request_id": requestID}
	sub := chat.Subscribe(ctx, func(ctx context.Context) ([]models.ChatMessage, error) {
		return h.lifecycle.ChatMessages(ctx, caller, requestID)
	}, opts)
	defer sub.Stop()

	goroutine.SafeGo(func() { h.forward(client, sub, caller) })

	client.Run(ctx)
}

// forward пересылает новые сообщения клиенту, пока подписка или подключение живы.
func (h *WSHandler) forward(client *ws.Client, sub *chat.Subscription, caller lifecycle.Caller) {
	for {
		select {
		case <-client.Done():
			return
		case msgs, ok := <-sub.Messages():
			if !ok {
				h.closed(client, sub.Err(), caller)
				return
			}
			if err := client.Emit(EventChatMessages, msgs); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) closed(client *ws.Client, err error, caller lifecycle.Caller) {
	if err == nil {
		// подключение закрыто браузером
		return
	}

	if apperror.IsUnauthorized(err) {
		// ExpireBackendToken сам отправит session_expired и закроет подключения
		h.auth.ExpireBackendToken(context.Background(), caller.Token)
		return
	}

	closed := ChatClosed{
		Message:  "O chat desta solicitação não está mais disponível.",
		Redirect: caller.Role.RequestsRoute(),
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		closed.Message = appErr.Message
		if appErr.Redirect != "" {
			closed.Redirect = appErr.Redirect
		}
	}
	_ = client.Emit(EventChatClosed, closed)
	client.Close()
}
