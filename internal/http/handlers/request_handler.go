package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/http/handlers/common"
	"github.com/fazpramim/portal/internal/lifecycle"
	"github.com/fazpramim/portal/internal/validation"
)

// RequestHandler заявки текущего пользователя и переходы по статусам.
type RequestHandler struct {
	lifecycle *lifecycle.Service
}

func NewRequestHandler(lc *lifecycle.Service) *RequestHandler {
	return &RequestHandler{lifecycle: lc}
}

// List обрабатывает GET /api/requests?status=.
func (h *RequestHandler) List(c *gin.Context) {
	_, caller, ok := currentCaller(c)
	if !ok {
		return
	}

	views, err := h.lifecycle.ListRequests(c.Request.Context(), caller, c.Query("status"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": views, "count": len(views)})
}

// Board обрабатывает GET /api/requests/board: заявки по вкладкам.
func (h *RequestHandler) Board(c *gin.Context) {
	_, caller, ok := currentCaller(c)
	if !ok {
		return
	}

	board, err := h.lifecycle.Board(c.Request.Context(), caller)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// Accept обрабатывает POST /api/requests/:id/accept.
func (h *RequestHandler) Accept(c *gin.Context) {
	h.transition(c, h.lifecycle.Accept)
}

// Reject обрабатывает POST /api/requests/:id/reject.
func (h *RequestHandler) Reject(c *gin.Context) {
	h.transition(c, h.lifecycle.Reject)
}

func (h *RequestHandler) transition(c *gin.Context, fn func(ctx context.Context, c lifecycle.Caller, id int64) (*lifecycle.TransitionResult, error)) {
	_, caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), caller, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Complete обрабатывает POST /api/requests/:id/complete.
func (h *RequestHandler) Complete(c *gin.Context) {
	_, caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.lifecycle.Complete(c.Request.Context(), caller, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Messages обрабатывает GET /api/requests/:id/messages.
func (h *RequestHandler) Messages(c *gin.Context) {
	_, caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}

	thread, err := h.lifecycle.ChatThread(c.Request.Context(), caller, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// SendMessage обрабатывает POST /api/requests/:id/messages.
func (h *RequestHandler) SendMessage(c *gin.Context) {
	_, caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var form validation.MessageForm
	if !common.Bind(c, &form) {
		return
	}

	msg, err := h.lifecycle.SendMessage(c.Request.Context(), caller, id, form.Content)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
