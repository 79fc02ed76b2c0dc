package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/http/handlers/common"
	"github.com/fazpramim/portal/internal/service"
	"github.com/fazpramim/portal/internal/upload"
	"github.com/fazpramim/portal/internal/validation"
)

// PortfolioHandler галерея работ исполнителя.
type PortfolioHandler struct {
	portfolio *service.PortfolioService
}

// NewPortfolioHandler создаёт новый handler для портфолио.
func NewPortfolioHandler(portfolio *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio}
}

// List обрабатывает GET /api/provider/portfolio.
func (h *PortfolioHandler) List(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}
	photos, err := h.portfolio.List(c.Request.Context(), sess)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

// Add обрабатывает POST /api/provider/portfolio (multipart: photo, title, description).
func (h *PortfolioHandler) Add(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}

	var form validation.PortfolioPhotoForm
	if !common.Bind(c, &form) {
		return
	}
	mf, ok := common.MultipartForm(c)
	if !ok {
		return
	}
	photo, err := upload.FromForm(mf, upload.PortfolioPhoto, false)
	if err != nil {
		common.Fail(c, err)
		return
	}

	added, err := h.portfolio.Add(c.Request.Context(), sess, form, photo)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

// Delete обрабатывает DELETE /api/provider/portfolio/:id.
func (h *PortfolioHandler) Delete(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.portfolio.Delete(c.Request.Context(), sess, id); err != nil {
		common.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
