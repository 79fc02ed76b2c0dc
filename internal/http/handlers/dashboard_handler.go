package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/http/handlers/common"
	"github.com/fazpramim/portal/internal/lifecycle"
	"github.com/fazpramim/portal/internal/service"
)

// DashboardHandler кабинет исполнителя: счетчики, история и отзывы.
type DashboardHandler struct {
	lifecycle *lifecycle.Service
	profiles  *service.ProfileService
}

func NewDashboardHandler(lc *lifecycle.Service, profiles *service.ProfileService) *DashboardHandler {
	return &DashboardHandler{lifecycle: lc, profiles: profiles}
}

// Dashboard обрабатывает GET /api/provider/dashboard.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	sess, caller, ok := currentCaller(c)
	if !ok {
		return
	}

	dash, err := h.lifecycle.Dashboard(c.Request.Context(), caller)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":    sess.User,
		"profile": sess.ProviderProfile,
		"stats":   dash,
	})
}

// History обрабатывает GET /api/provider/history.
func (h *DashboardHandler) History(c *gin.Context) {
	_, caller, ok := currentCaller(c)
	if !ok {
		return
	}

	views, err := h.lifecycle.History(c.Request.Context(), caller)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": views, "count": len(views)})
}

// Reviews обрабатывает GET /api/provider/reviews.
func (h *DashboardHandler) Reviews(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}

	summary, err := h.profiles.ProviderReviews(c.Request.Context(), sess)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
