package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/http/handlers/common"
	"github.com/fazpramim/portal/internal/lifecycle"
	"github.com/fazpramim/portal/internal/service"
	"github.com/fazpramim/portal/internal/validation"
)

// CatalogHandler поиск исполнителей и создание заявки.
type CatalogHandler struct {
	catalog   *service.CatalogService
	lifecycle *lifecycle.Service
}

func NewCatalogHandler(catalog *service.CatalogService, lc *lifecycle.Service) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, lifecycle: lc}
}

// Search обрабатывает GET /api/providers?search=&location=&min_rating=.
func (h *CatalogHandler) Search(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}

	providers, err := h.catalog.Search(c.Request.Context(), sess.BackendToken, service.SearchFilter{
		Term:      c.Query("search"),
		Location:  c.Query("location"),
		MinRating: common.ParseFloatQuery(c, "min_rating", 0),
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": providers, "count": len(providers)})
}

// Details обрабатывает GET /api/providers/:id.
func (h *CatalogHandler) Details(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}
	id, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}

	provider, err := h.catalog.Details(c.Request.Context(), sess.BackendToken, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, provider)
}

// CreateRequest обрабатывает POST /api/providers/:id/requests.
func (h *CatalogHandler) CreateRequest(c *gin.Context) {
	sess, caller, ok := currentCaller(c)
	if !ok {
		return
	}
	providerID, ok := common.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var form validation.ServiceRequestForm
	if !common.Bind(c, &form) {
		return
	}

	created, err := h.lifecycle.CreateRequest(c.Request.Context(), caller, providerID, form)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Solicitação enviada com sucesso!",
		"request":  created,
		"redirect": sess.User.Role.RequestsRoute(),
	})
}
