package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/http/handlers/common"
	"github.com/fazpramim/portal/internal/service"
	"github.com/fazpramim/portal/internal/upload"
	"github.com/fazpramim/portal/internal/validation"
)

// ProfileHandler профиль клиента и профиль исполнителя.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler создаёт хэндлер профилей.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetClient обрабатывает GET /api/client/profile.
func (h *ProfileHandler) GetClient(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}
	profile, err := h.profiles.ClientProfile(c.Request.Context(), sess)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateClient обрабатывает PUT /api/client/profile (JSON или multipart с profile_photo).
func (h *ProfileHandler) UpdateClient(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}

	var form validation.ClientProfileForm
	if !common.Bind(c, &form) {
		return
	}
	mf, ok := common.MultipartForm(c)
	if !ok {
		return
	}
	photo, err := upload.FromForm(mf, upload.ProfilePhoto, false)
	if err != nil {
		common.Fail(c, err)
		return
	}

	profile, err := h.profiles.UpdateClientProfile(c.Request.Context(), sess, form, photo)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Perfil atualizado com sucesso!", "profile": profile})
}

// GetProvider обрабатывает GET /api/provider/profile.
func (h *ProfileHandler) GetProvider(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}
	profile, err := h.profiles.ProviderProfile(c.Request.Context(), sess)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProvider обрабатывает PUT /api/provider/profile.
func (h *ProfileHandler) UpdateProvider(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}

	var form validation.ProviderProfileForm
	if !common.Bind(c, &form) {
		return
	}
	mf, ok := common.MultipartForm(c)
	if !ok {
		return
	}
	photo, err := upload.FromForm(mf, upload.ProfilePhoto, false)
	if err != nil {
		common.Fail(c, err)
		return
	}

	profile, err := h.profiles.UpdateProviderProfile(c.Request.Context(), sess, form, photo)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Perfil atualizado com sucesso!", "profile": profile})
}
