package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/http/handlers/common"
	"github.com/fazpramim/portal/internal/models"
	"github.com/fazpramim/portal/internal/service"
	"github.com/fazpramim/portal/internal/upload"
	"github.com/fazpramim/portal/internal/validation"
)

// AuthHandler предоставляет HTTP слой для входа, выхода и регистрации.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login обрабатывает POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var form validation.LoginForm
	if !common.Bind(c, &form) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), form)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Logout обрабатывает POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), sess.ID); err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, common.MessageResponse{Message: "Você saiu da sua conta.", Redirect: service.LoginRoute})
}

// MeResponse текущий пользователь портала.
type MeResponse struct {
	User            models.User      `json:"user"`
	Home            string           `json:"home"`
	ProviderProfile *models.Provider `json:"provider_profile,omitempty"`
}

// Me обрабатывает GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, MeResponse{
		User:            sess.User,
		Home:            sess.User.Role.HomeRoute(),
		ProviderProfile: sess.ProviderProfile,
	})
}

// RegisterClient обрабатывает POST /api/auth/register/cliente (multipart).
func (h *AuthHandler) RegisterClient(c *gin.Context) {
	var form validation.ClientRegistrationForm
	if !common.Bind(c, &form) {
		return
	}
	mf, ok := common.MultipartForm(c)
	if !ok {
		return
	}

	identity, err := upload.FromForm(mf, upload.IdentityDocument, true)
	if err != nil {
		common.Fail(c, err)
		return
	}
	picture, err := upload.FromForm(mf, upload.ProfilePicture, false)
	if err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.auth.RegisterClient(c.Request.Context(), form, identity, picture)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// RegisterProvider обрабатывает POST /api/auth/register/prestador (multipart).
func (h *AuthHandler) RegisterProvider(c *gin.Context) {
	var form validation.ProviderRegistrationForm
	if !common.Bind(c, &form) {
		return
	}
	mf, ok := common.MultipartForm(c)
	if !ok {
		return
	}

	identity, err := upload.FromForm(mf, upload.IdentityDocument, true)
	if err != nil {
		common.Fail(c, err)
		return
	}
	certifications, err := upload.FromForm(mf, upload.Certifications, false)
	if err != nil {
		common.Fail(c, err)
		return
	}

	result, err := h.auth.RegisterProvider(c.Request.Context(), form, identity, certifications)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
