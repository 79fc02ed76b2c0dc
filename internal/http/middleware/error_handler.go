package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/pkg/apperror"
)

// ErrorResponse единый формат ошибки для браузера.
type ErrorResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

// TokenExpirer завершает все сессии, чей токен бэкенда перестал действовать.
type TokenExpirer interface {
	ExpireBackendToken(ctx context.Context, backendToken string) []string
}

const internalMessage = "Erro interno. Tente novamente mais tarde."

// ErrorHandler превращает ошибки из c.Errors в ErrorResponse.
// Если бэкенд ответил 401 на запрос с сессией, сессия завершается и
// клиент получает переход на страницу входа.
func ErrorHandler(expirer TokenExpirer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		appErr := toAppError(err)

		if appErr.Code == apperror.ErrCodeUnauthorized {
			if sess, ok := CurrentSession(c); ok {
				if expirer != nil {
					expirer.ExpireBackendToken(context.WithoutCancel(c.Request.Context()), sess.BackendToken)
				}
				appErr = apperror.ErrUnauthorized.WithRedirect(LoginRoute)
			}
		}

		entry := logger.WithComponent("http").WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"code":   appErr.Code,
			"status": appErr.HTTPStatus,
		})
		message := appErr.Message
		if appErr.HTTPStatus >= http.StatusInternalServerError && appErr.Code != apperror.ErrCodeNetwork {
			// внутренние детали наружу не отдаем
			entry.WithError(err).Error("ошибка запроса")
			message = internalMessage
		} else {
			entry.WithError(err).Warn("запрос отклонен")
		}

		c.JSON(appErr.HTTPStatus, ErrorResponse{
			Error:    message,
			Code:     string(appErr.Code),
			Fields:   appErr.Fields,
			Redirect: appErr.Redirect,
		})
	}
}

func toAppError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var ginErr *gin.Error
	if errors.As(err, &ginErr) && ginErr.Type == gin.ErrorTypeBind {
		return apperror.Wrap(err, apperror.ErrCodeBadRequest, "Requisição inválida.")
	}
	return apperror.Wrap(err, apperror.ErrCodeInternal, internalMessage)
}
