package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/pkg/apperror"
)

// IDParam проверяет, что параметр пути является положительным числом.
// Использование: router.GET("/requests/:id", IDParam("id"), handler.Get)
func IDParam(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := ParseID(c, paramName); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

// ParseID читает числовой идентификатор из пути.
func ParseID(c *gin.Context, paramName string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.New(apperror.ErrCodeBadRequest, "Identificador inválido.")
	}
	return id, nil
}
