package common

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/http/middleware"
	"github.com/fazpramim/portal/internal/pkg/apperror"
	"github.com/fazpramim/portal/internal/session"
)

// MaxMultipartMemory сколько multipart формы держать в памяти, остальное во временных файлах.
const MaxMultipartMemory = 32 << 20

// Fail передает ошибку в ErrorHandler и прерывает цепочку.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// CurrentSession сессия пользователя или 401, если middleware ее не положил.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		Fail(c, apperror.ErrUnauthorized.WithRedirect(middleware.LoginRoute))
		return nil, false
	}
	return sess, true
}

// ParseIDParam числовой идентификатор из пути.
func ParseIDParam(c *gin.Context, paramName string) (int64, bool) {
	id, err := middleware.ParseID(c, paramName)
	if err != nil {
		Fail(c, err)
		return 0, false
	}
	return id, true
}

// ParseFloatQuery читает дробный query параметр. Принимает и запятую как разделитель.
func ParseFloatQuery(c *gin.Context, key string, fallback float64) float64 {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// Bind разбирает JSON или форму в зависимости от Content-Type.
func Bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil {
		Fail(c, apperror.Wrap(err, apperror.ErrCodeBadRequest, "Requisição inválida."))
		return false
	}
	return true
}

// MultipartForm разбирает multipart запрос. Для других Content-Type возвращает nil без ошибки.
func MultipartForm(c *gin.Context) (*multipart.Form, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, true
	}
	form, err := c.MultipartForm()
	if err != nil {
		Fail(c, apperror.Wrap(err, apperror.ErrCodeBadRequest, "Não foi possível ler o formulário."))
		return nil, false
	}
	return form, true
}

// MessageResponse короткий ответ с сообщением для пользователя.
type MessageResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}
