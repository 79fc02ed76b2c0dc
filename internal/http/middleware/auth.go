package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/pkg/apperror"
	"github.com/fazpramim/portal/internal/session"
)

// Context ключи для gin.Context.
const (
	ContextSessionKey = "session"
	ContextUserIDKey  = "userID"
	ContextRoleKey    = "role"
)

// LoginRoute страница входа, куда уводим пользователя без сессии.
const LoginRoute = "/login"

var errSessionRequired = apperror.ErrUnauthorized.WithRedirect(LoginRoute)

// SessionAuth проверяет JWT портала из заголовка Authorization и загружает серверную сессию.
func SessionAuth(tokens *session.TokenManager, sessions *session.Manager) gin.HandlerFunc {
	return sessionAuth(tokens, sessions, false)
}

// WebSocketSessionAuth то же для WebSocket: браузер не умеет ставить заголовки
// при upgrade, поэтому токен допускается и в параметре token.
func WebSocketSessionAuth(tokens *session.TokenManager, sessions *session.Manager) gin.HandlerFunc {
	return sessionAuth(tokens, sessions, true)
}

func sessionAuth(tokens *session.TokenManager, sessions *session.Manager, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" && allowQuery {
			raw = c.Query("token")
		}
		if raw == "" {
			abortWithError(c, errSessionRequired)
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil || claims.SessionID == "" {
			abortWithError(c, errSessionRequired)
			return
		}

		sess, ok := sessions.Get(claims.SessionID)
		if !ok {
			abortWithError(c, errSessionRequired)
			return
		}

		c.Set(ContextSessionKey, sess)
		c.Set(ContextUserIDKey, sess.User.ID)
		c.Set(ContextRoleKey, string(sess.User.Role))
		c.Next()
	}
}

// CurrentSession сессия, загруженная SessionAuth.
func CurrentSession(c *gin.Context) (*session.Session, bool) {
	raw, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, false
	}
	sess, ok := raw.(*session.Session)
	return sess, ok && sess != nil
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
