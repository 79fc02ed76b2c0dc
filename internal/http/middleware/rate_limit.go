package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/fazpramim/portal/internal/logger"
)

// KeyFunc ключ, по которому считаются запросы.
type KeyFunc func(c *gin.Context) string

// ByClientIP считает запросы по IP клиента.
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// BySession считает запросы по сессии, без сессии по IP.
func BySession(c *gin.Context) string {
	if sess, ok := CurrentSession(c); ok {
		return "sid:" + sess.ID
	}
	return c.ClientIP()
}

// RateLimitMiddleware ограничивает количество запросов за период.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(name string, limit int64, period time.Duration, key KeyFunc) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = time.Minute
	}
	if key == nil {
		key = ByClientIP
	}

	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "portal:" + name,
		CleanUpInterval: period,
	})
	instance := limiter.New(store, limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		lctx, err := instance.Get(c.Request.Context(), key(c))
		if err != nil {
			// лимитер в памяти не должен падать, но запрос из-за него не блокируем
			logger.WithComponent("ratelimit").WithError(err).Warn("ошибка лимитера")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "Muitas tentativas. Aguarde um momento e tente novamente.",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
