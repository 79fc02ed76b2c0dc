package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/http/handlers/common"
	"github.com/fazpramim/portal/internal/lifecycle"
	"github.com/fazpramim/portal/internal/session"
)

// currentCaller сессия и Caller для сервиса жизненного цикла.
func currentCaller(c *gin.Context) (*session.Session, lifecycle.Caller, bool) {
	sess, ok := common.CurrentSession(c)
	if !ok {
		return nil, lifecycle.Caller{}, false
	}
	return sess, lifecycle.CallerOf(sess), true
}
