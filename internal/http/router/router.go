package router

import (
	"github.com/gin-gonic/gin"

	"github.com/fazpramim/portal/internal/config"
	"github.com/fazpramim/portal/internal/http/handlers"
	"github.com/fazpramim/portal/internal/http/handlers/common"
	"github.com/fazpramim/portal/internal/http/middleware"
	"github.com/fazpramim/portal/internal/session"
)

// Handlers все HTTP обработчики портала.
type Handlers struct {
	Health    *handlers.HealthHandler
	Auth      *handlers.AuthHandler
	Catalog   *handlers.CatalogHandler
	Requests  *handlers.RequestHandler
	Reviews   *handlers.ReviewHandler
	Dashboard *handlers.DashboardHandler
	Profiles  *handlers.ProfileHandler
	Portfolio *handlers.PortfolioHandler
	WS        *handlers.WSHandler
}

func SetupRouter(
	cfg *config.Config,
	h Handlers,
	tokens *session.TokenManager,
	sessions *session.Manager,
	expirer middleware.TokenExpirer,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = common.MaxMultipartMemory
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler(expirer))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	requireSession := middleware.SessionAuth(tokens, sessions)

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware("auth", cfg.RateLimitLimit, cfg.RateLimitPeriod, middleware.ByClientIP)
	{
		authGroup.POST("/login", authRateLimit, h.Auth.Login)
		authGroup.POST("/register/cliente", authRateLimit, h.Auth.RegisterClient)
		authGroup.POST("/register/prestador", authRateLimit, h.Auth.RegisterProvider)
		authGroup.POST("/logout", requireSession, h.Auth.Logout)
		authGroup.GET("/me", requireSession, h.Auth.Me)
	}

	protected := api.Group("/")
	protected.Use(requireSession)
	protected.Use(middleware.RateLimitMiddleware("api", cfg.APIRateLimit, cfg.RateLimitPeriod, middleware.BySession))
	{
		protected.GET("/providers", h.Catalog.Search)
		protected.GET("/providers/:id", middleware.IDParam("id"), h.Catalog.Details)
		protected.POST("/providers/:id/requests", middleware.IDParam("id"), h.Catalog.CreateRequest)

		protected.GET("/requests", h.Requests.List)
		protected.GET("/requests/board", h.Requests.Board)
		protected.POST("/requests/:id/accept", middleware.IDParam("id"), h.Requests.Accept)
		protected.POST("/requests/:id/reject", middleware.IDParam("id"), h.Requests.Reject)
		protected.POST("/requests/:id/complete", middleware.IDParam("id"), h.Requests.Complete)
		protected.POST("/requests/:id/review", middleware.IDParam("id"), h.Reviews.Submit)
		protected.GET("/requests/:id/messages", middleware.IDParam("id"), h.Requests.Messages)
		protected.POST("/requests/:id/messages", middleware.IDParam("id"), h.Requests.SendMessage)

		protected.GET("/provider/dashboard", h.Dashboard.Dashboard)
		protected.GET("/provider/history", h.Dashboard.History)
		protected.GET("/provider/reviews", h.Dashboard.Reviews)
		protected.GET("/provider/profile", h.Profiles.GetProvider)
		protected.PUT("/provider/profile", h.Profiles.UpdateProvider)
		protected.GET("/provider/portfolio", h.Portfolio.List)
		protected.POST("/provider/portfolio", h.Portfolio.Add)
		protected.DELETE("/provider/portfolio/:id", middleware.IDParam("id"), h.Portfolio.Delete)

		protected.GET("/client/profile", h.Profiles.GetClient)
		protected.PUT("/client/profile", h.Profiles.UpdateClient)
	}

	// WebSocket живет долго, общий лимит запросов к нему не применяется
	api.GET("/requests/:id/chat/ws", middleware.WebSocketSessionAuth(tokens, sessions), middleware.IDParam("id"), h.WS.Chat)

	return r
}
