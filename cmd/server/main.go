package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/fazpramim/portal/internal/backend"
	"github.com/fazpramim/portal/internal/chat"
	"github.com/fazpramim/portal/internal/config"
	"github.com/fazpramim/portal/internal/db"
	"github.com/fazpramim/portal/internal/goroutine"
	httpHandlers "github.com/fazpramim/portal/internal/http/handlers"
	"github.com/fazpramim/portal/internal/http/middleware"
	httpRouter "github.com/fazpramim/portal/internal/http/router"
	"github.com/fazpramim/portal/internal/lifecycle"
	"github.com/fazpramim/portal/internal/logger"
	"github.com/fazpramim/portal/internal/service"
	"github.com/fazpramim/portal/internal/session"
	"github.com/fazpramim/portal/internal/storage"
	"github.com/fazpramim/portal/internal/ws"
)

const (
	shutdownTimeout = 10 * time.Second
	cleanupInterval = 5 * time.Minute
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}
	mlog := logger.WithComponent("main")

	// Сессии: PostgreSQL, если задан DATABASE_URL, иначе в памяти процесса.
	var (
		dbConn       *sqlx.DB
		sessionStore session.Store
	)
	if cfg.UsesPostgres() {
		dbConn, err = db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPoolOptions)
		if err != nil {
			mlog.WithError(err).Fatal("ошибка подключения к базе")
		}
		defer safeClose(dbConn)

		if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
			mlog.WithError(err).Fatal("ошибка миграций")
		}
		sealer, err := session.NewSealer(cfg.SessionEncryptionKey)
		if err != nil {
			mlog.WithError(err).Fatal("не удалось подготовить шифрование сессий")
		}
		sessionStore = session.NewPostgresStore(dbConn, sealer)
	} else {
		mlog.Warn("DATABASE_URL не задан, сессии хранятся в памяти")
	}

	sessions := session.NewManager(sessionStore, cfg.SessionTTL)
	if err := sessions.Init(ctx); err != nil {
		mlog.WithError(err).Fatal("не удалось загрузить сессии")
	}
	tokens := session.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)

	// Флаги finalized/reviewed: Redis или память.
	var (
		rdb   redis.UniversalClient
		flags lifecycle.FlagStore
	)
	if cfg.UsesRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			mlog.WithError(err).Fatal("Redis недоступен")
		}
		defer client.Close()
		rdb = client
		flags = lifecycle.NewRedisFlagStore(client, lifecycle.DefaultFlagTTL)
	} else {
		memFlags := lifecycle.NewMemoryFlagStore(lifecycle.DefaultFlagTTL)
		goroutine.SafeGoWithContext(ctx, func(ctx context.Context) { memFlags.RunCleanup(ctx, cleanupInterval) })
		flags = memFlags
	}

	media, err := storage.NewMediaResolver(cfg.MediaBaseURL)
	if err != nil {
		mlog.WithError(err).Fatal("некорректный MEDIA_BASE_URL")
	}

	api := backend.NewClient(cfg.BackendBaseURL, backend.Options{
		Timeout:          cfg.BackendTimeout,
		RegisterAttempts: cfg.RegisterRetryAttempts,
		RegisterDelay:    cfg.RegisterRetryDelay,
	})

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, hub.Run)

	cache := service.NewCacheService()
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) { cache.Run(ctx, cleanupInterval) })
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) { sessions.RunCleanup(ctx, cleanupInterval) })

	// Сервисы.
	authService := service.NewAuthService(api, sessions, tokens, hub)
	catalogService := service.NewCatalogService(api, cache, media)
	profileService := service.NewProfileService(api, sessions, cache, media)
	portfolioService := service.NewPortfolioService(api, cache, media)
	lifecycleService := lifecycle.NewService(api, flags)

	// HTTP хэндлеры.
	handlers := httpRouter.Handlers{
		Health:    httpHandlers.NewHealthHandler(dbConn, rdb),
		Auth:      httpHandlers.NewAuthHandler(authService),
		Catalog:   httpHandlers.NewCatalogHandler(catalogService, lifecycleService),
		Requests:  httpHandlers.NewRequestHandler(lifecycleService),
		Reviews:   httpHandlers.NewReviewHandler(lifecycleService),
		Dashboard: httpHandlers.NewDashboardHandler(lifecycleService, profileService),
		Profiles:  httpHandlers.NewProfileHandler(profileService),
		Portfolio: httpHandlers.NewPortfolioHandler(portfolioService),
		WS: httpHandlers.NewWSHandler(hub, lifecycleService, authService, chat.Options{
			Interval:   cfg.ChatPollInterval,
			MaxBackoff: cfg.ChatPollMaxBackoff,
		}, middleware.OriginChecker(cfg.AllowedOrigins)),
	}

	engine := httpRouter.SetupRouter(cfg, handlers, tokens, sessions, authService)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			mlog.WithError(err).Error("ошибка остановки http сервера")
		}
	})

	mlog.WithField("port", cfg.HTTPPort).WithField("backend", cfg.BackendBaseURL).Info("HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		mlog.WithError(err).Fatal("сервер завершился с ошибкой")
	}
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.WithComponent("main").WithError(err).Warn("ошибка закрытия базы")
	}
}
