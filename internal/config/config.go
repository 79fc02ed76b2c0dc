package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все параметры запуска портала.
type Config struct {
	Env      string
	HTTPPort string

	// BackendBaseURL единственный источник адреса REST бэкенда маркетплейса.
	BackendBaseURL string
	// MediaBaseURL используется для относительных путей к файлам (фото, сертификаты).
	MediaBaseURL   string
	BackendTimeout time.Duration

	DatabaseURL    string
	MigrationsPath string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	JWTSecret            string
	SessionTTL           time.Duration
	SessionEncryptionKey string

	AllowedOrigins []string
	// RateLimitLimit лимит на вход и регистрацию, APIRateLimit на остальные вызовы сессии.
	RateLimitLimit  int64
	APIRateLimit    int64
	RateLimitPeriod time.Duration

	ChatPollInterval   time.Duration
	ChatPollMaxBackoff time.Duration

	RegisterRetryAttempts int
	RegisterRetryDelay    time.Duration

	MaxUploadSizeMB int64
}

// Load читает переменные окружения и возвращает готовую конфигурацию.
func Load() (*Config, error) {
	// Загружаем .env только если он существует, иначе используем системные переменные.
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("config: .env не найден, используем переменные окружения: %v", err)
	}

	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:            env,
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		BackendBaseURL: strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://127.0.0.1:8000"), "/"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
	}

	cfg.MediaBaseURL = strings.TrimRight(getEnv("MEDIA_BASE_URL", cfg.BackendBaseURL), "/")

	jwtSecret := getEnv("JWT_SECRET", "")
	encryptionKey := getEnv("SESSION_ENCRYPTION_KEY", "")

	if env == "production" {
		if len(jwtSecret) < 32 {
			return nil, fmt.Errorf("config: JWT_SECRET обязателен и должен быть не менее 32 символов в production")
		}
		if len(encryptionKey) < 32 {
			return nil, fmt.Errorf("config: SESSION_ENCRYPTION_KEY обязателен и должен быть не менее 32 символов в production")
		}
		if !strings.HasPrefix(cfg.BackendBaseURL, "https://") {
			return nil, fmt.Errorf("config: BACKEND_BASE_URL должен использовать https в production")
		}
	} else {
		if jwtSecret == "" {
			jwtSecret = "portal-development-only-secret-change-in-production"
			log.Printf("config: WARNING - используется дефолтный JWT_SECRET, измените в production!")
		}
		if encryptionKey == "" {
			encryptionKey = "portal-development-only-session-key-change-me"
			log.Printf("config: WARNING - используется дефолтный SESSION_ENCRYPTION_KEY, измените в production!")
		}
	}

	cfg.JWTSecret = jwtSecret
	cfg.SessionEncryptionKey = encryptionKey

	// CORS allowed origins
	originsStr := getEnv("CORS_ALLOWED_ORIGINS", "")
	if originsStr == "" {
		if env == "production" {
			return nil, fmt.Errorf("config: CORS_ALLOWED_ORIGINS обязателен в production")
		}
		cfg.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	} else {
		cfg.AllowedOrigins = splitAndTrim(originsStr)
	}

	cfg.BackendTimeout = mustParseDuration(getEnv("BACKEND_TIMEOUT", "15s"))
	cfg.SessionTTL = mustParseDuration(getEnv("SESSION_TTL", "720h"))
	cfg.RedisDB = int(mustParseInt64(getEnv("REDIS_DB", "0")))

	cfg.RateLimitLimit = mustParseInt64(getEnv("RATE_LIMIT_LIMIT", "10"))
	cfg.APIRateLimit = mustParseInt64(getEnv("API_RATE_LIMIT", "300"))
	cfg.RateLimitPeriod = mustParseDuration(getEnv("RATE_LIMIT_PERIOD", "1m"))

	cfg.ChatPollInterval = mustParseDuration(getEnv("CHAT_POLL_INTERVAL", "3s"))
	cfg.ChatPollMaxBackoff = mustParseDuration(getEnv("CHAT_POLL_MAX_BACKOFF", "30s"))
	if cfg.ChatPollMaxBackoff < cfg.ChatPollInterval {
		cfg.ChatPollMaxBackoff = cfg.ChatPollInterval
	}

	cfg.RegisterRetryAttempts = int(mustParseInt64(getEnv("REGISTER_RETRY_ATTEMPTS", "3")))
	if cfg.RegisterRetryAttempts < 1 {
		cfg.RegisterRetryAttempts = 1
	}
	cfg.RegisterRetryDelay = mustParseDuration(getEnv("REGISTER_RETRY_DELAY", "1s"))

	cfg.MaxUploadSizeMB = mustParseInt64(getEnv("MAX_UPLOAD_MB", "10"))

	return cfg, nil
}

// UsesPostgres сообщает, нужно ли хранить сессии в PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

// UsesRedis сообщает, нужно ли хранить флаги жизненного цикла в Redis.
func (c *Config) UsesRedis() bool {
	return c.RedisAddr != ""
}

// getEnv возвращает значение переменной окружения или дефолт.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mustParseDuration безопасно парсит строку в duration.
func mustParseDuration(v string) time.Duration {
	dur, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("config: не удалось распарсить длительность %q: %v", v, err)
	}
	return dur
}

// mustParseInt64 безопасно парсит строку в int64.
func mustParseInt64(v string) int64 {
	num, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Fatalf("config: не удалось распарсить число %q: %v", v, err)
	}
	return num
}
