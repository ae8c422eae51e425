// Пакет config — загрузка и валидация конфигурации Sync Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Sync Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- License Catalog (источник) ---

	// Базовый URL API License Catalog
	LCURL string
	// URL token endpoint для Client Credentials flow
	LCTokenURL string
	// Client ID для доступа к LC API
	LCClientID string
	// Client Secret для доступа к LC API
	LCClientSecret string

	// --- Mediastore DAM (приёмник) ---

	// Базовый URL API DAM
	DAMURL string
	// URL token endpoint для Client Credentials flow
	DAMTokenURL string
	// Client ID для доступа к DAM API
	DAMClientID string
	// Client Secret для доступа к DAM API
	DAMClientSecret string

	// --- JWT (входящие запросы к API) ---

	// Issuer JWT
	JWTIssuer string
	// URL JWKS endpoint
	JWTJWKSURL string
	// Путь к CA-сертификату для TLS-подключения к JWKS
	JWTCACertPath string
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Синхронизация ---

	// Интервал периодической синхронизации
	SyncInterval time.Duration
	// Размер страницы инкрементальной выборки ассетов
	SyncPageSize int
	// Количество параллельных загрузок файлов в одном transfer
	UploadConcurrency int
	// Каталог staging для скачанных бинарников
	StagingDir string
	// Максимум повторов при ошибках удалённых систем
	RetryMaxAttempts int
	// TTL кэша справочников DAM в Reference Resolver
	ResolverCacheTTL time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SM_PORT — порт HTTP-сервера (по умолчанию 8010)
	cfg.Port, err = getEnvInt("SM_PORT", 8010)
	if err != nil {
		return nil, fmt.Errorf("SM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// SM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SM_LOG_LEVEL: %w", err)
	}

	// SM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// SM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("SM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// SM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("SM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SM_DB_PORT: %w", err)
	}

	// SM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("SM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// SM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("SM_DB_USER")
	if err != nil {
		return nil, err
	}

	// SM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("SM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// SM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("SM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- License Catalog ---

	// SM_LC_URL — обязательный
	cfg.LCURL, err = getEnvRequired("SM_LC_URL")
	if err != nil {
		return nil, err
	}
	cfg.LCURL = strings.TrimRight(cfg.LCURL, "/")

	// SM_LC_TOKEN_URL — авто-вычисляется из SM_LC_URL, если не задан
	cfg.LCTokenURL = getEnvDefault("SM_LC_TOKEN_URL", cfg.LCURL+"/oauth/token")

	// SM_LC_CLIENT_ID — обязательный
	cfg.LCClientID, err = getEnvRequired("SM_LC_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	// SM_LC_CLIENT_SECRET — обязательный
	cfg.LCClientSecret, err = getEnvRequired("SM_LC_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	// --- Mediastore DAM ---

	// SM_DAM_URL — обязательный
	cfg.DAMURL, err = getEnvRequired("SM_DAM_URL")
	if err != nil {
		return nil, err
	}
	cfg.DAMURL = strings.TrimRight(cfg.DAMURL, "/")

	// SM_DAM_TOKEN_URL — авто-вычисляется из SM_DAM_URL, если не задан
	cfg.DAMTokenURL = getEnvDefault("SM_DAM_TOKEN_URL", cfg.DAMURL+"/oauth/token")

	// SM_DAM_CLIENT_ID — обязательный
	cfg.DAMClientID, err = getEnvRequired("SM_DAM_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	// SM_DAM_CLIENT_SECRET — обязательный
	cfg.DAMClientSecret, err = getEnvRequired("SM_DAM_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	// --- JWT ---

	// SM_JWT_ISSUER — issuer входящих JWT (опционально; пустой — без проверки issuer)
	cfg.JWTIssuer = getEnvDefault("SM_JWT_ISSUER", "")

	// SM_JWT_JWKS_URL — URL JWKS endpoint (опционально; пустой — API без auth)
	cfg.JWTJWKSURL = getEnvDefault("SM_JWT_JWKS_URL", "")

	// SM_JWT_CA_CERT — путь к CA-сертификату для JWKS (опционально)
	cfg.JWTCACertPath = getEnvDefault("SM_JWT_CA_CERT", "")

	// SM_JWKS_CLIENT_TIMEOUT — таймаут HTTP-клиента JWKS (по умолчанию 10s)
	cfg.JWKSClientTimeout, err = getEnvDuration("SM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	// SM_JWKS_REFRESH_INTERVAL — интервал обновления JWKS-ключей (по умолчанию 1h)
	cfg.JWKSRefreshInterval, err = getEnvDuration("SM_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// SM_JWT_LEEWAY — допустимое отклонение времени JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("SM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_JWT_LEEWAY: %w", err)
	}

	// --- Синхронизация ---

	// SM_SYNC_INTERVAL — интервал периодической синхронизации (по умолчанию 15m)
	cfg.SyncInterval, err = getEnvDuration("SM_SYNC_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SM_SYNC_INTERVAL: %w", err)
	}

	// SM_SYNC_PAGE_SIZE — размер страницы выборки ассетов (по умолчанию 10)
	cfg.SyncPageSize, err = getEnvInt("SM_SYNC_PAGE_SIZE", 10)
	if err != nil {
		return nil, fmt.Errorf("SM_SYNC_PAGE_SIZE: %w", err)
	}
	if cfg.SyncPageSize < 1 || cfg.SyncPageSize > 100 {
		return nil, fmt.Errorf("SM_SYNC_PAGE_SIZE: значение %d вне допустимого диапазона 1-100", cfg.SyncPageSize)
	}

	// SM_UPLOAD_CONCURRENCY — параллельные загрузки в transfer (по умолчанию 4)
	cfg.UploadConcurrency, err = getEnvInt("SM_UPLOAD_CONCURRENCY", 4)
	if err != nil {
		return nil, fmt.Errorf("SM_UPLOAD_CONCURRENCY: %w", err)
	}
	if cfg.UploadConcurrency < 1 || cfg.UploadConcurrency > 32 {
		return nil, fmt.Errorf("SM_UPLOAD_CONCURRENCY: значение %d вне допустимого диапазона 1-32", cfg.UploadConcurrency)
	}

	// SM_STAGING_DIR — каталог staging (по умолчанию системный temp)
	cfg.StagingDir = getEnvDefault("SM_STAGING_DIR", os.TempDir())

	// SM_RETRY_MAX_ATTEMPTS — максимум повторов (по умолчанию 5)
	cfg.RetryMaxAttempts, err = getEnvInt("SM_RETRY_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, fmt.Errorf("SM_RETRY_MAX_ATTEMPTS: %w", err)
	}

	// SM_RESOLVER_CACHE_TTL — TTL кэша справочников (по умолчанию 10m)
	cfg.ResolverCacheTTL, err = getEnvDuration("SM_RESOLVER_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SM_RESOLVER_CACHE_TTL: %w", err)
	}

	// SM_DEPHEALTH_GROUP — имя группы topologymetrics (по умолчанию mediastore)
	cfg.DephealthGroup = getEnvDefault("SM_DEPHEALTH_GROUP", "mediastore")

	// SM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("SM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// SM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для метрик/лейблов).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
