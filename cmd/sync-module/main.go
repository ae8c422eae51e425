// Точка входа Sync Module — модуль синхронизации License Catalog → Mediastore DAM.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// инициализирует клиенты LC и DAM с OAuth2 Client Credentials,
// создаёт сервисный слой и API handlers, запускает фоновые задачи
// (периодическая синхронизация, topologymetrics), HTTP-сервер с JWT
// middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/mediastore/sync-module/internal/api/handlers"
	"github.com/bigkaa/mediastore/sync-module/internal/api/middleware"
	"github.com/bigkaa/mediastore/sync-module/internal/config"
	"github.com/bigkaa/mediastore/sync-module/internal/damclient"
	"github.com/bigkaa/mediastore/sync-module/internal/database"
	"github.com/bigkaa/mediastore/sync-module/internal/lcclient"
	"github.com/bigkaa/mediastore/sync-module/internal/remote"
	"github.com/bigkaa/mediastore/sync-module/internal/repository"
	"github.com/bigkaa/mediastore/sync-module/internal/server"
	"github.com/bigkaa/mediastore/sync-module/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Sync Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("SM_DEPHEALTH_GROUP") == "" {
		logger.Warn("SM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиенты удалённых систем с OAuth2 Client Credentials
	retry := remote.DefaultRetryPolicy()
	retry.MaxRetries = uint64(cfg.RetryMaxAttempts)

	tokenHTTPClient := &http.Client{Timeout: 30 * time.Second}

	lcTokens := remote.NewTokenSource("lc", cfg.LCTokenURL, cfg.LCClientID, cfg.LCClientSecret, tokenHTTPClient, logger)
	lcClient := lcclient.New(cfg.LCURL, lcTokens, retry, logger)
	logger.Info("LC клиент создан", slog.String("url", cfg.LCURL))

	damTokens := remote.NewTokenSource("dam", cfg.DAMTokenURL, cfg.DAMClientID, cfg.DAMClientSecret, tokenHTTPClient, logger)
	damClient := damclient.New(cfg.DAMURL, damTokens, retry, logger)
	logger.Info("DAM клиент создан", slog.String("url", cfg.DAMURL))

	// 6. Repositories
	checkpointRepo := repository.NewCheckpointRepository(pool)
	runRepo := repository.NewSyncRunRepository(pool)

	// 7. Services
	resolver := service.NewReferenceResolver(damClient, cfg.ResolverCacheTTL, logger)
	vocabSvc := service.NewVocabSyncService(lcClient, damClient, resolver, checkpointRepo, logger)
	transformer := service.NewAssetTransformer(resolver, logger)
	transferSvc := service.NewBinaryTransferService(lcClient, damClient, cfg.StagingDir, cfg.UploadConcurrency, logger)
	compounds := service.NewCompoundAssembler(damClient, logger)

	syncSvc := service.NewSyncService(
		lcClient, damClient,
		vocabSvc, transformer, transferSvc, compounds,
		checkpointRepo, runRepo,
		cfg.SyncPageSize, cfg.SyncInterval,
		logger,
	)

	// 8. Readiness checkers (PostgreSQL + LC + DAM)
	pgChecker := database.NewReadinessChecker(pool)
	lcChecker := remote.NewReadinessChecker("License Catalog", cfg.LCURL, 5*time.Second)
	damChecker := remote.NewReadinessChecker("Mediastore DAM", cfg.DAMURL, 5*time.Second)
	healthHandler := handlers.NewHealthHandler(pgChecker, lcChecker, damChecker)

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, syncSvc, logger)

	// 10. JWT middleware (опционально — без SM_JWT_JWKS_URL API открыт)
	var jwtAuth *middleware.JWTAuth
	if cfg.JWTJWKSURL != "" {
		jwtAuth, err = middleware.NewJWTAuth(
			cfg.JWTJWKSURL,
			cfg.JWTCACertPath,
			cfg.JWTIssuer,
			cfg.JWKSClientTimeout,
			cfg.JWKSRefreshInterval,
			cfg.JWTLeeway,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer jwtAuth.Close()
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Warn("SM_JWT_JWKS_URL не задан, API работает без аутентификации")
	}

	// 11. Запуск периодической синхронизации
	syncSvc.Start(ctx)

	// 11.1 topologymetrics — мониторинг зависимостей (PostgreSQL + LC + DAM)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"sync-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.LCURL,
		cfg.DAMURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	if dephealthErr == nil {
		dephealthSvc.Stop()
	}
	syncSvc.Stop()

	logger.Info("Sync Module остановлен")
}
