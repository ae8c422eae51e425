// transfer.go — перенос бинарников из License Catalog в DAM.
//
// Последовательность переноса:
//  1. Запрос адресов скачивания у LC
//  2. Скачивание в staging-каталог (уникальный подкаталог на перенос)
//  3. Открытие transfer-сессии DAM и параллельная загрузка файлов
//     (ограничение uploadConcurrency)
//  4. Ожидание импорта на стороне DAM
//  5. Очистка: staging-каталог удаляется всегда, transfer-сессия
//     закрывается и при успехе, и при ошибке (best-effort)
//
// Prometheus-метрики:
//   - sm_binary_transfers_total — количество переносов (по операциям и статусам)
//   - sm_binary_transfer_duration_seconds — длительность переноса
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/mediastore/sync-module/internal/damclient"
	"github.com/bigkaa/mediastore/sync-module/internal/lcclient"
)

// Prometheus-метрики переноса бинарников.
var (
	binaryTransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_binary_transfers_total",
		Help: "Количество переносов бинарников LC → DAM",
	}, []string{"operation", "status"}) // operation: import, replace; status: ok, error

	binaryTransferDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sm_binary_transfer_duration_seconds",
		Help:    "Длительность переноса бинарника LC → DAM",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s … ~256s
	}, []string{"operation"})
)

// importPollInterval — интервал опроса статуса импорта DAM.
const importPollInterval = 2 * time.Second

// BinaryTransferService — сервис переноса бинарников.
type BinaryTransferService struct {
	lc                *lcclient.Client
	dam               *damclient.Client
	stagingDir        string
	uploadConcurrency int
	logger            *slog.Logger
}

// NewBinaryTransferService создаёт сервис переноса бинарников.
func NewBinaryTransferService(
	lc *lcclient.Client,
	dam *damclient.Client,
	stagingDir string,
	uploadConcurrency int,
	logger *slog.Logger,
) *BinaryTransferService {
	return &BinaryTransferService{
		lc:                lc,
		dam:               dam,
		stagingDir:        stagingDir,
		uploadConcurrency: uploadConcurrency,
		logger:            logger.With(slog.String("component", "binary_transfer")),
	}
}

// ImportNew переносит бинарники нового ассета и возвращает ID созданной
// записи контента DAM. Сразу после импорта на записи фиксируется ID
// бинарника LC: по нему прерванный импорт находится при повторном
// запуске, пока полные метаданные ещё не записаны.
func (s *BinaryTransferService) ImportNew(ctx context.Context, transactionID, binaryID string, binaryVersion int) (string, error) {
	startedAt := time.Now()

	contentID, err := s.transfer(ctx, transactionID, binaryID, binaryVersion, "")
	if err != nil {
		binaryTransfersTotal.WithLabelValues("import", "error").Inc()
		return "", err
	}

	binaryTransfersTotal.WithLabelValues("import", "ok").Inc()
	binaryTransferDuration.WithLabelValues("import").Observe(time.Since(startedAt).Seconds())
	return contentID, nil
}

// ReplaceBinary заменяет бинарник существующей записи контента
// (версия бинарника в LC выросла).
func (s *BinaryTransferService) ReplaceBinary(ctx context.Context, contentID, transactionID string) error {
	startedAt := time.Now()

	if _, err := s.transfer(ctx, transactionID, "", 0, contentID); err != nil {
		binaryTransfersTotal.WithLabelValues("replace", "error").Inc()
		return err
	}

	binaryTransfersTotal.WithLabelValues("replace", "ok").Inc()
	binaryTransferDuration.WithLabelValues("replace").Observe(time.Since(startedAt).Seconds())
	return nil
}

// transfer выполняет полный цикл переноса.
// existingContentID пустой — импорт создаёт новую запись контента,
// на которой затем фиксируется binaryID; иначе бинарник привязывается
// к существующей записи.
func (s *BinaryTransferService) transfer(ctx context.Context, transactionID, binaryID string, binaryVersion int, existingContentID string) (string, error) {
	locations, err := s.lc.GetDownloadLocations(ctx, transactionID)
	if err != nil {
		return "", fmt.Errorf("запрос адресов скачивания %s: %w", transactionID, err)
	}
	if len(locations) == 0 {
		return "", fmt.Errorf("%w: у ассета %s нет бинарников", ErrValidation, transactionID)
	}

	// Staging-каталог уникален на перенос; удаляется всегда.
	stageDir := filepath.Join(s.stagingDir, "sm-"+uuid.NewString())
	if err := os.MkdirAll(stageDir, 0o700); err != nil {
		return "", fmt.Errorf("создание staging-каталога: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(stageDir); err != nil {
			s.logger.Warn("Ошибка очистки staging-каталога",
				slog.String("dir", stageDir),
				slog.String("error", err.Error()),
			)
		}
	}()

	// 2. Скачивание в staging
	staged := make([]string, len(locations))
	for i, loc := range locations {
		dest := filepath.Join(stageDir, loc.RecommendedFileName)
		if err := s.lc.DownloadFile(ctx, loc.URL, dest); err != nil {
			return "", fmt.Errorf("скачивание %s: %w", loc.FileID, err)
		}
		staged[i] = dest
	}

	// 3. Transfer-сессия и параллельная загрузка
	session, err := s.dam.CreateTransfer(ctx)
	if err != nil {
		return "", fmt.Errorf("открытие transfer-сессии: %w", err)
	}

	contentID, err := s.uploadAndImport(ctx, session.ID, locations, staged, existingContentID)

	// 5. Сессия закрывается в любом исходе; при ошибке — best-effort,
	// исходная ошибка важнее ошибки очистки.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if delErr := s.dam.DeleteTransfer(cleanupCtx, session.ID); delErr != nil {
		s.logger.Warn("Ошибка закрытия transfer-сессии",
			slog.String("transfer_id", session.ID),
			slog.String("error", delErr.Error()),
		)
	}

	if err != nil {
		return "", err
	}

	// Маркер записывается до полных метаданных: упавший между этими
	// шагами запуск оставит запись, находимую по lc_binary_id.
	if existingContentID == "" && binaryID != "" {
		marker := damclient.Metadata{damclient.FieldBinaryID: binaryID}
		if binaryVersion > 0 {
			marker["lc_binary_version"] = binaryVersion
		}
		if err := s.dam.UpdateContentMetadata(ctx, contentID, marker); err != nil {
			return "", fmt.Errorf("фиксация ID бинарника на контенте %s: %w", contentID, err)
		}
	}

	s.logger.Info("Бинарники перенесены",
		slog.String("transaction_id", transactionID),
		slog.String("content_id", contentID),
		slog.Int("files", len(staged)),
	)
	return contentID, nil
}

// uploadAndImport загружает staged-файлы в сессию и ждёт импорта.
func (s *BinaryTransferService) uploadAndImport(ctx context.Context, transferID string, locations []lcclient.DownloadLocation, staged []string, existingContentID string) (string, error) {
	sem := make(chan struct{}, s.uploadConcurrency)

	var mu sync.Mutex
	var uploadErrs []error

	var wg sync.WaitGroup
	for i := range staged {
		wg.Add(1)
		go func(fileName, srcPath string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.dam.UploadFile(ctx, transferID, fileName, srcPath); err != nil {
				mu.Lock()
				uploadErrs = append(uploadErrs, fmt.Errorf("загрузка %s: %w", fileName, err))
				mu.Unlock()
			}
		}(locations[i].RecommendedFileName, staged[i])
	}
	wg.Wait()

	if len(uploadErrs) > 0 {
		return "", uploadErrs[0]
	}

	// Привязка к существующей записи запускает импорт в неё.
	if existingContentID != "" {
		if err := s.dam.UpdateContentFile(ctx, existingContentID, transferID, locations[0].RecommendedFileName); err != nil {
			return "", fmt.Errorf("замена бинарника контента %s: %w", existingContentID, err)
		}
	}

	// 4. Ожидание импорта
	done, err := s.dam.WaitForImport(ctx, transferID, importPollInterval)
	if err != nil {
		return "", fmt.Errorf("ожидание импорта: %w", err)
	}

	if existingContentID != "" {
		return existingContentID, nil
	}
	if done.ContentID == "" {
		return "", fmt.Errorf("импорт завершён, но DAM не вернул ID контента (transfer %s)", transferID)
	}
	return done.ContentID, nil
}
