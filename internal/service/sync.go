// sync.go — оркестратор синхронизации License Catalog → Mediastore DAM.
//
// Запуск проходит фазы:
//  1. Single-flight: параллельный запуск не стартует вторую синхронизацию,
//     а возвращает ErrSyncInProgress
//  2. Сверка словарей (опционально, по флагу запуска)
//  3. Постраничный импорт ассетов от сохранённого курсора; курсор
//     записывается в sync_state только после полного импорта страницы
//  4. Фиксация итога в истории запусков (sync_runs)
//
// Некорректные записи источника пропускаются с предупреждением;
// семантические и транспортные ошибки прерывают запуск без продвижения
// курсора — повтор продолжит с последней импортированной страницы.
//
// Prometheus-метрики:
//   - sm_sync_runs_total — количество запусков (по триггерам и статусам)
//   - sm_sync_duration_seconds — длительность запуска
//   - sm_sync_assets_total — обработанные ассеты (по операциям)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/mediastore/sync-module/internal/damclient"
	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
	"github.com/bigkaa/mediastore/sync-module/internal/lcclient"
	"github.com/bigkaa/mediastore/sync-module/internal/repository"
)

// Prometheus-метрики оркестратора.
var (
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_sync_runs_total",
		Help: "Количество запусков синхронизации",
	}, []string{"trigger", "status"}) // status: completed, failed, skipped

	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sm_sync_duration_seconds",
		Help:    "Длительность запуска синхронизации",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s … ~1024s
	})

	syncAssetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_sync_assets_total",
		Help: "Количество обработанных ассетов",
	}, []string{"operation"}) // operation: created, updated, skipped
)

// SyncService — оркестратор синхронизации.
type SyncService struct {
	lc          *lcclient.Client
	dam         *damclient.Client
	vocab       *VocabSyncService
	transformer *AssetTransformer
	transfers   *BinaryTransferService
	compounds   *CompoundAssembler

	checkpointRepo repository.CheckpointRepository
	runRepo        repository.SyncRunRepository

	pageSize int
	interval time.Duration
	logger   *slog.Logger

	// Single-flight: TryLock вместо ожидания.
	running sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSyncService создаёт оркестратор синхронизации.
func NewSyncService(
	lc *lcclient.Client,
	dam *damclient.Client,
	vocab *VocabSyncService,
	transformer *AssetTransformer,
	transfers *BinaryTransferService,
	compounds *CompoundAssembler,
	checkpointRepo repository.CheckpointRepository,
	runRepo repository.SyncRunRepository,
	pageSize int,
	interval time.Duration,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		lc:             lc,
		dam:            dam,
		vocab:          vocab,
		transformer:    transformer,
		transfers:      transfers,
		compounds:      compounds,
		checkpointRepo: checkpointRepo,
		runRepo:        runRepo,
		pageSize:       pageSize,
		interval:       interval,
		logger:         logger.With(slog.String("component", "sync")),
	}
}

// Start запускает фоновую горутину с периодической синхронизацией.
// Вызывается один раз при старте приложения.
func (s *SyncService) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.logger.Info("Периодическая синхронизация запущена",
			slog.String("interval", s.interval.String()),
			slog.Int("page_size", s.pageSize),
		)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Периодическая синхронизация остановлена")
				return
			case <-ticker.C:
				_, err := s.Run(ctx, model.SyncTriggerPeriodic, true)
				switch {
				case errors.Is(err, ErrSyncInProgress):
					s.logger.Info("Периодическая синхронизация пропущена: запуск уже выполняется")
				case err != nil:
					s.logger.Error("Ошибка периодической синхронизации", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Stop останавливает фоновую горутину и ждёт завершения.
func (s *SyncService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

// Status возвращает состояние синхронизации: курсор, времена последних
// синхронизаций и последние запуски.
func (s *SyncService) Status(ctx context.Context) (*model.SyncState, []*model.SyncRun, error) {
	state, err := s.checkpointRepo.Get(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("получение sync_state: %w", err)
	}

	runs, err := s.runRepo.List(ctx, 10)
	if err != nil {
		return nil, nil, fmt.Errorf("получение истории запусков: %w", err)
	}

	return state, runs, nil
}

// Run выполняет один запуск синхронизации.
// withVocab — сверять словари перед импортом ассетов.
// Параллельный вызов не ждёт, а возвращает ErrSyncInProgress.
func (s *SyncService) Run(ctx context.Context, trigger string, withVocab bool) (*model.SyncResult, error) {
	if !s.running.TryLock() {
		syncRunsTotal.WithLabelValues(trigger, "skipped").Inc()
		return nil, ErrSyncInProgress
	}
	defer s.running.Unlock()

	startedAt := time.Now().UTC()

	run := &model.SyncRun{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Status:    model.SyncRunStatusRunning,
		WithVocab: withVocab,
		StartedAt: startedAt,
	}
	if err := s.runRepo.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("регистрация запуска: %w", err)
	}

	s.logger.Info("Синхронизация запущена",
		slog.String("run_id", run.ID),
		slog.String("trigger", trigger),
		slog.Bool("with_vocab", withVocab),
	)

	result, err := s.runOnce(ctx, run, withVocab)

	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt

	if err != nil {
		run.Status = model.SyncRunStatusFailed
		msg := err.Error()
		run.Error = &msg
		syncRunsTotal.WithLabelValues(trigger, "failed").Inc()
	} else {
		run.Status = model.SyncRunStatusCompleted
		syncRunsTotal.WithLabelValues(trigger, "completed").Inc()
	}
	syncDuration.Observe(completedAt.Sub(startedAt).Seconds())

	if finishErr := s.runRepo.Finish(ctx, run); finishErr != nil {
		s.logger.Error("Ошибка фиксации итога запуска",
			slog.String("run_id", run.ID),
			slog.String("error", finishErr.Error()),
		)
	}

	if err != nil {
		s.logger.Error("Синхронизация завершилась ошибкой",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	result.RunID = run.ID
	result.StartedAt = startedAt
	result.CompletedAt = completedAt

	s.logger.Info("Синхронизация завершена",
		slog.String("run_id", run.ID),
		slog.Int("pages", result.Pages),
		slog.Int("assets_new", result.AssetsNew),
		slog.Int("assets_updated", result.AssetsUpdated),
		slog.String("duration", completedAt.Sub(startedAt).Truncate(time.Millisecond).String()),
	)
	return result, nil
}

// runOnce — тело запуска под single-flight локом.
func (s *SyncService) runOnce(ctx context.Context, run *model.SyncRun, withVocab bool) (*model.SyncResult, error) {
	result := &model.SyncResult{}

	if withVocab {
		vocabResult, err := s.vocab.Reconcile(ctx)
		if err != nil {
			return nil, fmt.Errorf("сверка словарей: %w", err)
		}
		result.Vocab = vocabResult
		run.VocabItems = vocabResult.Created + vocabResult.Updated + vocabResult.Deleted
	}

	// Курсор читается один раз на запуск; продвигается после каждой
	// полностью импортированной страницы.
	state, err := s.checkpointRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("чтение курсора: %w", err)
	}
	cursor := ""
	if state.Cursor != nil {
		cursor = *state.Cursor
	}

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		page, err := s.lc.GetAssetsPage(ctx, cursor, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("запрос страницы ассетов (cursor=%q): %w", cursor, err)
		}

		// Пустая страница — источник исчерпан.
		if len(page.Assets) == 0 {
			break
		}

		var maxUpdatedAt time.Time
		for i := range page.Assets {
			operation, err := s.importAsset(ctx, &page.Assets[i])
			if err != nil {
				return nil, fmt.Errorf("импорт ассета %s: %w", page.Assets[i].TransactionID, err)
			}

			switch operation {
			case "created":
				result.AssetsNew++
			case "updated":
				result.AssetsUpdated++
			}
			if operation != "skipped" && len(page.Assets[i].CompoundParts) > 0 {
				result.Compounds++
			}
			syncAssetsTotal.WithLabelValues(operation).Inc()

			if t, parseErr := time.Parse(time.RFC3339, page.Assets[i].LastUpdatedAt); parseErr == nil && t.After(maxUpdatedAt) {
				maxUpdatedAt = t
			}
		}

		result.Pages++
		run.Pages = result.Pages
		run.AssetsNew = result.AssetsNew
		run.AssetsUpdated = result.AssetsUpdated

		// Страница полностью импортирована — продвигаем курсор.
		// Курсор пишется только вперёд: без nextCursor от LC он строится
		// из максимального lastUpdatedAt страницы, а страница без единого
		// разбираемого времени не даёт ему откатиться к нулевому значению.
		nextCursor := page.NextCursor
		if nextCursor == "" {
			if maxUpdatedAt.IsZero() {
				s.logger.Warn("Страница без nextCursor и валидных lastUpdatedAt, курсор не продвинут",
					slog.Int("assets", len(page.Assets)),
				)
				break
			}
			if prev, parseErr := time.Parse(time.RFC3339, cursor); parseErr == nil && !maxUpdatedAt.After(prev) {
				break
			}
			nextCursor = maxUpdatedAt.UTC().Format(time.RFC3339Nano)
		}
		if err := s.checkpointRepo.SaveCursor(ctx, nextCursor); err != nil {
			return nil, fmt.Errorf("сохранение курсора: %w", err)
		}
		cursor = nextCursor

		s.logger.Debug("Страница импортирована",
			slog.Int("page", result.Pages),
			slog.Int("assets", len(page.Assets)),
			slog.String("cursor", cursor),
		)
	}

	if err := s.checkpointRepo.UpdateAssetSyncAt(ctx, time.Now().UTC()); err != nil {
		s.logger.Warn("Ошибка обновления last_asset_sync_at", slog.String("error", err.Error()))
	}

	return result, nil
}

// importAsset импортирует один ассет и возвращает операцию:
// created, updated или skipped.
//
// Некорректная запись источника (неразбираемые данные) и ассет без
// точек скачивания пропускаются с предупреждением — один битый ассет
// не должен навсегда остановить конвейер. Семантические ошибки DAM
// (дубликаты по transaction id, отвергнутые запросы) прерывают запуск
// без продвижения курсора.
func (s *SyncService) importAsset(ctx context.Context, dto *lcclient.Asset) (string, error) {
	asset, err := lcAssetToModel(*dto)
	if err != nil {
		s.logger.Warn("Некорректный ассет LC, пропуск",
			slog.String("transaction_id", dto.TransactionID),
			slog.String("error", err.Error()),
		)
		return "skipped", nil
	}

	operation, err := s.applyAsset(ctx, asset)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			s.logger.Warn("Ассет без валидных бинарников, пропуск",
				slog.String("transaction_id", asset.TransactionID),
				slog.String("error", err.Error()),
			)
			return "skipped", nil
		}
		return "", err
	}
	return operation, nil
}

// applyAsset выполняет создание или обновление записи контента.
func (s *SyncService) applyAsset(ctx context.Context, asset *model.Asset) (string, error) {
	existing, err := s.dam.SearchContentByTransactionID(ctx, asset.TransactionID)
	if err != nil {
		return "", fmt.Errorf("поиск контента: %w", err)
	}

	meta, err := s.transformer.Transform(ctx, asset, existing == nil)
	if err != nil {
		return "", fmt.Errorf("построение черновика: %w", err)
	}

	if asset.IsCompound() {
		return s.compounds.Apply(ctx, existing, asset, meta)
	}

	if existing == nil {
		// Прерванный прошлый запуск мог оставить запись с перенесённым
		// бинарником, но без полных метаданных. Такая запись находится
		// по ID бинарника и дописывается вместо повторного переноса.
		if asset.BinaryID != "" {
			orphan, err := s.dam.SearchContentByBinaryID(ctx, asset.BinaryID)
			if err != nil {
				return "", fmt.Errorf("поиск контента по бинарнику: %w", err)
			}
			if orphan != nil {
				if err := s.dam.UpdateContentMetadata(ctx, orphan.ID, meta); err != nil {
					return "", fmt.Errorf("запись метаданных: %w", err)
				}
				s.logger.Info("Найдена запись прерванного импорта, метаданные дописаны",
					slog.String("transaction_id", asset.TransactionID),
					slog.String("content_id", orphan.ID),
				)
				return "created", nil
			}
		}

		contentID, err := s.transfers.ImportNew(ctx, asset.TransactionID, asset.BinaryID, asset.BinaryVersion)
		if err != nil {
			return "", fmt.Errorf("перенос бинарников: %w", err)
		}
		if err := s.dam.UpdateContentMetadata(ctx, contentID, meta); err != nil {
			return "", fmt.Errorf("запись метаданных: %w", err)
		}
		return "created", nil
	}

	if err := s.dam.UpdateContentMetadata(ctx, existing.ID, meta); err != nil {
		return "", fmt.Errorf("обновление метаданных: %w", err)
	}

	// Замена бинарника только при росте версии в LC.
	if asset.BinaryID != "" && asset.BinaryVersion > metadataInt(existing.Metadata, "lc_binary_version") {
		if err := s.transfers.ReplaceBinary(ctx, existing.ID, asset.TransactionID); err != nil {
			return "", fmt.Errorf("замена бинарника: %w", err)
		}
	}

	return "updated", nil
}

// metadataInt извлекает целое из метаданных DAM.
// JSON-декодер отдаёт числа как float64.
func metadataInt(meta damclient.Metadata, field string) int {
	switch v := meta[field].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
