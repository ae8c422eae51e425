// vocab_sync.go — сервис сверки словарей LC со справочниками DAM.
//
// Reconcile загружает полный снапшот словарей LC и для каждого вида
// приводит справочник DAM к снапшоту:
//  1. Создать элементы, отсутствующие в DAM
//  2. Обновить элементы с изменившимися подписями
//  3. Удалить элементы, исчезнувшие из LC
//
// Создания и обновления выполняются до удалений: промежуточное
// состояние справочника остаётся надмножеством снапшота, и резолвер
// не видит «дыру» между удалением и созданием.
//
// Prometheus-метрики:
//   - sm_vocab_sync_items_total — обработанные элементы (по видам и операциям)
package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/mediastore/sync-module/internal/damclient"
	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
	"github.com/bigkaa/mediastore/sync-module/internal/lcclient"
	"github.com/bigkaa/mediastore/sync-module/internal/repository"
)

// Prometheus-метрики синхронизации словарей.
var vocabSyncItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sm_vocab_sync_items_total",
	Help: "Количество обработанных элементов справочников",
}, []string{"kind", "operation"}) // operation: created, updated, deleted

// VocabSyncService — сервис сверки словарей.
type VocabSyncService struct {
	lc             *lcclient.Client
	dam            *damclient.Client
	resolver       *ReferenceResolver
	checkpointRepo repository.CheckpointRepository
	logger         *slog.Logger
}

// NewVocabSyncService создаёт сервис сверки словарей.
func NewVocabSyncService(
	lc *lcclient.Client,
	dam *damclient.Client,
	resolver *ReferenceResolver,
	checkpointRepo repository.CheckpointRepository,
	logger *slog.Logger,
) *VocabSyncService {
	return &VocabSyncService{
		lc:             lc,
		dam:            dam,
		resolver:       resolver,
		checkpointRepo: checkpointRepo,
		logger:         logger.With(slog.String("component", "vocab_sync")),
	}
}

// Reconcile приводит справочники DAM к снапшоту словарей LC.
// Виды, отсутствующие в снапшоте, не трогаются: пустой ответ LC по виду
// отличим от отсутствия вида и означает «удалить всё».
func (s *VocabSyncService) Reconcile(ctx context.Context) (*model.VocabSyncResult, error) {
	startedAt := time.Now().UTC()

	snapshot, err := s.lc.GetVocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка снапшота словарей LC: %w", err)
	}

	result := &model.VocabSyncResult{}

	for _, kind := range model.AllVocabularyKinds {
		desired, ok := snapshot[string(kind)]
		if !ok {
			s.logger.Debug("Вид словаря отсутствует в снапшоте, пропуск",
				slog.String("kind", string(kind)),
			)
			continue
		}

		created, updated, deleted, err := s.reconcileKind(ctx, kind, desired)
		if err != nil {
			return nil, fmt.Errorf("сверка справочника %s: %w", kind, err)
		}

		result.Kinds++
		result.Created += created
		result.Updated += updated
		result.Deleted += deleted
	}

	// Сбрасываем кэш резолвера: новые элементы должны стать видимы
	// до импорта ассетов этого же запуска.
	s.resolver.Purge()

	if err := s.checkpointRepo.UpdateVocabSyncAt(ctx, time.Now().UTC()); err != nil {
		s.logger.Warn("Ошибка обновления last_vocab_sync_at", slog.String("error", err.Error()))
	}

	s.logger.Info("Сверка словарей завершена",
		slog.Int("kinds", result.Kinds),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("deleted", result.Deleted),
		slog.String("duration", time.Since(startedAt).Truncate(time.Millisecond).String()),
	)

	return result, nil
}

// reconcileKind сверяет один вид словаря.
func (s *VocabSyncService) reconcileKind(ctx context.Context, kind model.VocabularyKind, desired []lcclient.VocabularyElement) (created, updated, deleted int, err error) {
	actual, err := s.dam.SearchListItems(ctx, string(kind))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("загрузка справочника DAM: %w", err)
	}

	actualByKey := make(map[string]damclient.ListItem, len(actual))
	for _, item := range actual {
		actualByKey[item.Key] = item
	}

	desiredKeys := make(map[string]struct{}, len(desired))

	// 1-2. Создания и обновления
	for _, elem := range desired {
		desiredKeys[elem.Key] = struct{}{}

		existing, ok := actualByKey[elem.Key]
		if !ok {
			if _, err := s.dam.CreateListItem(ctx, string(kind), elem.Key, elem.Labels); err != nil {
				return created, updated, deleted, fmt.Errorf("создание элемента %s: %w", elem.Key, err)
			}
			created++
			vocabSyncItemsTotal.WithLabelValues(string(kind), "created").Inc()
			continue
		}

		if !maps.Equal(existing.Labels, elem.Labels) {
			if err := s.dam.UpdateListItem(ctx, existing.ID, elem.Labels); err != nil {
				return created, updated, deleted, fmt.Errorf("обновление элемента %s: %w", elem.Key, err)
			}
			updated++
			vocabSyncItemsTotal.WithLabelValues(string(kind), "updated").Inc()
		}
	}

	// 3. Удаления
	for _, item := range actual {
		if _, ok := desiredKeys[item.Key]; ok {
			continue
		}
		if err := s.dam.DeleteListItem(ctx, item.ID); err != nil {
			return created, updated, deleted, fmt.Errorf("удаление элемента %s: %w", item.Key, err)
		}
		deleted++
		vocabSyncItemsTotal.WithLabelValues(string(kind), "deleted").Inc()
	}

	if created+updated+deleted > 0 {
		s.logger.Debug("Справочник сверен",
			slog.String("kind", string(kind)),
			slog.Int("created", created),
			slog.Int("updated", updated),
			slog.Int("deleted", deleted),
		)
	}

	return created, updated, deleted, nil
}
