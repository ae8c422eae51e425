// resolver.go — резолвер словарных ссылок.
//
// Черновики метаданных ссылаются на элементы справочников DAM по ID,
// а LC оперирует ключами. Резолвер держит LRU-кэш «вид → ключ → ID»
// с TTL; после синхронизации словарей кэш сбрасывается (Purge),
// чтобы новые элементы стали видимы немедленно.
//
// Prometheus-метрики:
//   - sm_resolver_cache_hits_total — попадания в кэш (по видам)
//   - sm_resolver_cache_misses_total — промахи кэша (по видам)
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/mediastore/sync-module/internal/damclient"
	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
)

// Prometheus-метрики резолвера.
var (
	resolverCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_resolver_cache_hits_total",
		Help: "Попадания в кэш словарных ссылок",
	}, []string{"kind"})

	resolverCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_resolver_cache_misses_total",
		Help: "Промахи кэша словарных ссылок",
	}, []string{"kind"})
)

// ReferenceResolver — кэширующий резолвер «словарный ключ → ID элемента DAM».
type ReferenceResolver struct {
	dam    *damclient.Client
	cache  *expirable.LRU[string, map[string]string]
	logger *slog.Logger
}

// NewReferenceResolver создаёт резолвер.
// ttl — время жизни кэшированного вида словаря.
func NewReferenceResolver(dam *damclient.Client, ttl time.Duration, logger *slog.Logger) *ReferenceResolver {
	return &ReferenceResolver{
		dam:    dam,
		cache:  expirable.NewLRU[string, map[string]string](len(model.AllVocabularyKinds)*2, nil, ttl),
		logger: logger.With(slog.String("component", "resolver")),
	}
}

// ResolveKey возвращает ID элемента справочника DAM для словарного ключа.
// Пустой ключ — пустой ID без обращения к DAM. Неизвестный ключ — тоже
// пустой ID: потоки словарей и ассетов могут быть временно рассогласованы,
// и такая ссылка просто не попадает в черновик метаданных.
func (r *ReferenceResolver) ResolveKey(ctx context.Context, kind model.VocabularyKind, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	index, err := r.kindIndex(ctx, kind)
	if err != nil {
		return "", err
	}

	id, ok := index[key]
	if !ok {
		r.logger.Warn("Словарный ключ не найден в справочнике DAM",
			slog.String("kind", string(kind)),
			slog.String("key", key),
		)
		return "", nil
	}
	return id, nil
}

// ResolveKeys резолвит список ключей одного вида с сохранением порядка.
// Неизвестные ключи отсутствуют в результате; пустой список — пустой
// результат без обращения к DAM.
func (r *ReferenceResolver) ResolveKeys(ctx context.Context, kind model.VocabularyKind, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		id, err := r.ResolveKey(ctx, kind, key)
		if err != nil {
			return nil, err
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Purge сбрасывает весь кэш. Вызывается после синхронизации словарей.
func (r *ReferenceResolver) Purge() {
	r.cache.Purge()
	r.logger.Debug("Кэш словарных ссылок сброшен")
}

// kindIndex возвращает индекс «ключ → ID» вида словаря, загружая его
// из DAM при промахе кэша.
func (r *ReferenceResolver) kindIndex(ctx context.Context, kind model.VocabularyKind) (map[string]string, error) {
	if index, ok := r.cache.Get(string(kind)); ok {
		resolverCacheHits.WithLabelValues(string(kind)).Inc()
		return index, nil
	}
	resolverCacheMisses.WithLabelValues(string(kind)).Inc()

	items, err := r.dam.SearchListItems(ctx, string(kind))
	if err != nil {
		return nil, fmt.Errorf("загрузка справочника %s: %w", kind, err)
	}

	index := make(map[string]string, len(items))
	for _, item := range items {
		index[item.Key] = item.ID
	}
	r.cache.Add(string(kind), index)

	r.logger.Debug("Справочник загружен в кэш",
		slog.String("kind", string(kind)),
		slog.Int("items", len(index)),
	)
	return index, nil
}
