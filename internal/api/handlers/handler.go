// handler.go — основной обработчик API Sync Module.
// Объединяет health и sync обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/mediastore/sync-module/internal/service"
)

// APIHandler — основной обработчик API Sync Module.
type APIHandler struct {
	health *HealthHandler
	sync   *SyncHandler
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(health *HealthHandler, syncSvc *service.SyncService, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health: health,
		sync:   NewSyncHandler(syncSvc, logger),
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// TriggerSync — ручной запуск синхронизации (делегируется в SyncHandler).
func (h *APIHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	h.sync.TriggerSync(w, r)
}

// SyncStatus — состояние синхронизации (делегируется в SyncHandler).
func (h *APIHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	h.sync.SyncStatus(w, r)
}

// AssetUpdatedWebhook — webhook об изменении ассета (делегируется в SyncHandler).
func (h *APIHandler) AssetUpdatedWebhook(w http.ResponseWriter, r *http.Request) {
	h.sync.AssetUpdatedWebhook(w, r)
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
