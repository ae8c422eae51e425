// sync.go — обработчики управления синхронизацией.
// POST /api/v1/sync — ручной запуск (синхронный, 409 при выполняющемся запуске)
// GET /api/v1/sync/status — курсор, времена синхронизаций, история запусков
// POST /api/v1/webhook/asset-updated — уведомление LC об изменении ассета
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/mediastore/sync-module/internal/api/errors"
	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
	"github.com/bigkaa/mediastore/sync-module/internal/service"
)

// SyncHandler — обработчик endpoints синхронизации.
type SyncHandler struct {
	sync   *service.SyncService
	logger *slog.Logger
}

// NewSyncHandler создаёт обработчик синхронизации.
func NewSyncHandler(syncSvc *service.SyncService, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		sync:   syncSvc,
		logger: logger.With(slog.String("component", "sync_handler")),
	}
}

// triggerSyncRequest — тело запроса ручного запуска.
type triggerSyncRequest struct {
	// WithVocab — сверить словари перед импортом ассетов.
	WithVocab bool `json:"with_vocab"`
}

// syncResultResponse — итог запуска синхронизации.
type syncResultResponse struct {
	RunID         string `json:"run_id"`
	Pages         int    `json:"pages"`
	AssetsNew     int    `json:"assets_new"`
	AssetsUpdated int    `json:"assets_updated"`
	Compounds     int    `json:"compounds"`
	VocabItems    int    `json:"vocab_items,omitempty"`
	StartedAt     string `json:"started_at"`
	CompletedAt   string `json:"completed_at"`
}

// TriggerSync — ручной запуск синхронизации.
// Выполняется синхронно; при уже выполняющемся запуске возвращает 409.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req triggerSyncRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
			return
		}
	}

	result, err := h.sync.Run(r.Context(), model.SyncTriggerManual, req.WithVocab)
	if errors.Is(err, service.ErrSyncInProgress) {
		apierrors.Conflict(w, "синхронизация уже выполняется")
		return
	}
	if err != nil {
		h.logger.Error("Ошибка ручного запуска синхронизации", slog.String("error", err.Error()))
		apierrors.InternalError(w, "синхронизация завершилась ошибкой: "+err.Error())
		return
	}

	resp := syncResultResponse{
		RunID:         result.RunID,
		Pages:         result.Pages,
		AssetsNew:     result.AssetsNew,
		AssetsUpdated: result.AssetsUpdated,
		Compounds:     result.Compounds,
		StartedAt:     result.StartedAt.Format(time.RFC3339),
		CompletedAt:   result.CompletedAt.Format(time.RFC3339),
	}
	if result.Vocab != nil {
		resp.VocabItems = result.Vocab.Created + result.Vocab.Updated + result.Vocab.Deleted
	}
	writeJSON(w, http.StatusOK, resp)
}

// syncRunResponse — запись истории запусков.
type syncRunResponse struct {
	ID            string  `json:"id"`
	Trigger       string  `json:"trigger"`
	Status        string  `json:"status"`
	WithVocab     bool    `json:"with_vocab"`
	Pages         int     `json:"pages"`
	AssetsNew     int     `json:"assets_new"`
	AssetsUpdated int     `json:"assets_updated"`
	VocabItems    int     `json:"vocab_items"`
	Error         *string `json:"error,omitempty"`
	StartedAt     string  `json:"started_at"`
	CompletedAt   *string `json:"completed_at,omitempty"`
}

// syncStatusResponse — состояние синхронизации.
type syncStatusResponse struct {
	Cursor          *string           `json:"cursor"`
	LastVocabSyncAt *string           `json:"last_vocab_sync_at"`
	LastAssetSyncAt *string           `json:"last_asset_sync_at"`
	Runs            []syncRunResponse `json:"runs"`
}

// SyncStatus — текущее состояние синхронизации и история запусков.
func (h *SyncHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	state, runs, err := h.sync.Status(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения состояния синхронизации", slog.String("error", err.Error()))
		apierrors.InternalError(w, "ошибка получения состояния синхронизации")
		return
	}

	resp := syncStatusResponse{
		Cursor:          state.Cursor,
		LastVocabSyncAt: formatOptionalTime(state.LastVocabSyncAt),
		LastAssetSyncAt: formatOptionalTime(state.LastAssetSyncAt),
		Runs:            make([]syncRunResponse, 0, len(runs)),
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, syncRunResponse{
			ID:            run.ID,
			Trigger:       run.Trigger,
			Status:        run.Status,
			WithVocab:     run.WithVocab,
			Pages:         run.Pages,
			AssetsNew:     run.AssetsNew,
			AssetsUpdated: run.AssetsUpdated,
			VocabItems:    run.VocabItems,
			Error:         run.Error,
			StartedAt:     run.StartedAt.Format(time.RFC3339),
			CompletedAt:   formatOptionalTime(run.CompletedAt),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// AssetUpdatedWebhook — уведомление LC об изменении ассета.
// Запускает инкрементальную синхронизацию в фоне и сразу возвращает 202.
// Выполняющийся запуск не прерывается: single-flight пропустит дубль,
// а изменение заберёт следующий периодический цикл.
func (h *SyncHandler) AssetUpdatedWebhook(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 30*time.Minute)
		defer cancel()

		_, err := h.sync.Run(ctx, model.SyncTriggerWebhook, false)
		switch {
		case errors.Is(err, service.ErrSyncInProgress):
			h.logger.Info("Webhook-синхронизация пропущена: запуск уже выполняется")
		case err != nil:
			h.logger.Error("Ошибка синхронизации по webhook", slog.String("error", err.Error()))
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

// formatOptionalTime форматирует опциональное время в RFC 3339.
func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
