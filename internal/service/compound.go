// compound.go — сборка составных ассетов в DAM.
//
// Составной ассет не имеет собственного бинарника: его запись контента
// связывает уже импортированные части в порядке источника. Пока хотя бы
// одна часть не импортирована в DAM, составной ассет пропускается
// целиком, без записей — связи соберутся в том запуске, где все части
// уже резолвятся.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/mediastore/sync-module/internal/damclient"
	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
)

// CompoundAssembler — сборщик составных ассетов.
type CompoundAssembler struct {
	dam    *damclient.Client
	logger *slog.Logger
}

// NewCompoundAssembler создаёт сборщик составных ассетов.
func NewCompoundAssembler(dam *damclient.Client, logger *slog.Logger) *CompoundAssembler {
	return &CompoundAssembler{
		dam:    dam,
		logger: logger.With(slog.String("component", "compound")),
	}
}

// Apply создаёт или обновляет запись составного ассета.
// existing — найденная запись контента DAM (nil — записи ещё нет).
// Возвращает операцию: created, updated или skipped (части не готовы).
func (a *CompoundAssembler) Apply(ctx context.Context, existing *damclient.Content, asset *model.Asset, meta damclient.Metadata) (string, error) {
	parts, ready, err := a.resolveParts(ctx, asset)
	if err != nil {
		return "", err
	}
	if !ready {
		return "skipped", nil
	}

	if existing == nil {
		content, err := a.dam.CreateContent(ctx, meta, parts)
		if err != nil {
			return "", fmt.Errorf("создание составного контента %s: %w", asset.TransactionID, err)
		}
		a.logger.Info("Составной ассет создан",
			slog.String("transaction_id", asset.TransactionID),
			slog.String("content_id", content.ID),
			slog.Int("parts", len(parts)),
		)
		return "created", nil
	}

	if err := a.dam.UpdateContentMetadata(ctx, existing.ID, meta); err != nil {
		return "", fmt.Errorf("обновление метаданных составного контента %s: %w", existing.ID, err)
	}
	if err := a.dam.UpdateContentParts(ctx, existing.ID, parts); err != nil {
		return "", fmt.Errorf("обновление связей составного контента %s: %w", existing.ID, err)
	}

	a.logger.Info("Составной ассет обновлён",
		slog.String("transaction_id", asset.TransactionID),
		slog.String("content_id", existing.ID),
		slog.Int("parts", len(parts)),
	)
	return "updated", nil
}

// resolveParts находит записи контента частей и строит упорядоченные связи.
// ready == false — хотя бы одна часть ещё не импортирована: связи
// не строятся, составной ассет дождётся следующего запуска.
func (a *CompoundAssembler) resolveParts(ctx context.Context, asset *model.Asset) (parts []damclient.PartRelation, ready bool, err error) {
	for i, part := range asset.CompoundParts {
		content, err := a.dam.SearchContentByTransactionID(ctx, part.TransactionID)
		if err != nil {
			return nil, false, fmt.Errorf("поиск части %s: %w", part.TransactionID, err)
		}
		if content == nil {
			a.logger.Warn("Часть составного ассета ещё не импортирована, пропуск сборки",
				slog.String("compound", asset.TransactionID),
				slog.String("part", part.TransactionID),
			)
			return nil, false, nil
		}

		parts = append(parts, damclient.PartRelation{
			ContentID: content.ID,
			Usage:     part.Usage,
			Position:  i,
		})
	}

	return parts, true, nil
}
