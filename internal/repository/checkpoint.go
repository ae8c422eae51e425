// checkpoint.go — репозиторий курсора возобновления синхронизации.
// Таблица sync_state содержит одну строку (id = 1); курсор записывается
// только после полного импорта страницы, чтобы падение между страницами
// не теряло и не дублировало зафиксированную работу.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
)

// CheckpointRepository — интерфейс для таблицы sync_state (одна строка).
type CheckpointRepository interface {
	// Get возвращает текущее состояние синхронизации.
	Get(ctx context.Context) (*model.SyncState, error)
	// SaveCursor записывает курсор после полного импорта страницы.
	SaveCursor(ctx context.Context, cursor string) error
	// UpdateVocabSyncAt обновляет время последней синхронизации словарей.
	UpdateVocabSyncAt(ctx context.Context, t time.Time) error
	// UpdateAssetSyncAt обновляет время последней синхронизации ассетов.
	UpdateAssetSyncAt(ctx context.Context, t time.Time) error
}

// checkpointRepo — реализация CheckpointRepository.
type checkpointRepo struct {
	db DBTX
}

// NewCheckpointRepository создаёт репозиторий состояния синхронизации.
func NewCheckpointRepository(db DBTX) CheckpointRepository {
	return &checkpointRepo{db: db}
}

func (r *checkpointRepo) Get(ctx context.Context) (*model.SyncState, error) {
	query := `
		SELECT id, cursor, last_vocab_sync_at, last_asset_sync_at, created_at, updated_at
		FROM sync_state
		WHERE id = 1`

	s := &model.SyncState{}
	err := r.db.QueryRow(ctx, query).Scan(
		&s.ID, &s.Cursor, &s.LastVocabSyncAt, &s.LastAssetSyncAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения sync_state: %w", err)
	}
	return s, nil
}

func (r *checkpointRepo) SaveCursor(ctx context.Context, cursor string) error {
	query := `UPDATE sync_state SET cursor = $1 WHERE id = 1`
	_, err := r.db.Exec(ctx, query, cursor)
	if err != nil {
		return fmt.Errorf("ошибка сохранения курсора: %w", err)
	}
	return nil
}

func (r *checkpointRepo) UpdateVocabSyncAt(ctx context.Context, t time.Time) error {
	query := `UPDATE sync_state SET last_vocab_sync_at = $1 WHERE id = 1`
	_, err := r.db.Exec(ctx, query, t)
	if err != nil {
		return fmt.Errorf("ошибка обновления last_vocab_sync_at: %w", err)
	}
	return nil
}

func (r *checkpointRepo) UpdateAssetSyncAt(ctx context.Context, t time.Time) error {
	query := `UPDATE sync_state SET last_asset_sync_at = $1 WHERE id = 1`
	_, err := r.db.Exec(ctx, query, t)
	if err != nil {
		return fmt.Errorf("ошибка обновления last_asset_sync_at: %w", err)
	}
	return nil
}
