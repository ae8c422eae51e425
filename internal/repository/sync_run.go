// sync_run.go — репозиторий истории запусков синхронизации.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/mediastore/sync-module/internal/domain/model"
)

// SyncRunRepository — интерфейс CRUD для таблицы sync_runs.
type SyncRunRepository interface {
	// Insert создаёт запись запуска со статусом running.
	Insert(ctx context.Context, run *model.SyncRun) error
	// Finish записывает итог запуска (completed/failed, счётчики, ошибка).
	Finish(ctx context.Context, run *model.SyncRun) error
	// GetLatest возвращает последний запуск по started_at.
	GetLatest(ctx context.Context) (*model.SyncRun, error)
	// List возвращает последние запуски (новые первыми).
	List(ctx context.Context, limit int) ([]*model.SyncRun, error)
}

// syncRunRepo — реализация SyncRunRepository.
type syncRunRepo struct {
	db DBTX
}

// NewSyncRunRepository создаёт репозиторий истории запусков.
func NewSyncRunRepository(db DBTX) SyncRunRepository {
	return &syncRunRepo{db: db}
}

func (r *syncRunRepo) Insert(ctx context.Context, run *model.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, trigger, status, with_vocab, started_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		run.ID, run.Trigger, run.Status, run.WithVocab, run.StartedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: запуск с таким ID уже зарегистрирован", ErrConflict)
		}
		return fmt.Errorf("ошибка регистрации запуска: %w", err)
	}
	return nil
}

func (r *syncRunRepo) Finish(ctx context.Context, run *model.SyncRun) error {
	query := `
		UPDATE sync_runs
		SET status = $2, pages = $3, assets_new = $4, assets_updated = $5,
			vocab_items = $6, error = $7, completed_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		run.ID, run.Status, run.Pages, run.AssetsNew, run.AssetsUpdated,
		run.VocabItems, run.Error, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка завершения запуска: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *syncRunRepo) GetLatest(ctx context.Context) (*model.SyncRun, error) {
	query := `
		SELECT id, trigger, status, with_vocab, pages, assets_new, assets_updated,
			vocab_items, error, started_at, completed_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT 1`

	run := &model.SyncRun{}
	err := r.db.QueryRow(ctx, query).Scan(
		&run.ID, &run.Trigger, &run.Status, &run.WithVocab, &run.Pages,
		&run.AssetsNew, &run.AssetsUpdated, &run.VocabItems, &run.Error,
		&run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения последнего запуска: %w", err)
	}
	return run, nil
}

func (r *syncRunRepo) List(ctx context.Context, limit int) ([]*model.SyncRun, error) {
	query := `
		SELECT id, trigger, status, with_vocab, pages, assets_new, assets_updated,
			vocab_items, error, started_at, completed_at
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка запусков: %w", err)
	}
	defer rows.Close()

	var runs []*model.SyncRun
	for rows.Next() {
		run := &model.SyncRun{}
		if err := rows.Scan(
			&run.ID, &run.Trigger, &run.Status, &run.WithVocab, &run.Pages,
			&run.AssetsNew, &run.AssetsUpdated, &run.VocabItems, &run.Error,
			&run.StartedAt, &run.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения запуска: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по запускам: %w", err)
	}
	return runs, nil
}
