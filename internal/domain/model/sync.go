// sync.go — модели состояния и результатов синхронизации.
package model

import "time"

// SyncState — единственная строка таблицы sync_state (id = 1).
// Хранит курсор возобновления инкрементальной синхронизации.
type SyncState struct {
	ID int
	// Cursor — последний зафиксированный курсор (timestamp или opaque-токен LC).
	// nil — синхронизация ещё не выполнялась, забирать с начала.
	Cursor *string
	// LastVocabSyncAt — время последней синхронизации словарей.
	LastVocabSyncAt *time.Time
	// LastAssetSyncAt — время последней синхронизации ассетов.
	LastAssetSyncAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Статусы запуска синхронизации.
const (
	SyncRunStatusRunning   = "running"
	SyncRunStatusCompleted = "completed"
	SyncRunStatusFailed    = "failed"
)

// Триггеры запуска синхронизации.
const (
	SyncTriggerManual   = "manual"
	SyncTriggerPeriodic = "periodic"
	SyncTriggerWebhook  = "webhook"
)

// SyncRun — запись истории запусков в таблице sync_runs.
type SyncRun struct {
	ID            string
	Trigger       string
	Status        string
	WithVocab     bool
	Pages         int
	AssetsNew     int
	AssetsUpdated int
	VocabItems    int
	Error         *string
	StartedAt     time.Time
	CompletedAt   *time.Time
}

// SyncResult — итог одного запуска RunSync.
type SyncResult struct {
	RunID string

	Pages         int
	AssetsNew     int
	AssetsUpdated int
	Compounds     int

	Vocab *VocabSyncResult

	StartedAt   time.Time
	CompletedAt time.Time
}

// VocabSyncResult — итог полной синхронизации словарей.
type VocabSyncResult struct {
	Kinds   int
	Created int
	Updated int
	Deleted int
}
