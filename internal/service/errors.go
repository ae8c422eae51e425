// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrSyncInProgress — синхронизация уже выполняется (single-flight).
	ErrSyncInProgress = errors.New("синхронизация уже выполняется")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)
