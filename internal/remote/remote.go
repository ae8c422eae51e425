// Пакет remote — классификация ошибок удалённых систем и retry-драйвер.
//
// Транспортный слой (lcclient, damclient) возвращает *Error с ErrorKind,
// а retry-драйвер ветвится по данным, не по динамическим типам:
//   - rate-limited  — удалённая система троттлит; повтор с экспоненциальным backoff
//   - transient     — сетевая или неклассифицированная серверная ошибка; повтор
//   - auth-expired  — токен истёк; сброс кэша токена и повтор
//   - semantic      — ошибка валидации/данных; не повторяется, всплывает сразу
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrorKind — категория ошибки удалённой системы.
type ErrorKind int

const (
	// KindTransient — сетевая или неклассифицированная серверная ошибка.
	KindTransient ErrorKind = iota
	// KindRateLimited — удалённая система сигнализирует троттлинг (429).
	KindRateLimited
	// KindAuthExpired — авторизация истекла (401).
	KindAuthExpired
	// KindSemantic — семантическая ошибка запроса или данных; повтор бессмыслен.
	KindSemantic
)

// String возвращает строковое имя категории (для логов и метрик).
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuthExpired:
		return "auth_expired"
	case KindSemantic:
		return "semantic"
	default:
		return "transient"
	}
}

// Error — ошибка удалённой системы с категорией.
type Error struct {
	// Kind — категория ошибки.
	Kind ErrorKind
	// System — имя удалённой системы (lc, dam).
	System string
	// StatusCode — HTTP-статус ответа (0 для сетевых ошибок).
	StatusCode int
	// Message — описание (тело ответа или текст сетевой ошибки).
	Message string
	// Err — исходная ошибка (может быть nil для HTTP-ответов).
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: статус %d (%s): %s", e.System, e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.System, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FromStatus классифицирует HTTP-ответ по статус-коду.
func FromStatus(system string, statusCode int, body string) *Error {
	kind := KindTransient
	switch {
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimited
	case statusCode == http.StatusUnauthorized:
		kind = KindAuthExpired
	case statusCode >= 400 && statusCode < 500:
		kind = KindSemantic
	}
	return &Error{Kind: kind, System: system, StatusCode: statusCode, Message: body}
}

// FromTransport классифицирует сетевую ошибку (всегда transient).
func FromTransport(system string, err error) *Error {
	return &Error{Kind: KindTransient, System: system, Message: err.Error(), Err: err}
}

// Semantic создаёт семантическую ошибку, обнаруженную на стороне клиента
// (например, поиск вернул больше одного результата).
func Semantic(system, message string) *Error {
	return &Error{Kind: KindSemantic, System: system, Message: message}
}

// KindOf возвращает категорию ошибки.
// Неклассифицированные ошибки считаются transient.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindTransient
}

// IsSemantic сообщает, является ли ошибка семантической (неповторяемой).
func IsSemantic(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindSemantic
}

// TokenInvalidator — сброс кэшированного access token перед повтором.
// Реализуется клиентами с Client Credentials flow.
type TokenInvalidator interface {
	InvalidateToken()
}

// RetryPolicy — параметры retry-драйвера.
type RetryPolicy struct {
	// MaxRetries — максимум повторов (0 — без повторов).
	MaxRetries uint64
	// InitialInterval — начальный интервал backoff.
	InitialInterval time.Duration
	// MaxInterval — потолок интервала backoff.
	MaxInterval time.Duration
}

// DefaultRetryPolicy — политика по умолчанию: 5 повторов, 500ms → 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
	}
}

// Do выполняет fn с повтором по политике policy.
//
// Ветвление по категории:
//   - semantic → backoff.Permanent, всплывает без повтора
//   - auth-expired → сброс токена через auth (если задан) и повтор
//   - rate-limited, transient → повтор с экспоненциальным backoff
func Do(ctx context.Context, logger *slog.Logger, policy RetryPolicy, auth TokenInvalidator, op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.InitialInterval
	bo.MaxInterval = policy.MaxInterval

	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}

		switch KindOf(err) {
		case KindSemantic:
			return backoff.Permanent(err)
		case KindAuthExpired:
			// Сбрасываем кэш токена — следующая попытка получит свежий.
			if auth != nil {
				auth.InvalidateToken()
			}
			return err
		default:
			return err
		}
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Повтор операции после ошибки",
			slog.String("operation", op),
			slog.String("kind", KindOf(err).String()),
			slog.String("wait", wait.String()),
			slog.String("error", err.Error()),
		)
	}

	return backoff.RetryNotify(operation,
		backoff.WithMaxRetries(backoff.WithContext(bo, ctx), policy.MaxRetries),
		notify,
	)
}
