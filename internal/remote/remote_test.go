package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"
)

// testLogger возвращает логгер, пишущий только ошибки в stderr.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fastPolicy — политика с минимальными интервалами для тестов.
func fastPolicy(retries uint64) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestFromStatus_Classification(t *testing.T) {
	cases := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusUnauthorized, KindAuthExpired},
		{http.StatusBadRequest, KindSemantic},
		{http.StatusNotFound, KindSemantic},
		{http.StatusConflict, KindSemantic},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
	}

	for _, tc := range cases {
		err := FromStatus("dam", tc.status, "тело ответа")
		if err.Kind != tc.kind {
			t.Errorf("статус %d: kind = %v, ожидается %v", tc.status, err.Kind, tc.kind)
		}
	}
}

func TestKindOf_UnclassifiedIsTransient(t *testing.T) {
	if got := KindOf(errors.New("обрыв соединения")); got != KindTransient {
		t.Errorf("KindOf = %v, ожидается transient", got)
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := FromStatus("lc", http.StatusBadRequest, "некорректный запрос")
	wrapped := fmt.Errorf("получение страницы: %w", inner)

	if got := KindOf(wrapped); got != KindSemantic {
		t.Errorf("KindOf обёрнутой ошибки = %v, ожидается semantic", got)
	}
	if !IsSemantic(wrapped) {
		t.Error("IsSemantic обёрнутой семантической ошибки = false")
	}
}

func TestDo_TransientRetried(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testLogger(), fastPolicy(5), nil, "test", func() error {
		attempts++
		if attempts < 3 {
			return FromStatus("dam", http.StatusBadGateway, "недоступен")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do вернул ошибку: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, ожидается 3", attempts)
	}
}

func TestDo_SemanticNotRetried(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testLogger(), fastPolicy(5), nil, "test", func() error {
		attempts++
		return FromStatus("dam", http.StatusUnprocessableEntity, "ошибка валидации")
	})
	if err == nil {
		t.Fatal("Do не вернул ошибку")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, ожидается 1 (semantic не повторяется)", attempts)
	}
	if !IsSemantic(err) {
		t.Errorf("категория ошибки = %v, ожидается semantic", KindOf(err))
	}
}

// fakeAuth считает вызовы InvalidateToken.
type fakeAuth struct {
	invalidated int
}

func (f *fakeAuth) InvalidateToken() {
	f.invalidated++
}

func TestDo_AuthExpiredInvalidatesToken(t *testing.T) {
	auth := &fakeAuth{}
	attempts := 0

	err := Do(context.Background(), testLogger(), fastPolicy(5), auth, "test", func() error {
		attempts++
		if attempts == 1 {
			return FromStatus("lc", http.StatusUnauthorized, "токен истёк")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do вернул ошибку: %v", err)
	}
	if auth.invalidated != 1 {
		t.Errorf("InvalidateToken вызван %d раз, ожидается 1", auth.invalidated)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, ожидается 2", attempts)
	}
}

func TestDo_RetryBudgetExhausted(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testLogger(), fastPolicy(2), nil, "test", func() error {
		attempts++
		return FromStatus("dam", http.StatusTooManyRequests, "троттлинг")
	})
	if err == nil {
		t.Fatal("Do не вернул ошибку после исчерпания бюджета повторов")
	}
	// 1 попытка + 2 повтора
	if attempts != 3 {
		t.Errorf("attempts = %d, ожидается 3", attempts)
	}
}
