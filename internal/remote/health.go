// health.go — проверка готовности удалённой системы для health endpoint.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ReadinessChecker — проверка доступности удалённой системы через её
// health endpoint. Реализует интерфейс handlers.ReadinessChecker.
type ReadinessChecker struct {
	system    string
	healthURL string
	client    *http.Client
}

// NewReadinessChecker создаёт проверку готовности удалённой системы.
// system — имя системы для сообщений ("lc", "dam").
// baseURL — базовый URL системы; проверяется GET <baseURL>/health.
func NewReadinessChecker(system, baseURL string, timeout time.Duration) *ReadinessChecker {
	return &ReadinessChecker{
		system:    system,
		healthURL: baseURL + "/health",
		client:    &http.Client{Timeout: timeout},
	}
}

// CheckReady проверяет доступность health endpoint удалённой системы.
// Возвращает статус ("ok", "fail") и сообщение.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.healthURL, http.NoBody)
	if err != nil {
		return "fail", "ошибка создания запроса: " + err.Error()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("%s недоступен: %v", c.system, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "fail", fmt.Sprintf("%s вернул статус %d", c.system, resp.StatusCode)
	}

	return "ok", fmt.Sprintf("%s доступен", c.system)
}
