// Пакет damclient — HTTP-клиент Mediastore DAM.
// Операции разбиты по файлам: listitems.go (справочники), content.go
// (записи контента), transfer.go (staged-загрузка бинарников).
// Все вызовы проходят через retry-драйвер remote.Do.
package damclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bigkaa/mediastore/sync-module/internal/remote"
)

const system = "dam"

// Client — HTTP-клиент Mediastore DAM.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *remote.TokenSource
	retry      remote.RetryPolicy
	logger     *slog.Logger
}

// New создаёт DAM-клиент.
// tokens — источник access token (Client Credentials flow).
func New(baseURL string, tokens *remote.TokenSource, retry remote.RetryPolicy, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		tokens:     tokens,
		retry:      retry,
		logger:     logger.With(slog.String("component", "dam_client")),
	}
}

// remoteDo выполняет fn через retry-драйвер с политикой клиента.
func remoteDo(ctx context.Context, c *Client, op string, fn func() error) error {
	return remote.Do(ctx, c.logger, c.retry, c.tokens, op, fn)
}

// doJSON выполняет авторизованный запрос с JSON-телом (in может быть nil)
// и декодирует JSON-ответ в out (out может быть nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("сериализация запроса %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("создание запроса %s: %w", path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("получение токена DAM: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return remote.FromTransport(system, fmt.Errorf("запрос %s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return remote.FromStatus(system, resp.StatusCode, method+" "+path+": "+string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("декодирование ответа %s: %w", path, err)
		}
	}
	return nil
}
